package agenda

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "ilipanel/internal/log"
)

const defaultMaxPerSeries = 500

// Occurrence is one concrete instance of an event in the display zone.
type Occurrence struct {
	SourceID string
	UID      string
	Summary  string
	Location string
	AllDay   bool
	Start    time.Time
	End      time.Time
}

// Window selects the occurrences to expand.
type Window struct {
	Location *time.Location // defaults to time.Local
	From, To time.Time
	// MaxPerSeries caps each recurring series.
	MaxPerSeries int
}

// Expand turns events into the occurrences overlapping [From, To),
// applying RRULE, EXDATE and RECURRENCE-ID overrides. The result is
// sorted by start time, all-day entries first within a day.
func Expand(events []Event, w Window) ([]Occurrence, error) {
	if w.To.Before(w.From) {
		return nil, errors.New("agenda: window ends before it starts")
	}
	if w.Location == nil {
		w.Location = time.Local
	}
	if w.MaxPerSeries <= 0 {
		w.MaxPerSeries = defaultMaxPerSeries
	}

	overrides := map[string][]Event{}
	var bases []Event
	for _, ev := range events {
		if ev.RecurrenceID != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			bases = append(bases, ev)
		}
	}

	var out []Occurrence
	for _, ev := range bases {
		starts := []time.Time{ev.Start}
		if ev.RRule != "" {
			var err error
			if starts, err = recurrences(ev, w); err != nil {
				appLog.Warn("agenda: bad RRULE", "uid", ev.UID, "rrule", ev.RRule, "err", err)
				continue
			}
		}
		dur := ev.End.Sub(ev.Start)
		for _, s := range starts {
			inst := ev
			inst.Start, inst.End = s, s.Add(dur)
			if o, ok := override(overrides[ev.UID], s); ok {
				inst = o
			}
			if overlaps(inst.Start, inst.End, w.From, w.To) {
				out = append(out, occurrence(inst, w.Location))
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.AllDay && !b.AllDay
	})
	return out, nil
}

func recurrences(ev Event, w Window) ([]time.Time, error) {
	opt, err := rrule.StrToROptionInLocation(ev.RRule, ev.Start.Location())
	if err != nil {
		return nil, err
	}
	opt.Dtstart = ev.Start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}
	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Instances that started before From may still be running.
	from := w.From.Add(-ev.End.Sub(ev.Start))
	starts := set.Between(from, w.To, true)
	if len(starts) > w.MaxPerSeries {
		appLog.Warn("agenda: series truncated", "uid", ev.UID, "cap", w.MaxPerSeries)
		starts = starts[:w.MaxPerSeries]
	}
	return starts, nil
}

// overlaps treats zero-length events as instants.
func overlaps(start, end, from, to time.Time) bool {
	return start.Before(to) && (end.After(from) || !start.Before(from))
}

func override(list []Event, start time.Time) (Event, bool) {
	for _, o := range list {
		if o.RecurrenceID.Equal(start) {
			return o, true
		}
	}
	return Event{}, false
}

func occurrence(ev Event, loc *time.Location) Occurrence {
	start, end := ev.Start.In(loc), ev.End.In(loc)
	if ev.AllDay {
		// All-day dates are floating: keep the calendar date.
		start = time.Date(ev.Start.Year(), ev.Start.Month(), ev.Start.Day(), 0, 0, 0, 0, loc)
		end = start.Add(ev.End.Sub(ev.Start))
	}
	return Occurrence{
		SourceID: ev.Source.ID,
		UID:      ev.UID,
		Summary:  ev.Summary,
		Location: ev.Location,
		AllDay:   ev.AllDay,
		Start:    start,
		End:      end,
	}
}
