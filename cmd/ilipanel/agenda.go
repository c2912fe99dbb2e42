package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ilipanel/internal/agenda"
	"ilipanel/internal/config"
	"ilipanel/internal/ili9486"
	appLog "ilipanel/internal/log"
	"ilipanel/internal/web"
)

// agendaJob fetches the configured feeds and redraws the agenda screen.
type agendaJob struct {
	cfg     *config.Config
	loc     *time.Location
	fetcher *agenda.Fetcher
	panel   *web.Panel

	// running guards against a cron tick overlapping a manual refresh.
	running sync.Mutex
}

func newAgendaJob(cfg *config.Config, cacheDir string, panel *web.Panel) *agendaJob {
	return &agendaJob{
		cfg:     cfg,
		loc:     resolveLocationOrLocal(cfg.Timezone),
		fetcher: agenda.NewFetcher(cacheDir),
		panel:   panel,
	}
}

// Run does one fetch, expand and render cycle. The panel lock is held
// only while drawing.
func (j *agendaJob) Run(ctx context.Context) error {
	j.running.Lock()
	defer j.running.Unlock()

	start := time.Now()
	sources := make([]agenda.Source, 0, len(j.cfg.ICS))
	for _, s := range j.cfg.ICS {
		sources = append(sources, agenda.Source{ID: s.ID, Name: s.Name, URL: s.URL})
	}

	feeds, errs := j.fetcher.FetchAll(ctx, sources)
	var events []agenda.Event
	stale := 0
	for _, f := range feeds {
		if f.FromCache {
			stale++
		}
		evs, err := agenda.Parse(f.Source, f.Body)
		if err != nil {
			appLog.Error("ics parse failed", err, "id", f.Source.ID)
			errs = append(errs, fmt.Errorf("%s: %w", f.Source.ID, err))
			continue
		}
		events = append(events, evs...)
	}

	now := time.Now().In(j.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.loc)
	occ, err := agenda.Expand(events, agenda.Window{
		Location: j.loc,
		From:     from,
		To:       from.AddDate(0, 0, j.cfg.HorizonDays),
	})
	if err != nil {
		return err
	}

	status := "updated " + now.Format("15:04")
	switch {
	case len(errs) > 0:
		status += fmt.Sprintf(", %d feed(s) failed", len(errs))
	case stale > 0:
		status += fmt.Sprintf(", %d from cache", stale)
	}

	err = j.panel.Do(func(d *ili9486.Dev) error {
		st := agenda.DefaultStyle
		st.Background = d.Background()
		return agenda.Render(d, agenda.Screen{
			Title:       "Agenda",
			Now:         now,
			Days:        j.cfg.HorizonDays,
			Occurrences: occ,
			Status:      status,
		}, st)
	})
	if err != nil {
		return err
	}
	appLog.Info("agenda rendered",
		"sources", len(sources),
		"events", len(events),
		"occurrences", len(occ),
		"failed", len(errs),
		"took", time.Since(start).String(),
	)
	return nil
}

// resolveLocationOrLocal loads name, falling back to the local zone.
func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Warn("unknown timezone, using local", "timezone", name, "err", err)
		return time.Local
	}
	return loc
}
