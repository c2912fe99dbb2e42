package agenda

import (
	"fmt"
	"strings"
	"time"

	"ilipanel/internal/font"
	"ilipanel/internal/ili9486"
)

// Painter is the part of the panel driver the agenda draws with.
type Painter interface {
	Width() int
	Height() int
	ClearColor(c ili9486.Color) error
	Fill(x0, y0, x1, y1 int, c ili9486.Color) error
	DrawHLine(x, y, length int, c ili9486.Color) error
	DrawString(x, y int, s string, size font.Size, c ili9486.Color) (int, error)
	Font(size font.Size) (*font.Table, error)
}

// Style holds the agenda palette.
type Style struct {
	Background ili9486.Color
	Header     ili9486.Color
	HeaderText ili9486.Color
	Day        ili9486.Color
	Text       ili9486.Color
	Muted      ili9486.Color
}

// DefaultStyle is light text on black.
var DefaultStyle = Style{
	Background: ili9486.Black,
	Header:     ili9486.Blue,
	HeaderText: ili9486.White,
	Day:        ili9486.Yellow,
	Text:       ili9486.White,
	Muted:      ili9486.RGB565(0x80, 0x80, 0x80),
}

// Screen is everything one agenda frame shows.
type Screen struct {
	Title       string
	Now         time.Time
	Days        int
	Occurrences []Occurrence
	Status      string
}

const margin = 4

// Render draws s over the whole panel: a header with the title and clock,
// then one block per day that has events, then the status line. Entries
// that do not fit are dropped.
func Render(p Painter, s Screen, st Style) error {
	w, h := p.Width(), p.Height()
	big, err := p.Font(font.M)
	if err != nil {
		return err
	}
	mid, err := p.Font(font.S)
	if err != nil {
		return err
	}
	small, err := p.Font(font.XS)
	if err != nil {
		return err
	}

	if err := p.ClearColor(st.Background); err != nil {
		return err
	}

	headerH := big.Height + 2*margin
	if err := p.Fill(0, 0, w, headerH, st.Header); err != nil {
		return err
	}
	title := s.Title
	if title != "" {
		title += "  "
	}
	title += s.Now.Format("Mon 02 Jan 15:04")
	if _, err := p.DrawString(margin, margin, clip(title, (w-2*margin)/big.Width), font.M, st.HeaderText); err != nil {
		return err
	}

	bottom := h
	if s.Status != "" {
		bottom = h - small.Height - margin
		line := clip(s.Status, (w-2*margin)/small.Width)
		if _, err := p.DrawString(margin, bottom+margin/2, line, font.XS, st.Muted); err != nil {
			return err
		}
	}

	y := headerH + margin
	fits := func(rowH int) bool { return y+rowH <= bottom }
	shown := 0

	day := time.Date(s.Now.Year(), s.Now.Month(), s.Now.Day(), 0, 0, 0, 0, s.Now.Location())
	for i := 0; i < max(s.Days, 1); i++ {
		next := day.AddDate(0, 0, 1)
		var items []Occurrence
		for _, o := range s.Occurrences {
			if overlaps(o.Start, o.End, day, next) {
				items = append(items, o)
			}
		}
		if len(items) > 0 {
			if !fits(mid.Height + 2) {
				break
			}
			if _, err := p.DrawString(margin, y, dayLabel(day, s.Now), font.S, st.Day); err != nil {
				return err
			}
			y += mid.Height
			if err := p.DrawHLine(margin, y, w-2*margin, st.Muted); err != nil {
				return err
			}
			y += 2
			for _, o := range items {
				if !fits(small.Height + 1) {
					break
				}
				line := entryLabel(o, day) + " " + o.Summary
				if _, err := p.DrawString(margin*2, y, clip(line, (w-3*margin)/small.Width), font.XS, st.Text); err != nil {
					return err
				}
				y += small.Height + 1
				shown++
			}
			y += margin
		}
		day = next
	}

	if shown == 0 && fits(mid.Height) {
		if _, err := p.DrawString(margin, y, "No events", font.S, st.Muted); err != nil {
			return err
		}
	}
	return nil
}

func dayLabel(day, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, day.Location())
	switch {
	case day.Equal(today):
		return "Today " + day.Format("Mon 02 Jan")
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow " + day.Format("Mon 02 Jan")
	}
	return day.Format("Monday 02 Jan")
}

func entryLabel(o Occurrence, day time.Time) string {
	switch {
	case o.AllDay:
		return "all day"
	case o.Start.Before(day):
		return "  cont."
	}
	return fmt.Sprintf("%5s", o.Start.Format("15:04"))
}

// clip replaces characters the fonts cannot draw and cuts s to n
// characters.
func clip(s string, n int) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() >= n {
			break
		}
		if r < ' ' || r > '~' {
			r = '?'
		}
		b.WriteRune(r)
	}
	return b.String()
}
