package main

import (
	"context"
	"image/color"
	"time"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"ilipanel/internal/ili9486"
	"ilipanel/internal/web"
)

// drawDemo paints the reference test card: blue background, a red square,
// a striped block written through one window, crossing lines and nested
// circles.
func drawDemo(d *ili9486.Dev) error {
	w, h := d.Width(), d.Height()
	steps := []func() error{
		func() error { return d.ClearColor(ili9486.Blue) },
		func() error { return d.Fill(10, 10, 100, 100, ili9486.Red) },
		func() error { return stripes(d, 150, 150, 300, 300) },
		func() error { return d.DrawLine(0, 0, w, w, ili9486.White) },
		func() error { return d.DrawHLine(0, 10, w, ili9486.White) },
		func() error { return d.DrawVLine(10, 0, h, ili9486.White) },
		func() error { return d.DrawLine(w, 10, 10, h, ili9486.White) },
		func() error { return d.DrawCircle(70, 225, 49, ili9486.White, true) },
		func() error { return d.DrawCircle(70, 225, 20, ili9486.Black, true) },
		func() error { return d.DrawCircle(70, 225, 30, ili9486.Black, false) },
		func() error { return d.DrawCircle(70, 225, 10, ili9486.Green, true) },
		func() error { return caption(d, "ILI9486 "+d.Orientation().String()) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// stripes fills the window with rows cycling red, green and black.
func stripes(d *ili9486.Dev, x0, y0, x1, y1 int) error {
	if err := d.OpenWindow(x0, y0, x1, y1); err != nil {
		return err
	}
	cycle := [...]ili9486.Color{ili9486.Red, ili9486.Green, ili9486.Black}
	n := x1 - x0
	for i := 0; i < y1-y0; i++ {
		if err := d.WriteColor(cycle[i%len(cycle)], n); err != nil {
			return err
		}
	}
	return nil
}

// caption writes s along the bottom edge through the tinyfont adapter.
func caption(d *ili9486.Dev, s string) error {
	disp := d.Displayer()
	y := int16(d.Height() - 4)
	r, g, b := ili9486.Yellow.RGB()
	tinyfont.WriteLine(disp, &proggy.TinySZ8pt7b, 14, y, s, color.RGBA{R: r, G: g, B: b, A: 0xFF})
	return disp.Display()
}

// breathe sweeps the backlight down and up until ctx is done.
func breathe(ctx context.Context, panel *web.Panel) error {
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	level, dir := 255, -1
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		err := panel.Do(func(d *ili9486.Dev) error {
			return d.SetBacklight(uint8(level))
		})
		if err != nil {
			return err
		}
		level += dir
		if level == 0 || level == 255 {
			dir = -dir
		}
	}
}
