package ili9486

import (
	"fmt"
	"image"
)

// Drawing primitives clip against the panel: pixels outside it are
// skipped and spans are cut to the visible part.

func (d *Dev) visible(x, y int) bool {
	return x >= 0 && y >= 0 && x < d.width && y < d.height
}

// plot sets one pixel if it is on the panel.
func (d *Dev) plot(x, y int, c Color) error {
	if !d.visible(x, y) {
		return nil
	}
	return d.SetPixel(x, y, c)
}

// fillClipped fills the part of [x0,x1) x [y0,y1) that is on the panel.
func (d *Dev) fillClipped(x0, y0, x1, y1 int, c Color) error {
	r := image.Rect(x0, y0, x1, y1).Intersect(d.Bounds())
	if r.Empty() {
		return nil
	}
	return d.Fill(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, c)
}

// span fills the inclusive run x0..x1 on row y.
func (d *Dev) span(x0, x1, y int, c Color) error {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	return d.fillClipped(x0, y, x1+1, y+1, c)
}

// DrawHLine draws length pixels to the right of (x, y), as one window.
func (d *Dev) DrawHLine(x, y, length int, c Color) error {
	if err := d.usable(); err != nil {
		return err
	}
	if length <= 0 {
		return nil
	}
	return d.fillClipped(x, y, x+length, y+1, c)
}

// DrawVLine draws length pixels below (x, y), as one window.
func (d *Dev) DrawVLine(x, y, length int, c Color) error {
	if err := d.usable(); err != nil {
		return err
	}
	if length <= 0 {
		return nil
	}
	return d.fillClipped(x, y, x+1, y+length, c)
}

// DrawLine draws from (x0, y0) to (x1, y1) inclusive with Bresenham's
// algorithm. Each point on the line is plotted exactly once.
func (d *Dev) DrawLine(x0, y0, x1, y1 int, c Color) error {
	if err := d.usable(); err != nil {
		return err
	}
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if err := d.plot(x0, y0, c); err != nil {
			return err
		}
		if x0 == x1 && y0 == y1 {
			return nil
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// DrawCircle draws a circle of radius r centred on (x, y) with the
// midpoint algorithm, either as an outline or filled with horizontal
// spans. Radius 0 is a single pixel.
func (d *Dev) DrawCircle(x, y, r int, c Color, filled bool) error {
	if err := d.usable(); err != nil {
		return err
	}
	if r < 0 {
		return fmt.Errorf("ili9486: negative radius %d", r)
	}
	if r == 0 {
		return d.plot(x, y, c)
	}

	step := d.octants
	if filled {
		step = d.spans
	}
	p, q, e := 0, r, 3-2*r
	for p <= q {
		// p == 0 lands on the cardinal points, drawn below.
		if p > 0 {
			if err := step(x, y, p, q, c); err != nil {
				return err
			}
		}
		if e <= 0 {
			e += 4*p + 6
		} else {
			e += 4*(p-q) + 10
			q--
		}
		p++
	}

	if filled {
		if err := d.span(x-r, x+r, y, c); err != nil {
			return err
		}
		if err := d.plot(x, y-r, c); err != nil {
			return err
		}
		return d.plot(x, y+r, c)
	}
	for _, pt := range [4][2]int{{x, y - r}, {x, y + r}, {x - r, y}, {x + r, y}} {
		if err := d.plot(pt[0], pt[1], c); err != nil {
			return err
		}
	}
	return nil
}

// octants plots the eight reflections of (p, q), once each.
func (d *Dev) octants(x, y, p, q int, c Color) error {
	pts := [][2]int{
		{x + p, y + q}, {x - p, y + q}, {x + p, y - q}, {x - p, y - q},
		{x + q, y + p}, {x - q, y + p}, {x + q, y - p}, {x - q, y - p},
	}
	if p == q {
		pts = pts[:4]
	}
	for _, pt := range pts {
		if err := d.plot(pt[0], pt[1], c); err != nil {
			return err
		}
	}
	return nil
}

// spans joins the reflections of (p, q) with four horizontal runs.
func (d *Dev) spans(x, y, p, q int, c Color) error {
	rows := [][3]int{
		{x - p, x + p, y - q}, {x - p, x + p, y + q},
		{x - q, x + q, y - p}, {x - q, x + q, y + p},
	}
	if p == q {
		rows = rows[:2]
	}
	for _, r := range rows {
		if err := d.span(r[0], r[1], r[2], c); err != nil {
			return err
		}
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
