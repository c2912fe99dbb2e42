package ili9486

import (
	"image/color"

	"tinygo.org/x/drivers"
)

// Displayer adapts a Dev to the tinygo drivers.Displayer interface so that
// tinyfont and tinydraw can render onto the panel. Pixels are written
// immediately; the first error is held until Display.
type Displayer struct {
	d   *Dev
	err error
}

var _ drivers.Displayer = (*Displayer)(nil)

// Displayer returns a drivers.Displayer view of d.
func (d *Dev) Displayer() *Displayer {
	return &Displayer{d: d}
}

// Size returns the current width and height.
func (p *Displayer) Size() (x, y int16) {
	return int16(p.d.width), int16(p.d.height)
}

// SetPixel draws one pixel, skipping pixels off the panel.
func (p *Displayer) SetPixel(x, y int16, c color.RGBA) {
	if p.err != nil {
		return
	}
	p.err = p.d.plot(int(x), int(y), RGB565(c.R, c.G, c.B))
}

// Display reports and clears the first error since the previous call.
func (p *Displayer) Display() error {
	err := p.err
	p.err = nil
	return err
}
