package ili9486

import (
	"errors"
	"fmt"

	"ilipanel/internal/font"
)

// Font returns the glyph table used for size.
func (d *Dev) Font(size font.Size) (*font.Table, error) {
	if t, ok := d.fonts[size]; ok && t != nil {
		return t, nil
	}
	t, err := font.Lookup(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFont, size)
	}
	return t, nil
}

// DrawChar draws ch with its top-left corner at (x, y). Lit glyph bits are
// drawn in c; unlit bits are left untouched.
func (d *Dev) DrawChar(x, y int, ch byte, size font.Size, c Color) error {
	if err := d.usable(); err != nil {
		return err
	}
	t, err := d.Font(size)
	if err != nil {
		return err
	}
	return d.drawGlyph(t, x, y, ch, c)
}

func (d *Dev) drawGlyph(t *font.Table, x, y int, ch byte, c Color) error {
	g, err := t.Glyph(ch)
	if err != nil {
		if errors.Is(err, font.ErrNotPrintable) {
			return fmt.Errorf("%w: 0x%02X", ErrUnsupportedChar, ch)
		}
		return err
	}
	for row := 0; row < t.Height; row++ {
		for col := 0; col < t.Width; col++ {
			if !t.Set(g, col, row) {
				continue
			}
			if err := d.plot(x+col, y+row, c); err != nil {
				return err
			}
		}
	}
	return nil
}

// DrawString draws s left to right from (x, y) and returns the x
// coordinate following the last character drawn. Every character advances
// by the fixed cell width. Drawing stops at the first character the font
// cannot render.
func (d *Dev) DrawString(x, y int, s string, size font.Size, c Color) (int, error) {
	if err := d.usable(); err != nil {
		return x, err
	}
	t, err := d.Font(size)
	if err != nil {
		return x, err
	}
	for i := 0; i < len(s); i++ {
		if err := d.drawGlyph(t, x, y, s[i], c); err != nil {
			return x, err
		}
		x += t.Width
	}
	return x, nil
}
