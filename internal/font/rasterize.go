package font

import (
	"image/color"

	"tinygo.org/x/tinyfont"
)

// FromFonter rasterizes the glyphs first..last of a tinyfont face into a
// fixed-pitch table. The cell is the widest advance by the tallest ascent
// plus the deepest descent, with a shared baseline; pixels that fall
// outside the cell are dropped.
func FromFonter(f tinyfont.Fonter, first, last byte) *Table {
	width, ascent, descent := 0, 0, 0
	for ch := int(first); ch <= int(last); ch++ {
		info := f.GetGlyph(rune(ch)).Info()
		width = max(width, int(info.XAdvance))
		ascent = max(ascent, -int(info.YOffset))
		descent = max(descent, int(info.YOffset)+int(info.Height))
	}

	t := &Table{Width: width, Height: ascent + descent, First: first}
	if t.Width == 0 || t.Height == 0 {
		return t
	}
	t.Data = make([]byte, (int(last)-int(first)+1)*t.GlyphBytes())

	cell := &cellCapture{t: t}
	for ch := int(first); ch <= int(last); ch++ {
		cell.glyph = t.Data[(ch-int(first))*t.GlyphBytes():][:t.GlyphBytes()]
		f.GetGlyph(rune(ch)).Draw(cell, 0, int16(ascent), color.RGBA{A: 0xFF})
	}
	return t
}

// Resize returns t resampled to the given cell height, the width scaled by
// the same factor. A pixel of the result is lit when at least a quarter of
// the source area under it is lit.
func (t *Table) Resize(height int) *Table {
	if height <= 0 || t.Height == 0 || height == t.Height {
		return t
	}
	width := max(1, (t.Width*height+t.Height/2)/t.Height)
	out := &Table{Width: width, Height: height, First: t.First}
	out.Data = make([]byte, t.Count()*out.GlyphBytes())

	for i := 0; i < t.Count(); i++ {
		src := t.Data[i*t.GlyphBytes():][:t.GlyphBytes()]
		dst := out.Data[i*out.GlyphBytes():][:out.GlyphBytes()]
		for row := 0; row < height; row++ {
			y0, y1 := cover(row, height, t.Height)
			for col := 0; col < width; col++ {
				x0, x1 := cover(col, width, t.Width)
				lit := 0
				for y := y0; y < y1; y++ {
					for x := x0; x < x1; x++ {
						if t.Set(src, x, y) {
							lit++
						}
					}
				}
				if lit > 0 && 4*lit >= (x1-x0)*(y1-y0) {
					dst[row*out.RowBytes()+col/8] |= 0x80 >> (col % 8)
				}
			}
		}
	}
	return out
}

// cover returns the source pixels [lo, hi) under pixel i of n when m source
// pixels are mapped onto n.
func cover(i, n, m int) (lo, hi int) {
	lo = i * m / n
	hi = ((i+1)*m + n - 1) / n
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// cellCapture is a drivers.Displayer that packs lit pixels into one glyph.
type cellCapture struct {
	t     *Table
	glyph []byte
}

func (c *cellCapture) Size() (x, y int16) {
	return int16(c.t.Width), int16(c.t.Height)
}

func (c *cellCapture) SetPixel(x, y int16, _ color.RGBA) {
	col, row := int(x), int(y)
	if col < 0 || col >= c.t.Width || row < 0 || row >= c.t.Height {
		return
	}
	c.glyph[row*c.t.RowBytes()+col/8] |= 0x80 >> (col % 8)
}

func (c *cellCapture) Display() error {
	return nil
}
