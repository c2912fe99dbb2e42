// Package font provides fixed-pitch bitmap font tables in the row-packed
// layout used by the glyph renderer: each glyph is Height rows of
// ceil(Width/8) bytes, most significant bit leftmost, glyphs stored
// consecutively starting at the space character.
//
// The stock tables are rasterized once from tinyfont faces and resampled
// to cell heights of 8, 12, 16, 20 and 24 pixels.
package font

import (
	"errors"
	"fmt"
	"sync"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
	"tinygo.org/x/tinyfont/proggy"
)

// Size selects one of the stock tables.
type Size int

const (
	XS Size = iota
	S
	M
	L
	XL
)

// Height is the cell height of the stock table for s, in pixels.
func (s Size) Height() int {
	switch s {
	case XS:
		return 8
	case S:
		return 12
	case M:
		return 16
	case L:
		return 20
	case XL:
		return 24
	default:
		return 0
	}
}

func (s Size) String() string {
	switch s {
	case XS:
		return "XS"
	case S:
		return "S"
	case M:
		return "M"
	case L:
		return "L"
	case XL:
		return "XL"
	default:
		return fmt.Sprintf("Size(%d)", int(s))
	}
}

// ParseSize accepts the names returned by Size.String.
func ParseSize(name string) (Size, error) {
	for s := XS; s <= XL; s++ {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("font: unknown size %q", name)
}

// ErrNotPrintable is returned for characters outside a table's range.
var ErrNotPrintable = errors.New("font: character outside table range")

// Table is an immutable fixed-pitch glyph table.
type Table struct {
	Width  int    // cell width in pixels
	Height int    // cell height in pixels
	First  byte   // character encoded by the first glyph, normally ' '
	Data   []byte // Height*RowBytes bytes per glyph
}

// RowBytes is the number of bytes holding one glyph row.
func (t *Table) RowBytes() int {
	return (t.Width + 7) / 8
}

// GlyphBytes is the size of one glyph in Data.
func (t *Table) GlyphBytes() int {
	return t.Height * t.RowBytes()
}

// Count is the number of glyphs stored in Data.
func (t *Table) Count() int {
	if t.GlyphBytes() == 0 {
		return 0
	}
	return len(t.Data) / t.GlyphBytes()
}

// Last is the highest character the table encodes.
func (t *Table) Last() byte {
	return t.First + byte(t.Count()-1)
}

// Glyph returns the packed rows of ch. Characters below First or past the
// end of Data are rejected instead of reading a neighbouring glyph.
func (t *Table) Glyph(ch byte) ([]byte, error) {
	if ch < t.First {
		return nil, fmt.Errorf("%w: 0x%02X", ErrNotPrintable, ch)
	}
	n := t.GlyphBytes()
	off := int(ch-t.First) * n
	if n == 0 || off+n > len(t.Data) {
		return nil, fmt.Errorf("%w: 0x%02X", ErrNotPrintable, ch)
	}
	return t.Data[off : off+n], nil
}

// Set reports whether pixel (col, row) of a glyph returned by Glyph is lit.
func (t *Table) Set(glyph []byte, col, row int) bool {
	b := glyph[row*t.RowBytes()+col/8]
	return b&(0x80>>(col%8)) != 0
}

var (
	stockOnce sync.Once
	stock     map[Size]*Table
)

// sources backs the stock sizes.
var sources = map[Size]tinyfont.Fonter{
	XS: &proggy.TinySZ8pt7b,
	S:  &freemono.Regular9pt7b,
	M:  &freemono.Regular12pt7b,
	L:  &freemono.Regular18pt7b,
	XL: &freemono.Regular24pt7b,
}

// Lookup returns the stock table for s. Its cell is s.Height() pixels tall.
func Lookup(s Size) (*Table, error) {
	stockOnce.Do(func() {
		stock = make(map[Size]*Table, len(sources))
		for size, f := range sources {
			stock[size] = FromFonter(f, ' ', '~').Resize(size.Height())
		}
	})
	t, ok := stock[s]
	if !ok {
		return nil, fmt.Errorf("font: no table for size %s", s)
	}
	return t, nil
}
