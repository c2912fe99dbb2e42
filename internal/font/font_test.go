package font

import (
	"errors"
	"image/color"
	"testing"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// barFace draws each printable glyph as a vertical bar in column ch%6.
type barFace struct {
	g barGlyph
}

type barGlyph struct {
	r rune
}

func (g *barGlyph) Draw(d drivers.Displayer, x, y int16, c color.RGBA) {
	if g.r == ' ' {
		return
	}
	col := int16(g.r % 6)
	for row := int16(0); row < 8; row++ {
		d.SetPixel(x+col, y-7+row, c)
	}
	// Stray pixel below the cell must be clipped.
	d.SetPixel(x, y+5, c)
}

func (g *barGlyph) Info() tinyfont.GlyphInfo {
	return tinyfont.GlyphInfo{
		Rune:     g.r,
		Width:    6,
		Height:   8,
		XAdvance: 6,
		XOffset:  0,
		YOffset:  -7,
	}
}

func (f *barFace) GetYAdvance() uint8 { return 9 }

func (f *barFace) GetGlyph(r rune) tinyfont.Glypher {
	f.g.r = r
	return &f.g
}

func TestFromFonterGeometry(t *testing.T) {
	tbl := FromFonter(&barFace{}, ' ', '~')

	if tbl.Width != 6 || tbl.Height != 8 {
		t.Fatalf("cell = %dx%d, want 6x8", tbl.Width, tbl.Height)
	}
	if tbl.RowBytes() != 1 {
		t.Errorf("RowBytes() = %d, want 1", tbl.RowBytes())
	}
	if tbl.Count() != 95 {
		t.Errorf("Count() = %d, want 95", tbl.Count())
	}
	if tbl.Last() != '~' {
		t.Errorf("Last() = %q, want '~'", tbl.Last())
	}
}

func TestFromFonterBits(t *testing.T) {
	tbl := FromFonter(&barFace{}, ' ', '~')

	space, err := tbl.Glyph(' ')
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range space {
		if b != 0 {
			t.Errorf("space row %d = 0x%02X, want 0", i, b)
		}
	}

	g, err := tbl.Glyph('A') // 'A' % 6 == 5
	if err != nil {
		t.Fatal(err)
	}
	for row := 0; row < tbl.Height; row++ {
		for col := 0; col < tbl.Width; col++ {
			want := col == 5 && row < 8
			if got := tbl.Set(g, col, row); got != want {
				t.Errorf("'A' pixel (%d,%d) = %v, want %v", col, row, got, want)
			}
		}
	}
	if g[0] != 0x04 {
		t.Errorf("'A' row 0 = 0x%02X, want 0x04", g[0])
	}
}

func TestGlyphRange(t *testing.T) {
	tbl := FromFonter(&barFace{}, ' ', '~')

	for _, ch := range []byte{0x00, 0x1F, 0x7F, 0xFF} {
		if _, err := tbl.Glyph(ch); !errors.Is(err, ErrNotPrintable) {
			t.Errorf("Glyph(0x%02X) error = %v, want ErrNotPrintable", ch, err)
		}
	}
}

func TestResize(t *testing.T) {
	tbl := FromFonter(&barFace{}, ' ', '~')

	small := tbl.Resize(4)
	if small.Width != 3 || small.Height != 4 || small.Count() != tbl.Count() || small.First != ' ' {
		t.Fatalf("Resize(4) = %dx%d, %d glyphs from %q", small.Width, small.Height, small.Count(), small.First)
	}
	g, err := small.Glyph('A') // source column 5 lands in column 2
	if err != nil {
		t.Fatal(err)
	}
	for row := 0; row < small.Height; row++ {
		for col := 0; col < small.Width; col++ {
			if got, want := small.Set(g, col, row), col == 2; got != want {
				t.Errorf("'A' pixel (%d,%d) = %v, want %v", col, row, got, want)
			}
		}
	}

	big := tbl.Resize(16)
	if big.Width != 12 || big.Height != 16 {
		t.Fatalf("Resize(16) = %dx%d, want 12x16", big.Width, big.Height)
	}
	g, _ = big.Glyph('A')
	if !big.Set(g, 10, 0) || !big.Set(g, 11, 15) || big.Set(g, 9, 8) {
		t.Error("upscaled bar not in columns 10-11")
	}

	if tbl.Resize(tbl.Height) != tbl || tbl.Resize(0) != tbl {
		t.Error("Resize to the same or zero height should return the table unchanged")
	}
}

// stockWidths follow from each face's advance scaled to Size.Height.
var stockWidths = map[Size]int{XS: 5, S: 9, M: 11, L: 14, XL: 17}

func TestStockTables(t *testing.T) {
	prevH := 0
	for s := XS; s <= XL; s++ {
		tbl, err := Lookup(s)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", s, err)
		}
		if tbl.Width <= 0 || tbl.Height <= 0 {
			t.Errorf("%s cell = %dx%d", s, tbl.Width, tbl.Height)
		}
		if tbl.Count() != 95 {
			t.Errorf("%s Count() = %d, want 95", s, tbl.Count())
		}
		if tbl.Height != s.Height() || tbl.Width != stockWidths[s] {
			t.Errorf("%s cell = %dx%d, want %dx%d", s, tbl.Width, tbl.Height, stockWidths[s], s.Height())
		}
		if tbl.Height <= prevH {
			t.Errorf("%s height %d not above previous size %d", s, tbl.Height, prevH)
		}
		prevH = tbl.Height

		g, err := tbl.Glyph('M')
		if err != nil {
			t.Fatal(err)
		}
		lit := 0
		for _, b := range g {
			if b != 0 {
				lit++
			}
		}
		if lit == 0 {
			t.Errorf("%s glyph 'M' is blank", s)
		}
	}

	if _, err := Lookup(Size(42)); err == nil {
		t.Error("Lookup(42) should fail")
	}
}

func TestParseSize(t *testing.T) {
	for s := XS; s <= XL; s++ {
		got, err := ParseSize(s.String())
		if err != nil || got != s {
			t.Errorf("ParseSize(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseSize("XXL"); err == nil {
		t.Error("ParseSize(XXL) should fail")
	}
}
