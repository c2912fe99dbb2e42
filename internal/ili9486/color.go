package ili9486

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is a pixel in the controller's native 16 bits per pixel format,
// 5 bits red, 6 bits green, 5 bits blue, sent most significant byte first.
type Color uint16

const (
	Black   Color = 0x0000
	White   Color = 0xFFFF
	Red     Color = 0xF800
	Green   Color = 0x07E0
	Blue    Color = 0x001F
	Cyan    Color = 0x07FF
	Magenta Color = 0xF81F
	Yellow  Color = 0xFFE0
)

// RGB565 packs 8-bit channels into a Color, truncating the low bits.
func RGB565(r, g, b uint8) Color {
	return Color(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

// RGB expands c back to 8-bit channels.
func (c Color) RGB() (r, g, b uint8) {
	rr := uint16(c>>11) & 0x1F
	gg := uint16(c>>5) & 0x3F
	bb := uint16(c) & 0x1F
	return uint8(rr * 255 / 31), uint8(gg * 255 / 63), uint8(bb * 255 / 31)
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.RGB()
	return uint32(r8) * 0x101, uint32(g8) * 0x101, uint32(b8) * 0x101, 0xFFFF
}

func (c Color) String() string {
	return fmt.Sprintf("0x%04X", uint16(c))
}

func toColor(c color.Color) color.Color {
	if n, ok := c.(Color); ok {
		return n
	}
	r, g, b, _ := c.RGBA()
	return RGB565(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// ColorModel converts any color to the native pixel format. Alpha is ignored.
var ColorModel = color.ModelFunc(toColor)

// ParseColor accepts a packed value ("0xF800", "63488") or "#rrggbb".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("ili9486: bad color %q: %w", s, err)
		}
		return RGB565(uint8(v>>16), uint8(v>>8), uint8(v)), nil
	}
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("ili9486: bad color %q: %w", s, err)
	}
	return Color(v), nil
}
