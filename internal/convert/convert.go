// Package convert turns decoded images into RGB565 pixel runs for the
// panel's WriteBuffer.
package convert

import (
	"fmt"
	"image"
	"image/color"

	"ilipanel/internal/ili9486"
)

// Crop returns the part of b no larger than w x h, centred on both axes.
func Crop(b image.Rectangle, w, h int) image.Rectangle {
	if dx := b.Dx() - w; dx > 0 {
		b.Min.X += dx / 2
		b.Max.X = b.Min.X + w
	}
	if dy := b.Dy() - h; dy > 0 {
		b.Min.Y += dy / 2
		b.Max.Y = b.Min.Y + h
	}
	return b
}

// Pixels converts the r region of img to row-major native pixels.
// Pixels with alpha below 128 take the color bg.
func Pixels(img image.Image, r image.Rectangle, bg ili9486.Color) ([]ili9486.Color, error) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("convert: region %v outside image %v", r, img.Bounds())
	}
	out := make([]ili9486.Color, 0, r.Dx()*r.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		// Walk Pix directly instead of calling At per pixel.
		for y := r.Min.Y; y < r.Max.Y; y++ {
			i := src.PixOffset(r.Min.X, y)
			for x := r.Min.X; x < r.Max.X; x++ {
				out = append(out, pixel(src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3], bg))
				i += 4
			}
		}
	case *image.RGBA:
		// Channels are premultiplied by alpha.
		for y := r.Min.Y; y < r.Max.Y; y++ {
			i := src.PixOffset(r.Min.X, y)
			for x := r.Min.X; x < r.Max.X; x++ {
				out = append(out, pixel(unpremul(src.Pix[i], src.Pix[i+3]), unpremul(src.Pix[i+1], src.Pix[i+3]),
					unpremul(src.Pix[i+2], src.Pix[i+3]), src.Pix[i+3], bg))
				i += 4
			}
		}
	default:
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
				out = append(out, pixel(c.R, c.G, c.B, c.A, bg))
			}
		}
	}
	return out, nil
}

func pixel(r, g, b, a uint8, bg ili9486.Color) ili9486.Color {
	if a < 128 {
		return bg
	}
	return ili9486.RGB565(r, g, b)
}

func unpremul(c, a uint8) uint8 {
	if a == 0 || a == 0xFF {
		return c
	}
	return uint8(min(uint32(c)*0xFF/uint32(a), 0xFF))
}
