//go:build cgo

// Package window shows a simulated panel in a desktop window.
package window

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"

	"ilipanel/internal/sim"
)

// Run opens a window mirroring p and blocks until it is closed or step
// returns an error. step runs once per tick on the window's goroutine and
// may be nil.
func Run(title string, p *sim.Panel, scale int, step func() error) error {
	if scale < 1 {
		scale = 1
	}
	w, h := p.Size()
	g := &game{p: p, step: step}
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(w*scale, h*scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(30)
	return ebiten.RunGame(g)
}

type game struct {
	p     *sim.Panel
	frame *image.RGBA
	img   *ebiten.Image
	step  func() error
}

func (g *game) Update() error {
	if g.step != nil {
		if err := g.step(); err != nil {
			return err
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.frame = g.p.Image()
	b := g.frame.Bounds()
	if g.img == nil || g.img.Bounds() != b {
		if g.img != nil {
			g.img.Deallocate()
		}
		g.img = ebiten.NewImage(b.Dx(), b.Dy())
	}
	g.img.WritePixels(g.frame.Pix)
	screen.DrawImage(g.img, nil)
}

// Layout follows the panel, which changes shape when the scan direction
// swaps rows and columns.
func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.p.Size()
}
