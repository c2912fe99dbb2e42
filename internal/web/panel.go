package web

import (
	"errors"
	"io"
	"sync"

	"ilipanel/internal/ili9486"
	"ilipanel/internal/sim"
)

// ErrNoPreview is returned by WritePNG on real hardware.
var ErrNoPreview = errors.New("web: preview needs the simulated panel")

// Panel is the one critical section around a Dev. HTTP handlers, cron
// jobs and the agenda renderer all go through Do.
type Panel struct {
	mu  sync.Mutex
	dev *ili9486.Dev
	sim *sim.Panel
}

// NewPanel wraps dev. s is the simulated controller behind dev, or nil.
func NewPanel(dev *ili9486.Dev, s *sim.Panel) *Panel {
	return &Panel{dev: dev, sim: s}
}

// Do runs fn with exclusive use of the device.
func (p *Panel) Do(fn func(d *ili9486.Dev) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p.dev)
}

// Simulated reports whether the panel is the software controller.
func (p *Panel) Simulated() bool {
	return p.sim != nil
}

// WritePNG writes what the simulated panel currently shows.
func (p *Panel) WritePNG(w io.Writer) error {
	if p.sim == nil {
		return ErrNoPreview
	}
	return p.sim.WritePNG(w)
}
