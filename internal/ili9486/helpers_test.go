package ili9486

import (
	"bytes"
	"testing"
	"time"

	"periph.io/x/conn/v3/gpio"

	"ilipanel/internal/sim"
)

type rig struct {
	dev    *Dev
	panel  *sim.Panel
	sleeps []time.Duration
}

// newRig starts a Dev on a simulated panel. edit may adjust the options
// before startup; tracing is on from the first edge.
func newRig(t *testing.T, wide bool, edit func(*Opts)) *rig {
	t.Helper()
	r := &rig{panel: sim.New(wide)}
	opts := &Opts{
		CS:          r.panel.CS(),
		DC:          r.panel.DC(),
		RST:         r.panel.RST(),
		BL:          r.panel.BL(),
		Orientation: L2R_U2D,
		Background:  Black,
		WideBus:     wide,
		Sleep:       func(d time.Duration) { r.sleeps = append(r.sleeps, d) },
	}
	if edit != nil {
		edit(opts)
	}
	r.panel.Trace(true)
	dev, err := New(r.panel.Conn(), opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r.dev = dev
	return r
}

// frame is the traffic of one chip select assertion.
type frame struct {
	dc   gpio.Level
	data []byte
}

func (f frame) equal(o frame) bool {
	return f.dc == o.dc && bytes.Equal(f.data, o.data)
}

func cmdFrame(b byte) frame      { return frame{dc: gpio.Low, data: []byte{b}} }
func dataFrame(b ...byte) frame { return frame{dc: gpio.High, data: b} }

// frames groups recorded events by chip select assertion. It fails the
// test if a transfer happens with chip select released.
func frames(t *testing.T, ev []sim.Event) []frame {
	t.Helper()
	var (
		out      []frame
		selected bool
		dc       gpio.Level
		cur      *frame
	)
	for _, e := range ev {
		switch e.Kind {
		case sim.EventCS:
			selected = e.Level == gpio.Low
			if selected {
				out = append(out, frame{})
				cur = &out[len(out)-1]
			} else {
				cur = nil
			}
		case sim.EventDC:
			dc = e.Level
			if cur != nil {
				cur.dc = dc
			}
		case sim.EventTx:
			if !selected {
				t.Fatalf("transfer % X with CS released", e.Data)
			}
			cur.data = append(cur.data, e.Data...)
		}
	}
	return out
}

// take returns the frames recorded since the last call and resets the trace.
func (r *rig) take(t *testing.T) []frame {
	t.Helper()
	f := frames(t, r.panel.Events())
	r.panel.Trace(true)
	return f
}

func checkFrames(t *testing.T, got, want []frame) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d frames %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].equal(want[i]) {
			t.Errorf("frame %d = {%s % X}, want {%s % X}", i, got[i].dc, got[i].data, want[i].dc, want[i].data)
		}
	}
}

// lit lists the pixels of the panel that differ from the background.
func (r *rig) lit() map[[2]int]bool {
	w, h := r.panel.Size()
	bg := uint16(r.dev.Background())
	out := map[[2]int]bool{}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if r.panel.Pixel(x, y) != bg {
				out[[2]int{x, y}] = true
			}
		}
	}
	return out
}
