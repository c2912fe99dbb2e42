// Package sim is a software ILI9486. It decodes the chip select, data/command
// and SPI byte stream exactly as the controller would and keeps the
// resulting frame memory, so the driver can run without hardware and tests
// can check pixels instead of bytes.
package sim

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	longSide  = 480
	shortSide = 320
)

// Register addresses the simulator interprets.
const (
	regSoftReset  = 0x01
	regSleepIn    = 0x10
	regSleepOut   = 0x11
	regInvertOff  = 0x20
	regInvertOn   = 0x21
	regDisplayOff = 0x28
	regDisplayOn  = 0x29
	regColumn     = 0x2A
	regRow        = 0x2B
	regMemWrite   = 0x2C
	regMemAccess  = 0x36
	madctlMV      = 0x20
)

// Event kinds recorded while tracing.
const (
	EventCS  = "cs"
	EventDC  = "dc"
	EventRST = "rst"
	EventBL  = "bl"
	EventTx  = "tx"
)

// Event is one observed line change or bus transfer.
type Event struct {
	Kind  string
	Level gpio.Level // cs, dc and rst
	Duty  gpio.Duty  // bl
	Data  []byte     // tx
}

func (e Event) String() string {
	switch e.Kind {
	case EventTx:
		return fmt.Sprintf("tx % X", e.Data)
	case EventBL:
		return fmt.Sprintf("bl %s", e.Duty)
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.Level)
	}
}

// Panel is the simulated controller plus its control lines.
type Panel struct {
	mu sync.Mutex

	cs, dc, rst, bl *Pin
	wide            bool

	// decoder state
	selected bool
	dcLevel  gpio.Level
	reg      byte
	params   []byte
	pending  []byte // partial wide parameter or pixel word

	// controller state
	madctl   byte
	awake    bool
	on       bool
	inverted bool
	duty     gpio.Duty

	width, height  int
	xs, xe, ys, ye int
	cx, cy         int
	fb             []uint16

	pixels   int
	commands []byte
	trace    bool
	events   []Event
	failNext error
}

// New returns a panel in its power-on state. wide selects 16-bit register
// parameters.
func New(wide bool) *Panel {
	p := &Panel{
		cs:   newPin("LCD_CS", 8),
		dc:   newPin("LCD_DC", 25),
		rst:  newPin("LCD_RST", 27),
		bl:   newPin("LCD_BL", 18),
		wide: wide,
	}
	p.cs.onOut = p.onCS
	p.dc.onOut = p.onDC
	p.rst.onOut = p.onReset
	p.bl.onPWM = p.onBacklight
	p.bl.onOut = func(l gpio.Level) {
		if l {
			p.onBacklight(gpio.DutyMax)
		} else {
			p.onBacklight(0)
		}
	}
	// Until CS is driven the chip counts as hard-wired selected.
	p.selected = true
	p.resetLocked()
	return p
}

// CS returns the chip select line.
func (p *Panel) CS() *Pin { return p.cs }

// DC returns the data/command line.
func (p *Panel) DC() *Pin { return p.dc }

// RST returns the reset line.
func (p *Panel) RST() *Pin { return p.rst }

// BL returns the backlight line.
func (p *Panel) BL() *Pin { return p.bl }

func (p *Panel) resetLocked() {
	p.madctl = 0
	p.awake = false
	p.on = false
	p.inverted = false
	p.reg = 0
	p.params = p.params[:0]
	p.pending = p.pending[:0]
	p.resize(shortSide, longSide)
}

func (p *Panel) resize(w, h int) {
	if w == p.width && h == p.height && p.fb != nil {
		return
	}
	p.width, p.height = w, h
	p.fb = make([]uint16, w*h)
	p.xs, p.xe, p.ys, p.ye = 0, w-1, 0, h-1
	p.cx, p.cy = 0, 0
}

func (p *Panel) record(e Event) {
	if p.trace {
		p.events = append(p.events, e)
	}
}

func (p *Panel) onCS(l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Event{Kind: EventCS, Level: l})
	p.selected = l == gpio.Low
	// Deselecting drops a half transferred word.
	if !p.selected {
		p.pending = p.pending[:0]
	}
}

func (p *Panel) onDC(l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Event{Kind: EventDC, Level: l})
	p.dcLevel = l
}

func (p *Panel) onReset(l gpio.Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Event{Kind: EventRST, Level: l})
	if l == gpio.Low {
		p.resetLocked()
	}
}

func (p *Panel) onBacklight(d gpio.Duty) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record(Event{Kind: EventBL, Duty: d})
	p.duty = d
}

// Trace starts recording events, discarding earlier ones.
func (p *Panel) Trace(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trace = on
	p.events = nil
}

// Events returns the events recorded since tracing started.
func (p *Panel) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Commands returns every command byte received since power-on.
func (p *Panel) Commands() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.commands...)
}

// Pixels returns the number of pixel words written to frame memory.
func (p *Panel) Pixels() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pixels
}

// FailNext makes the next transfer return err without reaching the panel.
func (p *Panel) FailNext(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failNext = err
}

// tx feeds one transfer through the decoder.
func (p *Panel) tx(w []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failNext; err != nil {
		p.failNext = nil
		return err
	}
	p.record(Event{Kind: EventTx, Data: append([]byte(nil), w...)})
	if !p.selected {
		return nil
	}
	for _, b := range w {
		if p.dcLevel == gpio.Low {
			p.command(b)
		} else {
			p.data(b)
		}
	}
	return nil
}

func (p *Panel) command(b byte) {
	p.commands = append(p.commands, b)
	p.reg = b
	p.params = p.params[:0]
	p.pending = p.pending[:0]
	switch b {
	case regSoftReset:
		p.resetLocked()
	case regSleepIn:
		p.awake = false
	case regSleepOut:
		p.awake = true
	case regInvertOff:
		p.inverted = false
	case regInvertOn:
		p.inverted = true
	case regDisplayOff:
		p.on = false
	case regDisplayOn:
		p.on = true
	case regMemWrite:
		p.cx, p.cy = p.xs, p.ys
	}
}

func (p *Panel) data(b byte) {
	if p.reg == regMemWrite {
		p.pending = append(p.pending, b)
		if len(p.pending) == 2 {
			p.writePixel(uint16(p.pending[0])<<8 | uint16(p.pending[1]))
			p.pending = p.pending[:0]
		}
		return
	}
	if p.wide {
		p.pending = append(p.pending, b)
		if len(p.pending) < 2 {
			return
		}
		b = p.pending[1]
		p.pending = p.pending[:0]
	}
	p.params = append(p.params, b)
	p.param()
}

// param applies a register once its parameters are complete.
func (p *Panel) param() {
	switch p.reg {
	case regColumn:
		if len(p.params) == 4 {
			p.xs = int(p.params[0])<<8 | int(p.params[1])
			p.xe = int(p.params[2])<<8 | int(p.params[3])
		}
	case regRow:
		if len(p.params) == 4 {
			p.ys = int(p.params[0])<<8 | int(p.params[1])
			p.ye = int(p.params[2])<<8 | int(p.params[3])
		}
	case regMemAccess:
		if len(p.params) == 1 {
			p.madctl = p.params[0]
			if p.madctl&madctlMV != 0 {
				p.resize(longSide, shortSide)
			} else {
				p.resize(shortSide, longSide)
			}
		}
	}
}

// writePixel stores c at the cursor and advances it through the window,
// wrapping to the window origin after the last pixel.
func (p *Panel) writePixel(c uint16) {
	p.pixels++
	if p.cx >= 0 && p.cx < p.width && p.cy >= 0 && p.cy < p.height {
		p.fb[p.cy*p.width+p.cx] = c
	}
	p.cx++
	if p.cx > p.xe {
		p.cx = p.xs
		p.cy++
		if p.cy > p.ye {
			p.cy = p.ys
		}
	}
}

// Size returns the logical frame size for the current scan direction.
func (p *Panel) Size() (w, h int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// Pixel returns the raw frame memory word at (x, y).
func (p *Panel) Pixel(x, y int) uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if x < 0 || y < 0 || x >= p.width || y >= p.height {
		return 0
	}
	return p.fb[y*p.width+x]
}

// State summarizes the controller flags.
type State struct {
	Awake     bool
	On        bool
	Inverted  bool
	MADCTL    byte
	Backlight uint8
}

// State returns the current controller flags.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return State{
		Awake:     p.awake,
		On:        p.on,
		Inverted:  p.inverted,
		MADCTL:    p.madctl,
		Backlight: uint8(int64(p.duty) * 255 / int64(gpio.DutyMax)),
	}
}

// Image renders what a viewer would see: black while the panel is off or
// asleep, with inversion applied. Backlight level is not modelled.
func (p *Panel) Image() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	lit := p.on && p.awake
	for i, c := range p.fb {
		j := i * 4
		img.Pix[j+3] = 0xFF
		if !lit {
			continue
		}
		if p.inverted {
			c = ^c
		}
		img.Pix[j], img.Pix[j+1], img.Pix[j+2] = rgb888(c)
	}
	return img
}

// WritePNG encodes Image as PNG.
func (p *Panel) WritePNG(w io.Writer) error {
	return png.Encode(w, p.Image())
}

func rgb888(c uint16) (r, g, b uint8) {
	r = uint8(c>>11) & 0x1F
	g = uint8(c>>5) & 0x3F
	b = uint8(c) & 0x1F
	return r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2
}

// RGBA converts a raw frame memory word for comparisons in tests.
func RGBA(c uint16) color.RGBA {
	r, g, b := rgb888(c)
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// Conn is the SPI side of the panel.
type Conn struct {
	p *Panel
}

// Conn returns a connection that feeds the panel.
func (p *Panel) Conn() *Conn {
	return &Conn{p: p}
}

func (c *Conn) String() string { return "sim-ili9486" }

// Tx sends w to the panel. The controller never answers.
func (c *Conn) Tx(w, r []byte) error {
	for i := range r {
		r[i] = 0
	}
	return c.p.tx(w)
}

// TxPackets sends each packet in turn.
func (c *Conn) TxPackets(pkts []spi.Packet) error {
	for _, pkt := range pkts {
		if err := c.Tx(pkt.W, pkt.R); err != nil {
			return err
		}
	}
	return nil
}

// Duplex implements conn.Conn.
func (c *Conn) Duplex() conn.Duplex { return conn.Full }

// Halt implements conn.Resource.
func (c *Conn) Halt() error { return nil }

var _ spi.Conn = (*Conn)(nil)

// Port hands out Conns to the panel, as spireg.Open would for hardware.
type Port struct {
	p     *Panel
	limit physic.Frequency
}

// Port returns an spi.Port backed by the panel.
func (p *Panel) Port() *Port {
	return &Port{p: p}
}

func (s *Port) String() string { return "sim-spi" }

// Connect accepts any mode and 8 bits per word.
func (s *Port) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	if bits != 8 {
		return nil, fmt.Errorf("sim: unsupported %d bits per word", bits)
	}
	return s.p.Conn(), nil
}

// LimitSpeed records the limit; the simulator has no clock.
func (s *Port) LimitSpeed(f physic.Frequency) error {
	s.limit = f
	return nil
}

// Close implements spi.PortCloser.
func (s *Port) Close() error { return nil }

var _ spi.PortCloser = (*Port)(nil)
