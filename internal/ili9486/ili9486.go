package ili9486

import (
	"errors"
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"ilipanel/internal/font"
	appLog "ilipanel/internal/log"
)

// Controller commands used outside the init table.
const (
	cmdSoftReset     = 0x01
	cmdSleepIn       = 0x10
	cmdSleepOut      = 0x11
	cmdInversionOff  = 0x20
	cmdInversionOn   = 0x21
	cmdDisplayOff    = 0x28
	cmdDisplayOn     = 0x29
	cmdColumnAddr    = 0x2A
	cmdRowAddr       = 0x2B
	cmdMemoryWrite   = 0x2C
	cmdMemoryAccess  = 0x36
	cmdDisplayFunc   = 0xB6
	defaultBacklight = 255
)

// Settle delays of the startup sequence.
const (
	resetPulse       = 200 * time.Millisecond
	orientationDelay = 200 * time.Millisecond
	sleepOutDelay    = 120 * time.Millisecond
)

const backlightFreq = 1 * physic.KiloHertz

// Opts configures the control lines and the initial device state.
type Opts struct {
	CS  gpio.PinOut // chip select; nil if the SPI port drives it
	DC  gpio.PinOut // data/command select, required
	RST gpio.PinOut // reset; nil falls back to a software reset
	BL  gpio.PinOut // backlight, driven with PWM; optional

	Orientation Orientation
	// DefaultBacklight is restored at the end of startup. Zero means 255;
	// use KeepBacklightOff to start dark.
	DefaultBacklight uint8
	KeepBacklightOff bool
	Background       Color

	// WideBus sends each register parameter as a 16-bit word (0x00, b), as
	// required by shields that put the controller behind 16-bit shift
	// registers. Pixel words are unaffected.
	WideBus bool

	// InitTable defaults to Waveshare4inch.
	InitTable InitTable
	// Fonts overrides the stock glyph tables.
	Fonts map[font.Size]*font.Table
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Dev is a handle to an ILI9486 controller.
//
// Dev is not safe for concurrent use: callers sharing it between
// goroutines, or sharing its bus with another peripheral, must serialize
// every call themselves.
type Dev struct {
	ch  channel
	rst gpio.PinOut
	bl  gpio.PinOut

	orientation      Orientation
	width, height    int
	background       Color
	backlight        uint8
	defaultBacklight uint8

	table InitTable
	fonts map[font.Size]*font.Table
	sleep func(time.Duration)

	win    window
	halted bool
}

// NewSPI connects to the controller through p at 20MHz, mode 0, 8 bits
// per word, and runs the startup sequence.
func NewSPI(p spi.Port, opts *Opts) (*Dev, error) {
	c, err := p.Connect(20*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("ili9486: failed to connect SPI: %w", err)
	}
	return New(c, opts)
}

// New runs the startup sequence over an established connection:
// hardware reset, backlight off, register initialization, orientation,
// sleep out, display on, clear to background, default backlight.
func New(c spi.Conn, opts *Opts) (*Dev, error) {
	if opts == nil || opts.DC == nil {
		return nil, errors.New("ili9486: DC pin is required")
	}
	if !opts.Orientation.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOrientation, opts.Orientation)
	}

	d := &Dev{
		ch:               channel{c: c, cs: opts.CS, dc: opts.DC, wide: opts.WideBus},
		rst:              opts.RST,
		bl:               opts.BL,
		background:       opts.Background,
		defaultBacklight: opts.DefaultBacklight,
		table:            opts.InitTable,
		fonts:            opts.Fonts,
		sleep:            opts.Sleep,
	}
	if d.defaultBacklight == 0 && !opts.KeepBacklightOff {
		d.defaultBacklight = defaultBacklight
	}
	if d.table == nil {
		d.table = Waveshare4inch
	}
	if d.sleep == nil {
		d.sleep = time.Sleep
	}

	if err := d.start(opts.Orientation); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) start(o Orientation) error {
	if d.ch.cs != nil {
		if err := d.ch.releaseChip(); err != nil {
			return err
		}
	}
	if err := d.resetHardware(); err != nil {
		return err
	}
	if err := d.SetBacklight(0); err != nil {
		return err
	}
	if err := d.initializeRegisters(); err != nil {
		return err
	}
	if err := d.SetOrientation(o); err != nil {
		return err
	}
	d.sleep(orientationDelay)
	if err := d.ch.sendCommand(cmdSleepOut); err != nil {
		return err
	}
	d.sleep(sleepOutDelay)
	if err := d.ch.sendCommand(cmdDisplayOn); err != nil {
		return err
	}
	if err := d.Clear(); err != nil {
		return err
	}
	if err := d.RestoreBacklight(); err != nil {
		return err
	}
	appLog.Debug("ili9486 ready", "orientation", d.orientation, "width", d.width, "height", d.height)
	return nil
}

// resetHardware pulses RST low. Without a reset line the controller gets
// a software reset instead.
func (d *Dev) resetHardware() error {
	if d.rst == nil {
		if err := d.ch.sendCommand(cmdSoftReset); err != nil {
			return err
		}
		d.sleep(resetPulse)
		return nil
	}
	for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := d.rst.Out(l); err != nil {
			return fmt.Errorf("ili9486: failed to drive RST %s: %w", l, err)
		}
		d.sleep(resetPulse)
	}
	return nil
}

// initializeRegisters replays the configured init table.
func (d *Dev) initializeRegisters() error {
	for _, cmd := range d.table {
		if err := d.ch.command(cmd.Reg, cmd.Data...); err != nil {
			return fmt.Errorf("ili9486: init register 0x%02X: %w", cmd.Reg, err)
		}
		if cmd.Delay > 0 {
			d.sleep(cmd.Delay)
		}
	}
	return nil
}

// SetOrientation programs the scan direction registers and recomputes the
// reported width and height. Any open window is invalidated.
func (d *Dev) SetOrientation(o Orientation) error {
	if err := d.usable(); err != nil {
		return err
	}
	if !o.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidOrientation, o)
	}
	regs := scanTable[o]
	d.win.invalidate()
	if err := d.ch.command(cmdDisplayFunc, 0x00, regs.dispFunc); err != nil {
		return err
	}
	if err := d.ch.command(cmdMemoryAccess, regs.madctl); err != nil {
		return err
	}
	d.orientation = o
	d.width, d.height = o.Size()
	appLog.Debug("ili9486 orientation set", "orientation", o, "width", d.width, "height", d.height)
	return nil
}

// Orientation returns the current scan order.
func (d *Dev) Orientation() Orientation {
	return d.orientation
}

// Width in pixels for the current orientation.
func (d *Dev) Width() int {
	return d.width
}

// Height in pixels for the current orientation.
func (d *Dev) Height() int {
	return d.height
}

// Size is Width times Height.
func (d *Dev) Size() int {
	return d.width * d.height
}

// Bounds returns the addressable area for the current orientation.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, d.width, d.height)
}

// SetBacklight drives the backlight with a duty cycle of v/255. Panels
// without PWM on the backlight line only honour 0 and 255.
func (d *Dev) SetBacklight(v uint8) error {
	if err := d.usable(); err != nil {
		return err
	}
	return d.setBacklight(v)
}

func (d *Dev) setBacklight(v uint8) error {
	d.backlight = v
	if d.bl == nil {
		return nil
	}
	duty := gpio.Duty(int64(v) * int64(gpio.DutyMax) / 255)
	err := d.bl.PWM(duty, backlightFreq)
	if err == nil {
		return nil
	}
	switch v {
	case 0:
		err = d.bl.Out(gpio.Low)
	case 255:
		err = d.bl.Out(gpio.High)
	}
	if err != nil {
		return fmt.Errorf("ili9486: failed to set backlight %d: %w", v, err)
	}
	return nil
}

// Backlight returns the last level written.
func (d *Dev) Backlight() uint8 {
	return d.backlight
}

// DefaultBacklight returns the level restored by RestoreBacklight.
func (d *Dev) DefaultBacklight() uint8 {
	return d.defaultBacklight
}

// ChangeDefaultBacklight updates the level restored by RestoreBacklight
// without touching the current level.
func (d *Dev) ChangeDefaultBacklight(v uint8) {
	d.defaultBacklight = v
}

// RestoreBacklight sets the backlight to the default level.
func (d *Dev) RestoreBacklight() error {
	return d.SetBacklight(d.defaultBacklight)
}

// BacklightOff sets the backlight to 0.
func (d *Dev) BacklightOff() error {
	return d.SetBacklight(0)
}

// Background returns the color used by Clear.
func (d *Dev) Background() Color {
	return d.background
}

// SetBackground changes the color used by Clear. Nothing is redrawn.
func (d *Dev) SetBackground(c Color) {
	d.background = c
}

// Invert toggles display inversion.
func (d *Dev) Invert(on bool) error {
	if err := d.usable(); err != nil {
		return err
	}
	if on {
		return d.ch.sendCommand(cmdInversionOn)
	}
	return d.ch.sendCommand(cmdInversionOff)
}

// Halt turns the panel and backlight off and puts the controller to
// sleep. The Dev is unusable afterwards.
func (d *Dev) Halt() error {
	if d.halted {
		return nil
	}
	d.halted = true
	d.win.invalidate()
	if err := d.setBacklight(0); err != nil {
		return err
	}
	if err := d.ch.sendCommand(cmdDisplayOff); err != nil {
		return err
	}
	return d.ch.sendCommand(cmdSleepIn)
}

func (d *Dev) usable() error {
	if d.halted {
		return ErrHalted
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ili9486.Dev{%dx%d, %s}", d.width, d.height, d.orientation)
}
