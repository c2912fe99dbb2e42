package ili9486

import "fmt"

// window mirrors the controller's address window and pixel cursor. It is
// the only record of where the next pixel word lands.
type window struct {
	open           bool
	x0, y0, x1, y1 int
	remaining      int
}

func (w *window) invalidate() {
	*w = window{}
}

// OpenWindow addresses the half-open rectangle [x0,x1) x [y0,y1) and
// issues a memory write. Reversed corners are swapped. Subsequent pixel
// words fill the window in scan order, starting top-left.
func (d *Dev) OpenWindow(x0, y0, x1, y1 int) error {
	if err := d.usable(); err != nil {
		return err
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if x0 < 0 || y0 < 0 || x1 > d.width || y1 > d.height {
		return fmt.Errorf("%w: window (%d,%d)-(%d,%d) on %dx%d", ErrOutOfBounds, x0, y0, x1, y1, d.width, d.height)
	}
	if x0 == x1 || y0 == y1 {
		return fmt.Errorf("%w: (%d,%d)-(%d,%d)", ErrEmptyWindow, x0, y0, x1, y1)
	}

	d.win.invalidate()
	if err := d.ch.command(cmdColumnAddr, addrBytes(x0, x1)...); err != nil {
		return err
	}
	if err := d.ch.command(cmdRowAddr, addrBytes(y0, y1)...); err != nil {
		return err
	}
	if err := d.ch.sendCommand(cmdMemoryWrite); err != nil {
		return err
	}
	d.win = window{
		open:      true,
		x0:        x0,
		y0:        y0,
		x1:        x1,
		y1:        y1,
		remaining: (x1 - x0) * (y1 - y0),
	}
	return nil
}

// addrBytes encodes a column or row range for 0x2A/0x2B: start and
// inclusive end, each high byte first.
func addrBytes(start, end int) []byte {
	last := end - 1
	return []byte{byte(start >> 8), byte(start), byte(last >> 8), byte(last)}
}

// SetCursor opens a 1x1 window at (x, y).
func (d *Dev) SetCursor(x, y int) error {
	return d.OpenWindow(x, y, x+1, y+1)
}

// consume reserves n pixels of the active window.
func (d *Dev) consume(n int) error {
	if !d.win.open {
		return ErrNoWindow
	}
	if n > d.win.remaining {
		rem := d.win.remaining
		d.win.invalidate()
		return fmt.Errorf("%w: %d pixels written, %d left in window", ErrOutOfBounds, n, rem)
	}
	d.win.remaining -= n
	return nil
}

// WriteColor streams n copies of c into the active window under a single
// chip select assertion.
func (d *Dev) WriteColor(c Color, n int) error {
	if err := d.usable(); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("ili9486: negative pixel count %d", n)
	}
	if err := d.consume(n); err != nil {
		return err
	}
	if err := d.ch.streamColor(c, n); err != nil {
		d.win.invalidate()
		return err
	}
	return nil
}

// WriteBuffer streams pix into the active window.
func (d *Dev) WriteBuffer(pix []Color) error {
	if err := d.usable(); err != nil {
		return err
	}
	if err := d.consume(len(pix)); err != nil {
		return err
	}
	if err := d.ch.streamPixels(pix); err != nil {
		d.win.invalidate()
		return err
	}
	return nil
}

// SetPixel writes one pixel. It pays a full window setup per call.
func (d *Dev) SetPixel(x, y int, c Color) error {
	if err := d.SetCursor(x, y); err != nil {
		return err
	}
	return d.WriteColor(c, 1)
}

// Fill paints the half-open rectangle [x0,x1) x [y0,y1). An empty
// rectangle sends nothing.
func (d *Dev) Fill(x0, y0, x1, y1 int, c Color) error {
	if err := d.usable(); err != nil {
		return err
	}
	if x0 == x1 || y0 == y1 {
		return nil
	}
	if err := d.OpenWindow(x0, y0, x1, y1); err != nil {
		return err
	}
	return d.WriteColor(c, d.win.remaining)
}

// Clear fills the panel with the background color.
func (d *Dev) Clear() error {
	return d.ClearColor(d.background)
}

// ClearColor fills the panel with c. The background is unchanged.
func (d *Dev) ClearColor(c Color) error {
	return d.Fill(0, 0, d.width, d.height, c)
}
