package ili9486

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// maxChunk bounds a single bus transfer; spidev rejects larger buffers by
// default.
const maxChunk = 4096

// channel frames command and data bytes for the controller. Every byte
// kind is framed by its own chip select pulse except pixel streams, which
// hold chip select across the whole run.
type channel struct {
	c    spi.Conn
	cs   gpio.PinOut // nil when the port drives chip select itself
	dc   gpio.PinOut
	wide bool // register parameters travel as 16-bit words

	buf []byte
}

func (ch *channel) selectChip() error {
	if ch.cs == nil {
		return nil
	}
	if err := ch.cs.Out(gpio.Low); err != nil {
		return fmt.Errorf("ili9486: failed to assert CS: %w", err)
	}
	return nil
}

func (ch *channel) releaseChip() error {
	if ch.cs == nil {
		return nil
	}
	if err := ch.cs.Out(gpio.High); err != nil {
		return fmt.Errorf("ili9486: failed to release CS: %w", err)
	}
	return nil
}

// framed runs one transfer with chip select asserted and the data/command
// line at level. Chip select is released on every path.
func (ch *channel) framed(level gpio.Level, tx func() error) (err error) {
	if err := ch.selectChip(); err != nil {
		return err
	}
	defer func() {
		if rerr := ch.releaseChip(); err == nil {
			err = rerr
		}
	}()
	if err := ch.dc.Out(level); err != nil {
		return fmt.Errorf("ili9486: failed to drive DC: %w", err)
	}
	return tx()
}

// sendCommand writes a register address with DC low.
func (ch *channel) sendCommand(reg byte) error {
	return ch.framed(gpio.Low, func() error {
		return ch.c.Tx([]byte{reg}, nil)
	})
}

// sendData writes one register parameter with DC high.
func (ch *channel) sendData(b byte) error {
	return ch.framed(gpio.High, func() error {
		if ch.wide {
			return ch.c.Tx([]byte{0x00, b}, nil)
		}
		return ch.c.Tx([]byte{b}, nil)
	})
}

// command writes reg followed by each parameter in its own data frame.
func (ch *channel) command(reg byte, data ...byte) error {
	if err := ch.sendCommand(reg); err != nil {
		return err
	}
	for _, b := range data {
		if err := ch.sendData(b); err != nil {
			return err
		}
	}
	return nil
}

// streamColor sends n copies of c as back to back 16-bit words under a
// single chip select assertion.
func (ch *channel) streamColor(c Color, n int) error {
	if n <= 0 {
		return nil
	}
	return ch.framed(gpio.High, func() error {
		buf := ch.scratch(min(n*2, maxChunk))
		for i := 0; i < len(buf); i += 2 {
			buf[i] = byte(c >> 8)
			buf[i+1] = byte(c)
		}
		for n > 0 {
			words := min(n, len(buf)/2)
			if err := ch.c.Tx(buf[:words*2], nil); err != nil {
				return err
			}
			n -= words
		}
		return nil
	})
}

// streamPixels sends pix under a single chip select assertion.
func (ch *channel) streamPixels(pix []Color) error {
	if len(pix) == 0 {
		return nil
	}
	return ch.framed(gpio.High, func() error {
		buf := ch.scratch(min(len(pix)*2, maxChunk))
		for len(pix) > 0 {
			words := min(len(pix), len(buf)/2)
			for i, c := range pix[:words] {
				buf[2*i] = byte(c >> 8)
				buf[2*i+1] = byte(c)
			}
			if err := ch.c.Tx(buf[:words*2], nil); err != nil {
				return err
			}
			pix = pix[words:]
		}
		return nil
	})
}

func (ch *channel) scratch(n int) []byte {
	if cap(ch.buf) < n {
		ch.buf = make([]byte, n)
	}
	return ch.buf[:n]
}
