package main

import (
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"ilipanel/internal/config"
	"ilipanel/internal/ili9486"
	appLog "ilipanel/internal/log"
	"ilipanel/internal/sim"
)

// panelOpts maps the panel section of the config onto driver options.
// Pins are filled in by the caller.
func panelOpts(pc config.PanelConfig) (*ili9486.Opts, error) {
	o, err := ili9486.ParseOrientation(pc.Orientation)
	if err != nil {
		return nil, err
	}
	bg, err := ili9486.ParseColor(pc.Background)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	opts := &ili9486.Opts{
		Orientation: o,
		Background:  bg,
		WideBus:     pc.WideBus,
	}
	if bl := pc.DefaultBacklight; bl != nil {
		if *bl == 0 {
			opts.KeepBacklightOff = true
		}
		opts.DefaultBacklight = uint8(*bl)
	}
	return opts, nil
}

// openHardware brings up the panel on the host's SPI port and GPIO lines.
func openHardware(pc config.PanelConfig) (*ili9486.Dev, io.Closer, error) {
	opts, err := panelOpts(pc)
	if err != nil {
		return nil, nil, err
	}

	if _, err := host.Init(); err != nil {
		return nil, nil, fmt.Errorf("periph host init: %w", err)
	}

	pins := []struct {
		name string
		dst  *gpio.PinOut
		need bool
	}{
		{pc.Pins.CS, &opts.CS, false},
		{pc.Pins.DC, &opts.DC, true},
		{pc.Pins.RST, &opts.RST, false},
		{pc.Pins.BL, &opts.BL, false},
	}
	for _, p := range pins {
		if p.name == "" {
			if p.need {
				return nil, nil, fmt.Errorf("data/command pin not configured")
			}
			continue
		}
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			return nil, nil, fmt.Errorf("gpio %s not found", p.name)
		}
		*p.dst = pin
	}

	port, err := spireg.Open(pc.SPI)
	if err != nil {
		return nil, nil, fmt.Errorf("open spi %q: %w", pc.SPI, err)
	}
	if pc.SPIHz > 0 {
		if err := port.LimitSpeed(physic.Frequency(pc.SPIHz) * physic.Hertz); err != nil {
			port.Close()
			return nil, nil, fmt.Errorf("limit spi speed: %w", err)
		}
	}

	dev, err := ili9486.NewSPI(port, opts)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	appLog.Info("panel ready", "dev", dev.String(), "spi", port.String())
	return dev, port, nil
}

// openSim brings up the driver against the software controller.
func openSim(pc config.PanelConfig) (*ili9486.Dev, *sim.Panel, io.Closer, error) {
	opts, err := panelOpts(pc)
	if err != nil {
		return nil, nil, nil, err
	}
	sp := sim.New(pc.WideBus)
	opts.CS = sp.CS()
	opts.DC = sp.DC()
	opts.RST = sp.RST()
	opts.BL = sp.BL()
	opts.Sleep = func(time.Duration) {}

	var port spi.PortCloser = sp.Port()
	dev, err := ili9486.NewSPI(port, opts)
	if err != nil {
		return nil, nil, nil, err
	}
	appLog.Info("simulated panel ready", "dev", dev.String())
	return dev, sp, port, nil
}
