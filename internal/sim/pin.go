package sim

import (
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
)

// Pin is a fake output line that reports every level or duty change to
// the panel it belongs to.
type Pin struct {
	*gpiotest.Pin
	onOut func(gpio.Level)
	onPWM func(gpio.Duty)
}

func newPin(name string, num int) *Pin {
	return &Pin{Pin: &gpiotest.Pin{N: name, Num: num, Fn: "Out"}}
}

// Out sets the level and forwards it.
func (p *Pin) Out(l gpio.Level) error {
	if err := p.Pin.Out(l); err != nil {
		return err
	}
	if p.onOut != nil {
		p.onOut(l)
	}
	return nil
}

// PWM records duty and frequency and forwards the duty.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	if err := p.Pin.PWM(duty, f); err != nil {
		return err
	}
	if p.onPWM != nil {
		p.onPWM(duty)
	}
	return nil
}

var _ gpio.PinOut = (*Pin)(nil)
