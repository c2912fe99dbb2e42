package ili9486

import "time"

// Command is one register write: the command byte, its parameters and an
// optional settle delay after the last parameter.
type Command struct {
	Reg   byte
	Data  []byte
	Delay time.Duration
}

// InitTable is a register initialization sequence for one controller
// revision. It is data: the session replays it byte for byte.
type InitTable []Command

// Waveshare4inch configures gamma, power, frame rate and the 16 bits per
// pixel interface format for the ILI9486 on the Waveshare 4inch TFT shield.
var Waveshare4inch = InitTable{
	{Reg: 0xF9, Data: []byte{0x00, 0x08}},
	{Reg: 0xC0, Data: []byte{0x19, 0x1A}}, // VREG1OUT positive, VREG2OUT negative
	{Reg: 0xC1, Data: []byte{0x45, 0x00}}, // VGH, VGL
	{Reg: 0xC2, Data: []byte{0xA0}},       // normal mode power
	{Reg: 0xC5, Data: []byte{0x00, 0x28}}, // VCM_REG <= 0x80
	{Reg: 0xB1, Data: []byte{0x60, 0x11}}, // frame rate, full color normal mode
	{Reg: 0xB4, Data: []byte{0x02}},       // 2 dot inversion, <= 70Hz
	{Reg: 0xB6, Data: []byte{0x00, 0x42, 0x3B}},
	{Reg: 0xB7, Data: []byte{0x07}},
	{Reg: 0xE0, Data: []byte{
		0x1F, 0x25, 0x22, 0x0B, 0x06, 0x0A, 0x4E, 0xC6,
		0x39, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	}},
	{Reg: 0xE1, Data: []byte{
		0x1F, 0x3F, 0x3F, 0x0F, 0x1F, 0x0F, 0x46, 0x49,
		0x31, 0x05, 0x09, 0x03, 0x1C, 0x1A, 0x00,
	}},
	{Reg: 0xF1, Data: []byte{0x36, 0x04, 0x00, 0x3C, 0x0F, 0x0F, 0xA4, 0x02}},
	{Reg: 0xF2, Data: []byte{0x18, 0xA3, 0x12, 0x02, 0x32, 0x12, 0xFF, 0x32, 0x00}},
	{Reg: 0xF4, Data: []byte{0x40, 0x00, 0x08, 0x91, 0x04}},
	{Reg: 0xF8, Data: []byte{0x21, 0x04}},
	{Reg: 0x3A, Data: []byte{0x55}}, // 16 bits per pixel
}
