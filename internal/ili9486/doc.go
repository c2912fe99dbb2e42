// Package ili9486 drives an ILI9486 TFT controller (320x480, 16 bits per
// pixel) over SPI with separate chip select, data/command, reset and
// backlight lines.
//
// All pixel output goes through an address window: OpenWindow selects a
// rectangle and WriteColor or WriteBuffer stream pixel words into it in
// the controller's scan order. Lines, circles and text are built on top
// of that and clip against the panel; the window calls themselves reject
// coordinates outside it.
//
// A Dev does no locking. Callers that share it, or share its SPI bus with
// another device, must serialize access.
package ili9486
