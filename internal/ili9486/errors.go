package ili9486

import "errors"

var (
	// ErrInvalidOrientation is returned for values outside the eight scan orders.
	ErrInvalidOrientation = errors.New("ili9486: invalid orientation")
	// ErrOutOfBounds is returned when a window or pixel run leaves the panel
	// or the active window.
	ErrOutOfBounds = errors.New("ili9486: coordinates out of bounds")
	// ErrEmptyWindow is returned when a window has zero width or height.
	ErrEmptyWindow = errors.New("ili9486: empty window")
	// ErrNoWindow is returned for pixel writes without an open window.
	ErrNoWindow = errors.New("ili9486: no open window")
	// ErrUnsupportedChar is returned for characters the font cannot render.
	ErrUnsupportedChar = errors.New("ili9486: unsupported character")
	// ErrUnknownFont is returned when no table is registered for a size.
	ErrUnknownFont = errors.New("ili9486: unknown font size")
	// ErrHalted is returned by every drawing call after Halt.
	ErrHalted = errors.New("ili9486: halted")
)
