//go:build !cgo

package window

import (
	"errors"

	"ilipanel/internal/sim"
)

// ErrUnavailable is returned by Run in builds without cgo.
var ErrUnavailable = errors.New("window mode requires cgo (build with CGO_ENABLED=1)")

func Run(_ string, _ *sim.Panel, _ int, _ func() error) error {
	return ErrUnavailable
}
