//go:build !cgo

package window

import (
	"errors"
	"testing"

	"ilipanel/internal/sim"
)

func TestRunWithoutCgo(t *testing.T) {
	calls := 0
	err := Run("test", sim.New(true), 1, func() error {
		calls++
		return nil
	})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Run() error = %v, want ErrUnavailable", err)
	}
	if calls != 0 {
		t.Errorf("step called %d times", calls)
	}
}
