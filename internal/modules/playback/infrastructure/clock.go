package infrastructure

import (
	"time"

	"github.com/sglre6355/isabelle/internal/modules/playback/application/ports"
)

// SystemClock schedules callbacks on the wall clock.
type SystemClock struct{}

// AfterFunc calls f in its own goroutine after d elapses.
func (SystemClock) AfterFunc(d time.Duration, f func()) ports.Timer {
	return time.AfterFunc(d, f)
}

var _ ports.Clock = SystemClock{}
