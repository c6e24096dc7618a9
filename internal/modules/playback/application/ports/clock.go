package ports

import "time"

// Timer is a pending single-shot callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if it already fired.
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}
