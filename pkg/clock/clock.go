// Package clock abstracts timers so that debounce and expiry logic can be
// driven by a fake clock in tests.
package clock

import "time"

// Timer is a cancellation token for a scheduled callback.
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the timer
	// already fired or was stopped before.
	Stop() bool
}

// Clock schedules callbacks and reports the current time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
