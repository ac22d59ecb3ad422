package domain

import "time"

// Clock supplies the current instant. Budget windows and recurring due
// dates are evaluated against it.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time { return time.Now().UTC() }
