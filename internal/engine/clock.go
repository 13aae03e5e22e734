package engine

import "time"

// Clock supplies wall-clock time for run timing.
//
// Time is only used for the elapsed figure in Stats and logs; it never
// influences a decision.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
