package engine

import "time"

// Clock is the audio-clock source: monotonically increasing seconds.
// The scheduler only compares against it and never assumes a zero point,
// so any monotonic origin works.
type Clock interface {
	Now() float64
}

// SystemClock counts seconds since it was created, backed by the runtime's
// monotonic clock.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() float64 {
	return time.Since(c.start).Seconds()
}
