package utils

import "time"

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now implements ports.Clock
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant until advanced
type FixedClock struct {
	T time.Time
}

// NewFixedClock creates a clock frozen at t
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{T: t.UTC()}
}

// Now implements ports.Clock
func (c *FixedClock) Now() time.Time {
	return c.T
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.T = c.T.Add(d)
}

// NowRFC3339 returns the current time in RFC3339 format
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
