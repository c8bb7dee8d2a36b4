package timeutil

import (
	"sync"
	"time"
)

const millisPerDay = 86_400_000

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// ParseDate parses a date string and returns a UTC time
func ParseDate(layout, value string) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// StartOfDay returns the start of the day (midnight) in UTC
func StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DaysSince returns (now - then) in fractional days, measured in milliseconds.
// Negative when then is in the future.
func DaysSince(then, now time.Time) float64 {
	return float64(now.Sub(then).Milliseconds()) / millisPerDay
}

// Later returns the later of a and b
func Later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// Clock supplies the current time to services so tests can pin it
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC
type SystemClock struct{}

// Now implements Clock
func (SystemClock) Now() time.Time {
	return Now()
}

// FixedClock returns a settable instant
type FixedClock struct {
	mu sync.RWMutex
	t  time.Time
}

// NewFixedClock creates a clock frozen at t
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t.UTC()}
}

// Now implements Clock
func (c *FixedClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.t
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t.UTC()
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
