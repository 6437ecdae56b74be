package crypto

import "time"

// TimeProvider abstracts the clock used for event timestamps so tests can
// produce deterministic output. Implementations must be safe for concurrent use.
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider reads the wall clock.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// FixedTimeProvider always returns the same instant.
type FixedTimeProvider struct {
	Time time.Time
}

// Now returns the fixed instant.
func (f FixedTimeProvider) Now() time.Time { return f.Time }
