package adapter

import "time"

// Clock defines an interface for time operations so ledger commit
// timestamps are an explicit, testable parameter.
//
//go:generate mockgen -source=clock.go -destination=../mocks/clock.go -package=mocks -mock_names=Clock=MockClock
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// NewClock creates a new real clock implementation
func NewClock() Clock {
	return &RealClock{}
}

func (c *RealClock) Now() time.Time {
	// Postgres timestamptz carries microseconds; truncate so commit
	// timestamps round-trip through the store unchanged
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (c *RealClock) Since(t time.Time) time.Duration {
	return time.Since(t)
}
