package datekey

import "time"

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FixedClock always returns T. Used by tests and tools.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }

// Today returns the key of the current day as seen in loc.
func Today(c Clock, loc *time.Location) Key {
	return FromTime(c.Now().In(loc))
}
