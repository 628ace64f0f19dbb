// Package datekey converts calendar dates to the canonical YYYY-MM-DD keys
// used to index reservations.
package datekey

import (
	"fmt"
	"time"
)

// Layout is the time layout of a Key.
const Layout = "2006-01-02"

// Key is a calendar day formatted as YYYY-MM-DD. Keys compare
// lexicographically in chronological order.
type Key string

// FromTime builds the key from the calendar fields of t in t's own location.
// No zone conversion is applied.
func FromTime(t time.Time) Key {
	y, m, d := t.Date()
	return Key(fmt.Sprintf("%04d-%02d-%02d", y, int(m), d))
}

// Parse validates s as a real calendar date in YYYY-MM-DD form.
func Parse(s string) (Key, error) {
	if len(s) != len(Layout) {
		return "", fmt.Errorf("invalid date key %q", s)
	}
	t, err := time.Parse(Layout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date key %q: %w", s, err)
	}
	return FromTime(t), nil
}

// IsPast reports whether d is strictly before today.
func IsPast(d, today Key) bool {
	return d < today
}

// MonthRange returns the first and last day of the month containing k.
func MonthRange(k Key) (Key, Key) {
	t := k.In(time.UTC)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return FromTime(first), FromTime(last)
}

// In returns midnight of k in loc. k must be a valid key.
func (k Key) In(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(Layout, string(k), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Weekday of the day k names.
func (k Key) Weekday() time.Weekday {
	return k.In(time.UTC).Weekday()
}

func (k Key) String() string { return string(k) }
