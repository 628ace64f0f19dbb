// Package slots holds the table of bookable time slots per day.
package slots

import (
	"sync"
	"time"

	"gym-booking-service/internal/datekey"
)

var (
	DefaultWeekday = []string{"07:00 - 08:00", "09:00 - 10:00", "12:00 - 13:00", "15:00 - 16:00", "17:00 - 18:00"}
	DefaultWeekend = []string{"09:00 - 10:00", "11:00 - 12:00", "16:00 - 17:00"}
)

// DefaultOverrides is the fixed schedule shipped with the gym's calendar.
func DefaultOverrides() map[datekey.Key][]string {
	return map[datekey.Key][]string{
		"2025-08-01": {"08:00 - 09:00", "10:00 - 11:00", "14:00 - 15:00"},
		"2025-08-02": {"09:00 - 10:00", "12:00 - 13:00", "16:00 - 17:00"},
		"2025-08-03": {"07:00 - 08:00", "11:00 - 12:00", "15:00 - 16:00"},
		"2025-08-10": {"09:00 - 10:00", "11:00 - 12:00", "15:00 - 16:00"},
	}
}

// Catalog resolves the ordered slot labels for a day. It is safe for
// concurrent use; overrides may be replaced while requests are served.
type Catalog struct {
	mu        sync.RWMutex
	weekday   []string
	weekend   []string
	overrides map[datekey.Key][]string
}

// NewCatalog builds a catalog from the given templates. A nil overrides map
// means no overrides.
func NewCatalog(weekday, weekend []string, overrides map[datekey.Key][]string) *Catalog {
	c := &Catalog{
		weekday:   clone(weekday),
		weekend:   clone(weekend),
		overrides: make(map[datekey.Key][]string, len(overrides)),
	}
	for k, v := range overrides {
		c.overrides[k] = clone(v)
	}
	return c
}

// NewDefaultCatalog returns the catalog with the stock templates and overrides.
func NewDefaultCatalog() *Catalog {
	return NewCatalog(DefaultWeekday, DefaultWeekend, DefaultOverrides())
}

// SlotsFor returns the slots for k: the override entry when one exists,
// otherwise the weekend or weekday template. Past dates are not filtered.
func (c *Catalog) SlotsFor(k datekey.Key) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s, ok := c.overrides[k]; ok {
		return clone(s)
	}
	switch k.Weekday() {
	case time.Saturday, time.Sunday:
		return clone(c.weekend)
	default:
		return clone(c.weekday)
	}
}

// Override returns the override entry for k, if any.
func (c *Catalog) Override(k datekey.Key) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.overrides[k]
	return clone(s), ok
}

// Overrides returns a copy of the override table.
func (c *Catalog) Overrides() map[datekey.Key][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[datekey.Key][]string, len(c.overrides))
	for k, v := range c.overrides {
		out[k] = clone(v)
	}
	return out
}

// SetOverride replaces the entry for k. Labels must already be validated.
func (c *Catalog) SetOverride(k datekey.Key, labels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overrides[k] = clone(labels)
}

// DeleteOverride removes the entry for k and reports whether it existed.
func (c *Catalog) DeleteOverride(k datekey.Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.overrides[k]
	delete(c.overrides, k)
	return ok
}

// Contains reports whether label is one of the slots offered on k.
func (c *Catalog) Contains(k datekey.Key, label string) bool {
	for _, s := range c.SlotsFor(k) {
		if s == label {
			return true
		}
	}
	return false
}

func clone(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
