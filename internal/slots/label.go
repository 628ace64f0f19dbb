package slots

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gym-booking-service/internal/datekey"
)

var ErrInvalidLabel = errors.New("invalid slot label")

// ParseLabel splits a "HH:MM - HH:MM" label into its start and end times of
// day. End must be after start.
func ParseLabel(label string) (time.Time, time.Time, error) {
	parts := strings.Split(label, " - ")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	start, err := parseHHMM(parts[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidLabel, label, err)
	}
	end, err := parseHHMM(parts[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidLabel, label, err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %q: end must be after start", ErrInvalidLabel, label)
	}
	return start, end, nil
}

// ValidateLabels checks a day's override list: at least one label, all
// parseable, no duplicates.
func ValidateLabels(labels []string) error {
	if len(labels) == 0 {
		return fmt.Errorf("%w: at least one slot required", ErrInvalidLabel)
	}
	seen := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		if _, _, err := ParseLabel(l); err != nil {
			return err
		}
		if _, dup := seen[l]; dup {
			return fmt.Errorf("%w: duplicate %q", ErrInvalidLabel, l)
		}
		seen[l] = struct{}{}
	}
	return nil
}

// Bounds places a slot label on day k in loc.
func Bounds(k datekey.Key, label string, loc *time.Location) (time.Time, time.Time, error) {
	startTOD, endTOD, err := ParseLabel(label)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	day := k.In(loc)
	if day.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date key %q", k)
	}
	y, m, d := day.Date()
	start := time.Date(y, m, d, startTOD.Hour(), startTOD.Minute(), 0, 0, loc)
	end := time.Date(y, m, d, endTOD.Hour(), endTOD.Minute(), 0, 0, loc)
	return start, end, nil
}

func parseHHMM(s string) (time.Time, error) {
	if len(s) != 5 {
		return time.Time{}, fmt.Errorf("invalid time string: %s", s)
	}
	return time.Parse("15:04", s)
}
