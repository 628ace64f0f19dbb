// Package store persists reservations, member profiles and slot overrides.
package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"gym-booking-service/internal/datekey"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("reservation already exists")
)

// Reservation is one member's booking of one slot on one day.
type Reservation struct {
	ID          string      `json:"id"`
	UserID      string      `json:"user_id"`
	DisplayName string      `json:"display_name"`
	Email       *string     `json:"email"`
	Date        datekey.Key `json:"date"`
	Slot        string      `json:"slot"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Profile is the member's name as registered.
type Profile struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Stats holds the member's self-reported training numbers, kept as entered.
type Stats struct {
	Name              string    `json:"name"`
	Career            string    `json:"career"`
	Age               string    `json:"age"`
	Weight            string    `json:"weight"`
	Height            string    `json:"height"`
	WorkoutsCompleted string    `json:"workouts_completed"`
	AvgWorkoutTime    string    `json:"avg_workout_time"`
	UpdatedAt         time.Time `json:"updated_at,omitempty"`
}

// ReservationStore is the source of truth for reservations. Create does not
// enforce one reservation per (user, date); callers check first.
type ReservationStore interface {
	FindByUserAndDate(ctx context.Context, userID string, date datekey.Key) (*Reservation, error)
	FindByUserAndDateRange(ctx context.Context, userID string, start, end datekey.Key) ([]Reservation, error)
	Create(ctx context.Context, r Reservation) (Reservation, error)
}

type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (Profile, error)
	SaveProfile(ctx context.Context, p Profile) error
	GetStats(ctx context.Context, userID string) (Stats, error)
	SaveStats(ctx context.Context, userID string, s Stats) (Stats, error)
}

type OverrideStore interface {
	ListOverrides(ctx context.Context) (map[datekey.Key][]string, error)
	PutOverride(ctx context.Context, date datekey.Key, slots []string) error
	DeleteOverride(ctx context.Context, date datekey.Key) error
}

// Store bundles every persistence concern behind one handle.
type Store interface {
	ReservationStore
	ProfileStore
	OverrideStore
	Close() error
}

var nonWord = regexp.MustCompile(`\W`)

// ReservationID derives the record key for (user, date, slot). The same
// inputs always give the same ID so retried writes land on one record.
func ReservationID(userID string, date datekey.Key, slot string) string {
	return userID + "_" + string(date) + "_" + nonWord.ReplaceAllString(slot, "")
}
