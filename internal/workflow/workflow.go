// Package workflow implements the daily reservation flow: selecting a day,
// listing its slots, and reserving one slot per member per day.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gym-booking-service/internal/datekey"
	"gym-booking-service/internal/slots"
	"gym-booking-service/internal/store"
)

var (
	ErrNotAuthenticated = errors.New("sign in to reserve")
	ErrPastDate         = errors.New("pick a future date")
	ErrAlreadyReserved  = errors.New("already reserved a different slot that day")
	ErrStoreUnavailable = errors.New("reservations are unavailable right now")
	ErrUnknownSlot      = errors.New("slot is not offered on that day")
	ErrNoDateSelected   = errors.New("no date selected")
	ErrReserveInFlight  = errors.New("a reservation for that day is already being made")
	ErrSuperseded       = errors.New("a newer date selection replaced this one")
	ErrSessionNotFound  = errors.New("session not found")
)

// State of the selected day.
type State string

const (
	StateLoading       State = "loading"
	StateNoReservation State = "no_reservation"
	StateReserved      State = "reserved"
	StateChecking      State = "checking"
	StateConflict      State = "conflict"
)

// Identity is the authenticated member acting on a session.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Admin  bool
}

// MonthIndex marks the days of the visible month that hold a reservation.
type MonthIndex map[datekey.Key]bool

// View is what the dashboard renders for the selected day.
type View struct {
	Date    datekey.Key `json:"date"`
	State   State       `json:"state"`
	Slot    string      `json:"slot,omitempty"`
	Slots   []string    `json:"slots"`
	Month   MonthIndex  `json:"month"`
	Past    bool        `json:"past"`
	Adopted bool        `json:"adopted,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Observer is told about every reservation the workflow writes.
type Observer interface {
	ReservationCreated(ctx context.Context, r store.Reservation)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Store    store.ReservationStore
	Profiles store.ProfileStore
	Catalog  *slots.Catalog
	Clock    datekey.Clock
	Location *time.Location
	Observer Observer
	Logger   *slog.Logger

	// StoreTimeout bounds each store call. Zero means no extra bound.
	StoreTimeout time.Duration
	// DefaultName is stored on reservations when nothing better is known.
	DefaultName string
}

// Today is the current day in the configured location.
func (d *Deps) Today() datekey.Key {
	return datekey.Today(d.Clock, d.Location)
}

// StoreContext bounds ctx by StoreTimeout.
func (d *Deps) StoreContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.StoreTimeout)
}

func (d *Deps) normalize() {
	if d.Clock == nil {
		d.Clock = datekey.RealClock{}
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Catalog == nil {
		d.Catalog = slots.NewDefaultCatalog()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.DefaultName == "" {
		d.DefaultName = "User"
	}
}
