package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"gym-booking-service/internal/datekey"
	"gym-booking-service/internal/store"
)

const (
	msgPickFuture  = "Pick a future date"
	msgNoSlots     = "No slots available"
	msgUnavailable = "Reservations are unavailable right now, try again later"
)

// Session holds the dashboard state of one member: the selected day, its
// slots, the day's reservation and the month index. Every date selection
// bumps a generation counter; query results that come back for an older
// generation are dropped.
type Session struct {
	deps     *Deps
	identity *Identity

	mu     sync.Mutex
	gen    uint64
	date   datekey.Key
	past   bool
	state  State
	slot   string
	slots  []string
	month  MonthIndex
	first  datekey.Key
	last   datekey.Key
	adopt  bool
	notice string

	// days with a check-then-create in progress
	reserving map[datekey.Key]bool
}

// NewSession starts a session for identity, which may be nil for callers
// that are authenticated but carry no member identity. No date is selected.
func NewSession(deps *Deps, identity *Identity) *Session {
	deps.normalize()
	var id *Identity
	if identity != nil {
		cp := *identity
		id = &cp
	}
	return &Session{
		deps:      deps,
		identity:  id,
		state:     StateNoReservation,
		month:     MonthIndex{},
		reserving: map[datekey.Key]bool{},
	}
}

// Identity returns the session's member, or nil.
func (s *Session) Identity() *Identity {
	if s.identity == nil {
		return nil
	}
	cp := *s.identity
	return &cp
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// SelectDate makes date the selected day and reloads its slots, the day's
// reservation and the month index. Past days get no slots and no
// reservation; their month is still annotated.
func (s *Session) SelectDate(ctx context.Context, date datekey.Key) (View, error) {
	today := s.deps.Today()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.date = date
	s.past = datekey.IsPast(date, today)
	s.state = StateLoading
	s.slot = ""
	s.adopt = false
	s.notice = ""
	if s.past {
		s.slots = nil
		s.notice = msgPickFuture
	} else {
		s.slots = s.deps.Catalog.SlotsFor(date)
		if len(s.slots) == 0 {
			s.notice = msgNoSlots
		}
	}
	past := s.past
	s.mu.Unlock()

	first, last := datekey.MonthRange(date)
	if s.identity == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen != s.gen {
			return s.viewLocked(), ErrSuperseded
		}
		s.state = StateNoReservation
		s.month = MonthIndex{}
		s.first, s.last = first, last
		return s.viewLocked(), nil
	}

	userID := s.identity.UserID
	var (
		day   *store.Reservation
		inMon []store.Reservation
	)
	g, gctx := errgroup.WithContext(ctx)
	if !past {
		g.Go(func() error {
			qctx, cancel := s.deps.StoreContext(gctx)
			defer cancel()
			r, err := s.deps.Store.FindByUserAndDate(qctx, userID, date)
			if err != nil {
				return fmt.Errorf("day reservation: %w", err)
			}
			day = r
			return nil
		})
	}
	g.Go(func() error {
		qctx, cancel := s.deps.StoreContext(gctx)
		defer cancel()
		rs, err := s.deps.Store.FindByUserAndDateRange(qctx, userID, first, last)
		if err != nil {
			return fmt.Errorf("month reservations: %w", err)
		}
		inMon = rs
		return nil
	})
	err := g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.deps.Logger.Debug("dropping stale date selection", "date", date, "current", s.date)
		return s.viewLocked(), ErrSuperseded
	}
	if err != nil {
		s.deps.Logger.Error("failed to load reservations", "user_id", userID, "date", date, "error", err)
		s.resetLocked()
		return s.viewLocked(), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.first, s.last = first, last
	s.month = MonthIndex{}
	for _, r := range inMon {
		s.month[r.Date] = true
	}
	if day != nil {
		s.state = StateReserved
		s.slot = day.Slot
		s.month[date] = true
	} else {
		s.state = StateNoReservation
	}
	return s.viewLocked(), nil
}

// Reserve books slot on the selected day. If the member already holds a
// reservation for that day in the store, that reservation is adopted and
// returned instead of writing a second one.
//
// The existence check and the write are separate store calls, so two
// devices of the same member can both pass the check before either write
// lands.
func (s *Session) Reserve(ctx context.Context, slot string) (View, error) {
	today := s.deps.Today()

	s.mu.Lock()
	if s.identity == nil {
		s.notice = ErrNotAuthenticated.Error()
		v := s.viewLocked()
		s.mu.Unlock()
		return v, ErrNotAuthenticated
	}
	if s.date == "" {
		s.mu.Unlock()
		return View{}, ErrNoDateSelected
	}
	date := s.date
	if datekey.IsPast(date, today) {
		s.past = true
		s.slots = nil
		s.notice = msgPickFuture
		v := s.viewLocked()
		s.mu.Unlock()
		return v, ErrPastDate
	}
	if s.reserving[date] {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, ErrReserveInFlight
	}
	// the slot must be on the rendered list and still offered
	if !slices.Contains(s.slots, slot) || !s.deps.Catalog.Contains(date, slot) {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, fmt.Errorf("%w: %q on %s", ErrUnknownSlot, slot, date)
	}
	if s.state == StateReserved {
		v := s.viewLocked()
		s.mu.Unlock()
		if v.Slot == slot {
			return v, nil
		}
		return v, fmt.Errorf("%w: %s", ErrAlreadyReserved, v.Slot)
	}
	gen := s.gen
	s.state = StateChecking
	s.reserving[date] = true
	s.mu.Unlock()
	defer s.doneReserving(date)

	id := *s.identity

	existing, err := s.findDay(ctx, id.UserID, date)
	if err != nil {
		return s.fail(gen, err)
	}
	if existing != nil {
		s.markConflict(gen)
		return s.adoptExisting(gen, *existing), nil
	}

	pctx, pcancel := s.deps.StoreContext(ctx)
	name := DisplayName(pctx, s.deps.Profiles, id, s.deps.DefaultName)
	pcancel()

	r := store.Reservation{
		ID:          store.ReservationID(id.UserID, date, slot),
		UserID:      id.UserID,
		DisplayName: name,
		Date:        date,
		Slot:        slot,
	}
	if id.Email != "" {
		email := id.Email
		r.Email = &email
	}

	cctx, cancel := s.deps.StoreContext(ctx)
	created, err := s.deps.Store.Create(cctx, r)
	cancel()
	if errors.Is(err, store.ErrConflict) {
		// a retry of this exact booking already landed
		existing, ferr := s.findDay(ctx, id.UserID, date)
		if ferr != nil {
			return s.fail(gen, ferr)
		}
		if existing != nil {
			s.markConflict(gen)
			return s.adoptExisting(gen, *existing), nil
		}
	}
	if err != nil {
		return s.fail(gen, err)
	}

	s.deps.Logger.Info("reservation created", "id", created.ID, "user_id", created.UserID, "date", created.Date, "slot", created.Slot)
	if s.deps.Observer != nil {
		s.deps.Observer.ReservationCreated(ctx, created)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.markMonthLocked(date)
		return s.reservedViewLocked(date, slot, false), nil
	}
	s.state = StateReserved
	s.slot = slot
	s.notice = ""
	s.markMonthLocked(date)
	return s.viewLocked(), nil
}

func (s *Session) findDay(ctx context.Context, userID string, date datekey.Key) (*store.Reservation, error) {
	qctx, cancel := s.deps.StoreContext(ctx)
	defer cancel()
	return s.deps.Store.FindByUserAndDate(qctx, userID, date)
}

func (s *Session) doneReserving(date datekey.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reserving, date)
}

func (s *Session) markConflict(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.gen {
		s.state = StateConflict
	}
}

// adoptExisting resolves a conflict by taking the stored reservation as the
// outcome of the reserve action.
func (s *Session) adoptExisting(gen uint64, r store.Reservation) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Logger.Info("adopting existing reservation", "user_id", r.UserID, "date", r.Date, "slot", r.Slot)
	if gen != s.gen {
		s.markMonthLocked(r.Date)
		return s.reservedViewLocked(r.Date, r.Slot, true)
	}
	s.state = StateReserved
	s.slot = r.Slot
	s.adopt = true
	s.notice = fmt.Sprintf("You already have a reservation on %s", r.Date)
	s.markMonthLocked(r.Date)
	return s.viewLocked()
}

func (s *Session) fail(gen uint64, err error) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deps.Logger.Error("reservation store failed", "date", s.date, "error", err)
	if gen == s.gen {
		s.resetLocked()
	}
	return s.viewLocked(), fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func (s *Session) resetLocked() {
	s.state = StateNoReservation
	s.slot = ""
	s.slots = nil
	s.month = MonthIndex{}
	s.adopt = false
	s.notice = msgUnavailable
}

func (s *Session) markMonthLocked(date datekey.Key) {
	if s.first != "" && date >= s.first && date <= s.last {
		s.month[date] = true
	}
}

func (s *Session) viewLocked() View {
	slots := s.slots
	if slots == nil {
		slots = []string{}
	}
	month := make(MonthIndex, len(s.month))
	for k, v := range s.month {
		month[k] = v
	}
	return View{
		Date:    s.date,
		State:   s.state,
		Slot:    s.slot,
		Slots:   append([]string(nil), slots...),
		Month:   month,
		Past:    s.past,
		Adopted: s.adopt,
		Message: s.notice,
	}
}

// reservedViewLocked describes a reservation on a day that is no longer the
// selected one.
func (s *Session) reservedViewLocked(date datekey.Key, slot string, adopted bool) View {
	month := make(MonthIndex, len(s.month))
	for k, v := range s.month {
		month[k] = v
	}
	return View{
		Date:    date,
		State:   StateReserved,
		Slot:    slot,
		Slots:   s.deps.Catalog.SlotsFor(date),
		Month:   month,
		Adopted: adopted,
	}
}
