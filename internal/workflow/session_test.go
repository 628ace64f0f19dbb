package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gym-booking-service/internal/datekey"
	"gym-booking-service/internal/slots"
	"gym-booking-service/internal/store"
)

// fakeStore is an in-memory ReservationStore with hooks for failures and
// for holding queries until a test releases them.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]store.Reservation
	creates int
	failAll error
	hold    map[datekey.Key]chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[string]store.Reservation{},
		hold:    map[datekey.Key]chan struct{}{},
	}
}

func (f *fakeStore) wait(ctx context.Context, date datekey.Key) error {
	f.mu.Lock()
	ch := f.hold[date]
	f.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeStore) FindByUserAndDate(ctx context.Context, userID string, date datekey.Key) (*store.Reservation, error) {
	if err := f.wait(ctx, date); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var found *store.Reservation
	for _, r := range f.records {
		if r.UserID == userID && r.Date == date {
			r := r
			if found == nil || r.CreatedAt.Before(found.CreatedAt) {
				found = &r
			}
		}
	}
	return found, nil
}

func (f *fakeStore) FindByUserAndDateRange(ctx context.Context, userID string, start, end datekey.Key) ([]store.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return nil, f.failAll
	}
	var out []store.Reservation
	for _, r := range f.records {
		if r.UserID == userID && r.Date >= start && r.Date <= end {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) Create(_ context.Context, r store.Reservation) (store.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return store.Reservation{}, f.failAll
	}
	if _, ok := f.records[r.ID]; ok {
		return store.Reservation{}, store.ErrConflict
	}
	f.creates++
	r.CreatedAt = time.Now()
	f.records[r.ID] = r
	return r, nil
}

func (f *fakeStore) countFor(userID string, date datekey.Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.records {
		if r.UserID == userID && r.Date == date {
			n++
		}
	}
	return n
}

type recordingObserver struct {
	mu  sync.Mutex
	got []store.Reservation
}

func (o *recordingObserver) ReservationCreated(_ context.Context, r store.Reservation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, r)
}

// today is Thursday 2026-10-15.
var testNow = time.Date(2026, time.October, 15, 10, 0, 0, 0, time.UTC)

func newDeps(st store.ReservationStore) *Deps {
	return &Deps{
		Store:    st,
		Catalog:  slots.NewDefaultCatalog(),
		Clock:    datekey.FixedClock{T: testNow},
		Location: time.UTC,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

var ana = &Identity{UserID: "u1", Name: "Ana", Email: "ana@example.com"}

func TestSelectDateFutureWeekday(t *testing.T) {
	st := newFakeStore()
	s := NewSession(newDeps(st), ana)

	v, err := s.SelectDate(context.Background(), "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, StateNoReservation, v.State)
	assert.Equal(t, slots.DefaultWeekday, v.Slots)
	assert.False(t, v.Past)
	assert.Empty(t, v.Month)
}

func TestSelectDateOverrideDay(t *testing.T) {
	deps := newDeps(newFakeStore())
	deps.Clock = datekey.FixedClock{T: time.Date(2025, time.August, 1, 8, 0, 0, 0, time.UTC)}
	s := NewSession(deps, ana)

	v, err := s.SelectDate(context.Background(), "2025-08-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00 - 10:00", "11:00 - 12:00", "15:00 - 16:00"}, v.Slots)
}

func TestSelectDatePastHasNoSlots(t *testing.T) {
	st := newFakeStore()
	st.records["old"] = store.Reservation{ID: "old", UserID: "u1", Date: "2026-10-02", Slot: "09:00 - 10:00"}
	s := NewSession(newDeps(st), ana)

	v, err := s.SelectDate(context.Background(), "2026-10-02")
	require.NoError(t, err)
	assert.True(t, v.Past)
	assert.Empty(t, v.Slots)
	assert.Equal(t, StateNoReservation, v.State)
	assert.Equal(t, msgPickFuture, v.Message)
	assert.True(t, v.Month["2026-10-02"], "past days are still annotated")
}

func TestSelectDateTodayIsNotPast(t *testing.T) {
	s := NewSession(newDeps(newFakeStore()), ana)

	v, err := s.SelectDate(context.Background(), "2026-10-15")
	require.NoError(t, err)
	assert.False(t, v.Past)
	assert.NotEmpty(t, v.Slots)
}

func TestSelectDateLoadsDayAndMonth(t *testing.T) {
	st := newFakeStore()
	st.records["a"] = store.Reservation{ID: "a", UserID: "u1", Date: "2026-10-20", Slot: "12:00 - 13:00"}
	st.records["b"] = store.Reservation{ID: "b", UserID: "u1", Date: "2026-10-28", Slot: "07:00 - 08:00"}
	st.records["c"] = store.Reservation{ID: "c", UserID: "u1", Date: "2026-11-02", Slot: "07:00 - 08:00"}
	st.records["d"] = store.Reservation{ID: "d", UserID: "u2", Date: "2026-10-21", Slot: "07:00 - 08:00"}
	s := NewSession(newDeps(st), ana)

	v, err := s.SelectDate(context.Background(), "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, StateReserved, v.State)
	assert.Equal(t, "12:00 - 13:00", v.Slot)
	assert.Equal(t, MonthIndex{"2026-10-20": true, "2026-10-28": true}, v.Month)
}

func TestReserveThenReselect(t *testing.T) {
	st := newFakeStore()
	obs := &recordingObserver{}
	deps := newDeps(st)
	deps.Observer = obs
	s := NewSession(deps, ana)
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)

	v, err := s.Reserve(ctx, "07:00 - 08:00")
	require.NoError(t, err)
	assert.Equal(t, StateReserved, v.State)
	assert.Equal(t, "07:00 - 08:00", v.Slot)
	assert.True(t, v.Month["2026-10-20"])
	assert.False(t, v.Adopted)

	got, err := st.FindByUserAndDate(ctx, "u1", "2026-10-20")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "07:00 - 08:00", got.Slot)
	assert.Equal(t, "Ana", got.DisplayName)
	require.NotNil(t, got.Email)
	assert.Equal(t, "ana@example.com", *got.Email)
	assert.Equal(t, "u1_2026-10-20_07000800", got.ID)
	require.Len(t, obs.got, 1)

	// another day, then back: the reservation comes from the store
	_, err = s.SelectDate(ctx, "2026-10-21")
	require.NoError(t, err)
	v, err = s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, StateReserved, v.State)
	assert.Equal(t, "07:00 - 08:00", v.Slot)
	assert.Equal(t, 1, st.creates)
}

func TestReserveSameSlotTwiceDoesNotWrite(t *testing.T) {
	st := newFakeStore()
	s := NewSession(newDeps(st), ana)
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)
	_, err = s.Reserve(ctx, "07:00 - 08:00")
	require.NoError(t, err)

	v, err := s.Reserve(ctx, "07:00 - 08:00")
	require.NoError(t, err)
	assert.Equal(t, "07:00 - 08:00", v.Slot)
	assert.Equal(t, 1, st.creates)
}

func TestReserveDifferentSlotSameDayIsRejected(t *testing.T) {
	st := newFakeStore()
	s := NewSession(newDeps(st), ana)
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)
	_, err = s.Reserve(ctx, "07:00 - 08:00")
	require.NoError(t, err)

	v, err := s.Reserve(ctx, "09:00 - 10:00")
	assert.ErrorIs(t, err, ErrAlreadyReserved)
	assert.Equal(t, "07:00 - 08:00", v.Slot)
	assert.Equal(t, 1, st.creates)
	assert.Equal(t, 1, st.countFor("u1", "2026-10-20"))
}

// gatedCreateStore parks every Create until release is closed.
type gatedCreateStore struct {
	*fakeStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedCreateStore) Create(ctx context.Context, r store.Reservation) (store.Reservation, error) {
	g.entered <- struct{}{}
	<-g.release
	return g.fakeStore.Create(ctx, r)
}

func TestReserveWhileAnotherIsInFlightIsRejected(t *testing.T) {
	st := &gatedCreateStore{
		fakeStore: newFakeStore(),
		entered:   make(chan struct{}, 2),
		release:   make(chan struct{}),
	}
	s := NewSession(newDeps(st), ana)
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() {
		_, err := s.Reserve(ctx, "07:00 - 08:00")
		first <- err
	}()
	<-st.entered

	_, err = s.Reserve(ctx, "09:00 - 10:00")
	assert.ErrorIs(t, err, ErrReserveInFlight)

	close(st.release)
	require.NoError(t, <-first)
	assert.Equal(t, 1, st.countFor("u1", "2026-10-20"))

	v, err := s.Reserve(ctx, "09:00 - 10:00")
	assert.ErrorIs(t, err, ErrAlreadyReserved)
	assert.Equal(t, "07:00 - 08:00", v.Slot)
}

func TestReserveAdoptsReservationMadeElsewhere(t *testing.T) {
	st := newFakeStore()
	deps := newDeps(st)
	ctx := context.Background()

	phone := NewSession(deps, ana)
	laptop := NewSession(deps, ana)

	_, err := phone.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)
	_, err = laptop.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)

	_, err = phone.Reserve(ctx, "07:00 - 08:00")
	require.NoError(t, err)

	// laptop still believes the day is free
	v, err := laptop.Reserve(ctx, "17:00 - 18:00")
	require.NoError(t, err)
	assert.True(t, v.Adopted)
	assert.Equal(t, StateReserved, v.State)
	assert.Equal(t, "07:00 - 08:00", v.Slot)
	assert.True(t, v.Month["2026-10-20"])
	assert.NotEmpty(t, v.Message)
	assert.Equal(t, 1, st.countFor("u1", "2026-10-20"))
}

func TestReserveRejectsPastAndUnknownSlots(t *testing.T) {
	st := newFakeStore()
	s := NewSession(newDeps(st), ana)
	ctx := context.Background()

	_, err := s.Reserve(ctx, "07:00 - 08:00")
	assert.ErrorIs(t, err, ErrNoDateSelected)

	_, err = s.SelectDate(ctx, "2026-10-14")
	require.NoError(t, err)
	_, err = s.Reserve(ctx, "07:00 - 08:00")
	assert.ErrorIs(t, err, ErrPastDate)

	_, err = s.SelectDate(ctx, "2026-10-17")
	require.NoError(t, err)
	_, err = s.Reserve(ctx, "07:00 - 08:00")
	assert.ErrorIs(t, err, ErrUnknownSlot, "weekday slot on a Saturday")
	assert.Zero(t, st.creates)
}

func TestReserveWithoutIdentity(t *testing.T) {
	st := newFakeStore()
	s := NewSession(newDeps(st), nil)
	ctx := context.Background()

	v, err := s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.NotEmpty(t, v.Slots)

	v, err = s.Reserve(ctx, "07:00 - 08:00")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, ErrNotAuthenticated.Error(), v.Message)
	assert.Zero(t, st.creates)
}

func TestStoreFailureResetsView(t *testing.T) {
	st := newFakeStore()
	s := NewSession(newDeps(st), ana)
	ctx := context.Background()

	st.failAll = errors.New("connection refused")
	v, err := s.SelectDate(ctx, "2026-10-20")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, v.Slots)
	assert.Empty(t, v.Slot)
	assert.Empty(t, v.Month)
	assert.Equal(t, StateNoReservation, v.State)

	st.failAll = nil
	_, err = s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)

	st.failAll = errors.New("permission denied")
	v, err = s.Reserve(ctx, "07:00 - 08:00")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, v.Slots)
	assert.Zero(t, st.creates)
}

func TestCreateConflictIsAdopted(t *testing.T) {
	st := newFakeStore()
	s := NewSession(newDeps(st), ana)
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)

	// the exact record exists but was written after our existence check
	racing := &racingStore{fakeStore: st}
	s.deps.Store = racing

	v, err := s.Reserve(ctx, "07:00 - 08:00")
	require.NoError(t, err)
	assert.True(t, v.Adopted)
	assert.Equal(t, "07:00 - 08:00", v.Slot)
	assert.Equal(t, 1, st.countFor("u1", "2026-10-20"))
}

// racingStore inserts the same record right before the caller's Create.
type racingStore struct {
	*fakeStore
	once sync.Once
}

func (r *racingStore) Create(ctx context.Context, res store.Reservation) (store.Reservation, error) {
	r.once.Do(func() {
		_, _ = r.fakeStore.Create(ctx, res)
	})
	return r.fakeStore.Create(ctx, res)
}

func TestStaleSelectionIsDropped(t *testing.T) {
	st := newFakeStore()
	st.records["a"] = store.Reservation{ID: "a", UserID: "u1", Date: "2026-10-20", Slot: "12:00 - 13:00"}
	release := make(chan struct{})
	st.hold["2026-10-20"] = release
	s := NewSession(newDeps(st), ana)
	ctx := context.Background()

	type result struct {
		v   View
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := s.SelectDate(ctx, "2026-10-20")
		done <- result{v, err}
	}()

	// wait until the first selection is in flight
	require.Eventually(t, func() bool { return s.View().Date == "2026-10-20" }, time.Second, time.Millisecond)

	v, err := s.SelectDate(ctx, "2026-10-21")
	require.NoError(t, err)
	assert.Equal(t, datekey.Key("2026-10-21"), v.Date)
	assert.Equal(t, StateNoReservation, v.State)

	close(release)
	first := <-done
	assert.ErrorIs(t, first.err, ErrSuperseded)

	now := s.View()
	assert.Equal(t, datekey.Key("2026-10-21"), now.Date)
	assert.Equal(t, StateNoReservation, now.State)
	assert.Empty(t, now.Slot)
}

func TestDisplayNameFallbacks(t *testing.T) {
	ctx := context.Background()
	profiles := &fakeProfiles{profiles: map[string]store.Profile{
		"u1": {UserID: "u1", FirstName: " Ana ", LastName: "Pérez"},
		"u2": {UserID: "u2"},
	}}

	assert.Equal(t, "Ana Pérez", DisplayName(ctx, profiles, Identity{UserID: "u1", Name: "ana"}, "User"))
	assert.Equal(t, "Bea", DisplayName(ctx, profiles, Identity{UserID: "u2", Name: "Bea"}, "User"))
	assert.Equal(t, "c@example.com", DisplayName(ctx, profiles, Identity{UserID: "u3", Email: "c@example.com"}, "User"))
	assert.Equal(t, "User", DisplayName(ctx, profiles, Identity{UserID: "u4"}, "User"))

	profiles.err = errors.New("timeout")
	assert.Equal(t, "ana", DisplayName(ctx, profiles, Identity{UserID: "u1", Name: "ana"}, "User"))
	assert.Equal(t, "User", DisplayName(ctx, nil, Identity{UserID: "u1"}, "User"))
}

func TestReserveBoundsProfileLookup(t *testing.T) {
	st := newFakeStore()
	deps := newDeps(st)
	deps.StoreTimeout = time.Second
	profiles := &fakeProfiles{profiles: map[string]store.Profile{
		"u1": {UserID: "u1", FirstName: "Ana", LastName: "Perez"},
	}}
	deps.Profiles = profiles
	s := NewSession(deps, ana)
	ctx := context.Background()

	_, err := s.SelectDate(ctx, "2026-10-20")
	require.NoError(t, err)
	_, err = s.Reserve(ctx, "07:00 - 08:00")
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, profiles.deadlines)
	r, err := st.FindByUserAndDate(ctx, "u1", "2026-10-20")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "Ana Perez", r.DisplayName)
}

type fakeProfiles struct {
	profiles map[string]store.Profile
	err      error

	mu        sync.Mutex
	deadlines []bool
}

func (f *fakeProfiles) GetProfile(ctx context.Context, userID string) (store.Profile, error) {
	_, bounded := ctx.Deadline()
	f.mu.Lock()
	f.deadlines = append(f.deadlines, bounded)
	f.mu.Unlock()
	if f.err != nil {
		return store.Profile{}, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return store.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) SaveProfile(context.Context, store.Profile) error { return nil }

func (f *fakeProfiles) GetStats(context.Context, string) (store.Stats, error) {
	return store.Stats{}, store.ErrNotFound
}

func (f *fakeProfiles) SaveStats(_ context.Context, _ string, s store.Stats) (store.Stats, error) {
	return s, nil
}
