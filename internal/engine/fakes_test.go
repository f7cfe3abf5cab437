package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cinebook/seat-reservation/internal/model"
	"github.com/cinebook/seat-reservation/internal/repository"
)

// testClock is a mutable clock shared by a test and the code under
// test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t.UTC()} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSeatStore is an in-memory SeatStore whose CompareAndSetStatus is
// guarded by one mutex, which gives the same per-seat linearizability
// the MySQL implementation gets from row serialization.
type fakeSeatStore struct {
	mu    sync.Mutex
	seats map[uint64]*model.Seat
	// casHook, when set, runs before a compare-and-set applies and may
	// inject a failure.  Used to exercise rollback paths that cannot be
	// provoked from outside.
	casHook func(seatID uint64, expected, next model.SeatClaim) error
}

func newFakeSeatStore(seats ...model.Seat) *fakeSeatStore {
	s := &fakeSeatStore{seats: make(map[uint64]*model.Seat)}
	for i := range seats {
		cp := seats[i]
		s.seats[cp.ID] = &cp
	}
	return s
}

func (s *fakeSeatStore) get(seatID uint64) model.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.seats[seatID]
}

func (s *fakeSeatStore) set(seat model.Seat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats[seat.ID] = &seat
}

func (s *fakeSeatStore) Snapshot(_ context.Context, showID uint64) ([]model.Seat, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seat
	for _, seat := range s.seats {
		if seat.ShowID == showID {
			out = append(out, *seat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowLabel != out[j].RowLabel {
			return out[i].RowLabel < out[j].RowLabel
		}
		return out[i].SeatNumber < out[j].SeatNumber
	})
	var rows []string
	for i := range out {
		if n := len(rows); n == 0 || rows[n-1] != out[i].RowLabel {
			rows = append(rows, out[i].RowLabel)
		}
	}
	return out, rows, nil
}

func (s *fakeSeatStore) GetSeats(_ context.Context, showID uint64, seatIDs []uint64) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seat
	for _, id := range seatIDs {
		if seat, ok := s.seats[id]; ok && seat.ShowID == showID {
			out = append(out, *seat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RowLabel != out[j].RowLabel {
			return out[i].RowLabel < out[j].RowLabel
		}
		return out[i].SeatNumber < out[j].SeatNumber
	})
	return out, nil
}

func (s *fakeSeatStore) ListLapsedHeld(_ context.Context, now time.Time) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seat
	for _, seat := range s.seats {
		if seat.HoldLapsed(now) {
			out = append(out, *seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeSeatStore) CompareAndSetStatus(_ context.Context, showID, seatID uint64, expected, next model.SeatClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatID]
	if !ok || seat.ShowID != showID {
		return repository.ErrSeatNotFound
	}
	if seat.Status != expected.Status {
		return repository.ErrConflict
	}
	if expected.HolderID != "" && seat.HeldBy != expected.HolderID {
		return repository.ErrConflict
	}
	if expected.ExpiresAt != nil {
		if seat.HoldExpiresAt == nil || !seat.HoldExpiresAt.Equal(*expected.ExpiresAt) {
			return repository.ErrConflict
		}
	}
	if s.casHook != nil {
		if err := s.casHook(seatID, expected, next); err != nil {
			return err
		}
	}
	seat.Status = next.Status
	seat.HeldBy = next.HolderID
	if next.ExpiresAt != nil {
		t := next.ExpiresAt.UTC()
		seat.HoldExpiresAt = &t
	} else {
		seat.HoldExpiresAt = nil
	}
	seat.Version++
	return nil
}

// fakeHoldStore is an in-memory HoldStore.
type fakeHoldStore struct {
	mu    sync.Mutex
	holds map[string]*model.Hold
}

func newFakeHoldStore() *fakeHoldStore {
	return &fakeHoldStore{holds: make(map[string]*model.Hold)}
}

func (s *fakeHoldStore) Create(_ context.Context, h *model.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *h
	cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
	s.holds[h.ID] = &cp
	return nil
}

func (s *fakeHoldStore) GetByID(_ context.Context, holdID string) (*model.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[holdID]
	if !ok {
		return nil, nil
	}
	cp := *h
	cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
	return &cp, nil
}

func (s *fakeHoldStore) ActiveByHolder(_ context.Context, showID uint64, holderID string, now time.Time) ([]model.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Hold
	for _, h := range s.holds {
		if h.ShowID == showID && h.HolderID == holderID && h.ExpiresAt.After(now) {
			cp := *h
			cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeHoldStore) ListActive(_ context.Context, now time.Time) ([]model.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Hold
	for _, h := range s.holds {
		if h.ExpiresAt.After(now) {
			cp := *h
			cp.SeatIDs = append([]uint64(nil), h.SeatIDs...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeHoldStore) Delete(_ context.Context, holdID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holds, holdID)
	return nil
}

func (s *fakeHoldStore) DeleteSeats(_ context.Context, showID uint64, seatIDs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		drop[id] = struct{}{}
	}
	for holdID, h := range s.holds {
		if h.ShowID != showID {
			continue
		}
		var kept []uint64
		for _, id := range h.SeatIDs {
			if _, ok := drop[id]; !ok {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(s.holds, holdID)
		} else {
			h.SeatIDs = kept
		}
	}
	return nil
}

// fakeBookingStore is an in-memory BookingStore with the same unique
// (show, seat) guard the MySQL schema enforces.
type fakeBookingStore struct {
	mu       sync.Mutex
	bookings []*model.Booking
}

func newFakeBookingStore() *fakeBookingStore { return &fakeBookingStore{} }

func (s *fakeBookingStore) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.bookings {
		if existing.ShowID != b.ShowID {
			continue
		}
		for _, have := range existing.SeatIDs {
			for _, want := range b.SeatIDs {
				if have == want {
					return repository.ErrConflict
				}
			}
		}
	}
	cp := *b
	cp.SeatIDs = append([]uint64(nil), b.SeatIDs...)
	s.bookings = append(s.bookings, &cp)
	return nil
}

func (s *fakeBookingStore) FindBySeatSet(_ context.Context, showID uint64, holderID string, seatIDs []uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = struct{}{}
	}
	for _, b := range s.bookings {
		if b.ShowID != showID || b.HolderID != holderID || len(b.SeatIDs) != len(want) {
			continue
		}
		match := true
		for _, id := range b.SeatIDs {
			if _, ok := want[id]; !ok {
				match = false
				break
			}
		}
		if match {
			cp := *b
			cp.SeatIDs = append([]uint64(nil), b.SeatIDs...)
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

// fakeShowStore resolves show existence from a fixed set.
type fakeShowStore struct {
	shows map[uint64]*model.Show
}

func newFakeShowStore(ids ...uint64) *fakeShowStore {
	s := &fakeShowStore{shows: make(map[uint64]*model.Show)}
	for _, id := range ids {
		s.shows[id] = &model.Show{ID: id, Title: "test show", Screen: "Screen 1"}
	}
	return s
}

func (s *fakeShowStore) GetByID(_ context.Context, id uint64) (*model.Show, error) {
	show, ok := s.shows[id]
	if !ok {
		return nil, repository.ErrShowNotFound
	}
	return show, nil
}

// fakeScheduler records scheduled expiry actions.
type fakeScheduler struct {
	mu        sync.Mutex
	scheduled []scheduledExpiry
}

type scheduledExpiry struct {
	holdID    string
	expiresAt time.Time
}

func (s *fakeScheduler) ScheduleHoldExpiry(_ context.Context, holdID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, scheduledExpiry{holdID: holdID, expiresAt: expiresAt})
	return nil
}

// fakeEvents records published events.
type fakeEvents struct {
	mu        sync.Mutex
	confirmed []string
	expired   []string
}

func (e *fakeEvents) BookingConfirmed(_ context.Context, b *model.Booking) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.confirmed = append(e.confirmed, b.ID)
}

func (e *fakeEvents) HoldExpired(_ context.Context, h *model.Hold) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expired = append(e.expired, h.ID)
}

// fakeInvalidator records which shows had their cached seat maps
// dropped.
type fakeInvalidator struct {
	mu    sync.Mutex
	shows []uint64
}

func (f *fakeInvalidator) InvalidateShow(_ context.Context, showID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shows = append(f.shows, showID)
}

// seat builds an AVAILABLE seat for tests.
func seat(id, showID uint64, row string, number uint32) model.Seat {
	return model.Seat{ID: id, ShowID: showID, RowLabel: row, SeatNumber: number, Status: model.SeatAvailable}
}

// heldSeat builds a HELD seat for tests.
func heldSeat(id, showID uint64, row string, number uint32, holder string, expiresAt time.Time) model.Seat {
	exp := expiresAt.UTC()
	return model.Seat{ID: id, ShowID: showID, RowLabel: row, SeatNumber: number, Status: model.SeatHeld, HeldBy: holder, HoldExpiresAt: &exp}
}
