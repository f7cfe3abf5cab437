package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cinebook/seat-reservation/internal/clock"
	"github.com/cinebook/seat-reservation/internal/model"
	"github.com/cinebook/seat-reservation/internal/repository"
)

// HoldManager grants and retracts time-bounded exclusive claims on
// seats.  It is safe for concurrent use from many goroutines: no
// internal locking is needed because every mutation is a per-seat
// compare-and-set against the seat store.
type HoldManager struct {
	shows     ShowStore
	seats     SeatStore
	holds     HoldStore
	clk       clock.Clock
	scheduler ExpiryScheduler // may be nil; expiry then relies on the sweep
	events    Events          // may be nil
	cache     CacheInvalidator
}

// NewHoldManager constructs a HoldManager.  shows, seats and holds must
// be non-nil; scheduler and events are optional.
func NewHoldManager(shows ShowStore, seats SeatStore, holds HoldStore, clk clock.Clock, scheduler ExpiryScheduler, events Events) *HoldManager {
	if shows == nil || seats == nil || holds == nil || clk == nil {
		panic("nil dependency passed to NewHoldManager")
	}
	return &HoldManager{shows: shows, seats: seats, holds: holds, clk: clk, scheduler: scheduler, events: events}
}

// SetCacheInvalidator registers the hook that drops cached seat maps
// when seats change without an HTTP request, i.e. through ExpireHold or
// Sweep.  Optional; call before the expiry worker starts.
func (m *HoldManager) SetCacheInvalidator(inv CacheInvalidator) {
	m.cache = inv
}

// Hold attempts to claim every seat in seatIDs for holderID until
// now+ttl.  All-or-nothing: if any seat cannot be transitioned the
// whole request fails with SeatsUnavailableError and seats already
// claimed during the attempt are rolled back to AVAILABLE.  A seat
// whose current hold has lapsed is reclaimed through the same guarded
// compare-and-set the scheduled expiry action uses.
func (m *HoldManager) Hold(ctx context.Context, showID uint64, seatIDs []uint64, holderID string, ttl time.Duration) (*model.Hold, error) {
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%w: seat ids are required", ErrInvalidArgument)
	}
	if holderID == "" {
		return nil, fmt.Errorf("%w: holder id is required", ErrInvalidArgument)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidArgument)
	}
	if _, err := m.shows.GetByID(ctx, showID); err != nil {
		return nil, err
	}
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no valid seat ids", ErrInvalidArgument)
	}
	seats, err := m.seats.GetSeats(ctx, showID, unique)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(unique) {
		return nil, fmt.Errorf("%w: one or more seat ids are invalid for this show", repository.ErrSeatNotFound)
	}

	now := m.clk.Now()
	expiresAt := now.Add(ttl).Truncate(time.Millisecond)

	// Precheck against the snapshot so a hopeless request lists every
	// conflicting seat without mutating anything.
	var conflicted []uint64
	for i := range seats {
		s := &seats[i]
		if s.Status == model.SeatBooked || (s.Status == model.SeatHeld && !s.HoldLapsed(now)) {
			conflicted = append(conflicted, s.ID)
		}
	}
	if len(conflicted) > 0 {
		return nil, &SeatsUnavailableError{SeatIDs: conflicted}
	}

	next := model.SeatClaim{Status: model.SeatHeld, HolderID: holderID, ExpiresAt: &expiresAt}
	var claimed []uint64
	for i := range seats {
		s := &seats[i]
		if err := m.claimSeat(ctx, s, now, next); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				m.rollbackClaims(ctx, showID, claimed, holderID, expiresAt)
				return nil, &SeatsUnavailableError{SeatIDs: []uint64{s.ID}}
			}
			m.rollbackClaims(ctx, showID, claimed, holderID, expiresAt)
			return nil, err
		}
		claimed = append(claimed, s.ID)
	}

	hold := &model.Hold{
		ID:        uuid.NewString(),
		ShowID:    showID,
		HolderID:  holderID,
		SeatIDs:   claimed,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := m.holds.Create(ctx, hold); err != nil {
		m.rollbackClaims(ctx, showID, claimed, holderID, expiresAt)
		return nil, err
	}
	if m.scheduler != nil {
		// A failed enqueue is not fatal: the sweep releases lapsed
		// seats even without a per-hold task.
		if err := m.scheduler.ScheduleHoldExpiry(ctx, hold.ID, hold.ExpiresAt); err != nil {
			log.Printf("hold-manager: schedule expiry for hold %s failed: %v", hold.ID, err)
		}
	}
	return hold, nil
}

// claimSeat transitions one seat to HELD.  A lapsed foreign hold is
// expired first, guarded on its original holder and expiry so a
// concurrent promotion is never clobbered.
func (m *HoldManager) claimSeat(ctx context.Context, s *model.Seat, now time.Time, next model.SeatClaim) error {
	if s.HoldLapsed(now) {
		stale := model.SeatClaim{Status: model.SeatHeld, HolderID: s.HeldBy, ExpiresAt: s.HoldExpiresAt}
		if err := m.seats.CompareAndSetStatus(ctx, s.ShowID, s.ID, stale, model.SeatClaim{Status: model.SeatAvailable}); err != nil {
			return err
		}
		if err := m.holds.DeleteSeats(ctx, s.ShowID, []uint64{s.ID}); err != nil {
			log.Printf("hold-manager: cleanup of lapsed hold row for seat %d failed: %v", s.ID, err)
		}
	}
	return m.seats.CompareAndSetStatus(ctx, s.ShowID, s.ID, model.SeatClaim{Status: model.SeatAvailable}, next)
}

// rollbackClaims reverts seats claimed during a failed Hold attempt.
// Guarded on our own holder and expiry; a conflict here means the seat
// already moved on and needs no repair.
func (m *HoldManager) rollbackClaims(ctx context.Context, showID uint64, seatIDs []uint64, holderID string, expiresAt time.Time) {
	mine := model.SeatClaim{Status: model.SeatHeld, HolderID: holderID, ExpiresAt: &expiresAt}
	for _, seatID := range seatIDs {
		if err := m.seats.CompareAndSetStatus(ctx, showID, seatID, mine, model.SeatClaim{Status: model.SeatAvailable}); err != nil && !errors.Is(err, repository.ErrConflict) {
			log.Printf("hold-manager: rollback of seat %d failed: %v", seatID, err)
		}
	}
}

// Release transitions each named seat HELD→AVAILABLE if and only if it
// is held by holderID.  Best-effort per seat: seats held by someone
// else are reported as not_yours, free or booked seats as not_held,
// unknown seats as not_found.  Releasing is never harmful to
// correctness, so no outcome fails the call.
func (m *HoldManager) Release(ctx context.Context, showID uint64, seatIDs []uint64, holderID string) ([]ReleaseResult, error) {
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%w: seat ids are required", ErrInvalidArgument)
	}
	if holderID == "" {
		return nil, fmt.Errorf("%w: holder id is required", ErrInvalidArgument)
	}
	if _, err := m.shows.GetByID(ctx, showID); err != nil {
		return nil, err
	}
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no valid seat ids", ErrInvalidArgument)
	}
	seats, err := m.seats.GetSeats(ctx, showID, unique)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]*model.Seat, len(seats))
	for i := range seats {
		byID[seats[i].ID] = &seats[i]
	}

	results := make([]ReleaseResult, 0, len(unique))
	var released []uint64
	for _, seatID := range unique {
		s, ok := byID[seatID]
		if !ok {
			results = append(results, ReleaseResult{SeatID: seatID, Outcome: ReleaseNotFound})
			continue
		}
		switch {
		case s.Status == model.SeatHeld && s.HeldBy == holderID:
			mine := model.SeatClaim{Status: model.SeatHeld, HolderID: holderID, ExpiresAt: s.HoldExpiresAt}
			err := m.seats.CompareAndSetStatus(ctx, showID, seatID, mine, model.SeatClaim{Status: model.SeatAvailable})
			if err == nil {
				released = append(released, seatID)
				results = append(results, ReleaseResult{SeatID: seatID, Outcome: ReleaseReleased, Status: model.SeatAvailable})
			} else if errors.Is(err, repository.ErrConflict) {
				// Lost a race with expiry or promotion; nothing left to release.
				results = append(results, ReleaseResult{SeatID: seatID, Outcome: ReleaseNotHeld, Status: s.Status})
			} else {
				return nil, err
			}
		case s.Status == model.SeatHeld:
			log.Printf("hold-manager: release of seat %d by %q skipped, held by %q", seatID, holderID, s.HeldBy)
			results = append(results, ReleaseResult{SeatID: seatID, Outcome: ReleaseNotYours, Status: s.Status})
		default:
			results = append(results, ReleaseResult{SeatID: seatID, Outcome: ReleaseNotHeld, Status: s.Status})
		}
	}
	if err := m.holds.DeleteSeats(ctx, showID, released); err != nil {
		log.Printf("hold-manager: hold row cleanup after release failed: %v", err)
	}
	return results, nil
}

// HoldsOf returns the holder's currently active holds for a show.  The
// client reconciler uses this to recover state after reconnecting
// instead of trusting client-cached state.
func (m *HoldManager) HoldsOf(ctx context.Context, showID uint64, holderID string) ([]model.Hold, error) {
	if holderID == "" {
		return nil, fmt.Errorf("%w: holder id is required", ErrInvalidArgument)
	}
	if _, err := m.shows.GetByID(ctx, showID); err != nil {
		return nil, err
	}
	return m.holds.ActiveByHolder(ctx, showID, holderID, m.clk.Now())
}

// ExpireHold is the scheduled expiry action for a hold.  It is a no-op
// when the hold no longer exists or carries a different expiry than the
// one the task was scheduled with (the hold was released, promoted or
// re-issued in the meantime).  Each seat is released through a
// compare-and-set guarded on the original holder and expiry, so a seat
// promoted to BOOKED a moment earlier is never reverted.
func (m *HoldManager) ExpireHold(ctx context.Context, holdID string, expectedExpiry time.Time) error {
	h, err := m.holds.GetByID(ctx, holdID)
	if err != nil {
		return err
	}
	if h == nil || !h.ExpiresAt.Equal(expectedExpiry) {
		return nil
	}
	stale := model.SeatClaim{Status: model.SeatHeld, HolderID: h.HolderID, ExpiresAt: &h.ExpiresAt}
	for _, seatID := range h.SeatIDs {
		err := m.seats.CompareAndSetStatus(ctx, h.ShowID, seatID, stale, model.SeatClaim{Status: model.SeatAvailable})
		if err != nil && !errors.Is(err, repository.ErrConflict) {
			return err
		}
	}
	if err := m.holds.Delete(ctx, holdID); err != nil {
		return err
	}
	if m.events != nil {
		m.events.HoldExpired(ctx, h)
	}
	if m.cache != nil {
		m.cache.InvalidateShow(ctx, h.ShowID)
	}
	return nil
}

// Sweep releases every HELD seat whose lease has lapsed, across all
// shows.  It backs up the per-hold expiry tasks and covers the crash
// window between a seat being claimed and its hold row landing.
// Returns the number of seats released.
func (m *HoldManager) Sweep(ctx context.Context) (int, error) {
	now := m.clk.Now()
	lapsed, err := m.seats.ListLapsedHeld(ctx, now)
	if err != nil {
		return 0, err
	}
	released := 0
	touched := make(map[uint64]struct{})
	for i := range lapsed {
		s := &lapsed[i]
		stale := model.SeatClaim{Status: model.SeatHeld, HolderID: s.HeldBy, ExpiresAt: s.HoldExpiresAt}
		err := m.seats.CompareAndSetStatus(ctx, s.ShowID, s.ID, stale, model.SeatClaim{Status: model.SeatAvailable})
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			m.invalidateShows(ctx, touched)
			return released, err
		}
		if err := m.holds.DeleteSeats(ctx, s.ShowID, []uint64{s.ID}); err != nil {
			log.Printf("hold-manager: sweep hold row cleanup for seat %d failed: %v", s.ID, err)
		}
		released++
		touched[s.ShowID] = struct{}{}
	}
	m.invalidateShows(ctx, touched)
	return released, nil
}

func (m *HoldManager) invalidateShows(ctx context.Context, showIDs map[uint64]struct{}) {
	if m.cache == nil {
		return
	}
	for id := range showIDs {
		m.cache.InvalidateShow(ctx, id)
	}
}

// dedupe preserves first-seen order while dropping zero and duplicate
// seat IDs.
func dedupe(seatIDs []uint64) []uint64 {
	unique := make([]uint64, 0, len(seatIDs))
	seen := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	return unique
}
