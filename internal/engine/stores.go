// Package engine implements the seat reservation core: the hold
// manager and the booking finalizer.  All mutation funnels through the
// seat store's compare-and-set primitive, which is what turns races
// into explicit conflicts instead of silent overwrites.  Conflict
// arbitration is exactly that discipline: the first compare-and-set to
// commit on a seat wins, losers are told to re-read and retry.
package engine

import (
	"context"
	"time"

	"github.com/cinebook/seat-reservation/internal/model"
)

// SeatStore is the authoritative per-show seat state.  Implemented by
// repository.SeatRepo; tests use an in-memory fake with the same
// per-seat linearizability guarantee.
type SeatStore interface {
	Snapshot(ctx context.Context, showID uint64) ([]model.Seat, []string, error)
	GetSeats(ctx context.Context, showID uint64, seatIDs []uint64) ([]model.Seat, error)
	ListLapsedHeld(ctx context.Context, now time.Time) ([]model.Seat, error)
	CompareAndSetStatus(ctx context.Context, showID, seatID uint64, expected, next model.SeatClaim) error
}

// HoldStore persists hold metadata.  Seat authority stays in SeatStore;
// these records exist so holds can be re-queried after a client
// reconnect and re-scheduled after a process restart.
type HoldStore interface {
	Create(ctx context.Context, h *model.Hold) error
	GetByID(ctx context.Context, holdID string) (*model.Hold, error)
	ActiveByHolder(ctx context.Context, showID uint64, holderID string, now time.Time) ([]model.Hold, error)
	ListActive(ctx context.Context, now time.Time) ([]model.Hold, error)
	Delete(ctx context.Context, holdID string) error
	DeleteSeats(ctx context.Context, showID uint64, seatIDs []uint64) error
}

// BookingStore persists promoted bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	FindBySeatSet(ctx context.Context, showID uint64, holderID string, seatIDs []uint64) (*model.Booking, error)
}

// ShowStore resolves show existence.  Shows themselves are owned by the
// scheduling subsystem and read-only here.
type ShowStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Show, error)
}

// ExpiryScheduler schedules the expiry action of a freshly granted
// hold.  The action is keyed on (holdID, expiresAt) so a hold that was
// promoted or released before the deadline is never erroneously
// expired: the handler re-checks state before acting.
type ExpiryScheduler interface {
	ScheduleHoldExpiry(ctx context.Context, holdID string, expiresAt time.Time) error
}

// CacheInvalidator drops cached seat maps of a show after a mutation
// that did not come through the HTTP layer (scheduled expiry, sweep).
// HTTP mutations invalidate in their handlers.
type CacheInvalidator interface {
	InvalidateShow(ctx context.Context, showID uint64)
}

// Events is the process-scoped notification channel.  Delivery is
// best-effort by contract: clients reconcile by re-reading
// authoritative state, never by trusting a pushed event.
type Events interface {
	BookingConfirmed(ctx context.Context, b *model.Booking)
	HoldExpired(ctx context.Context, h *model.Hold)
}
