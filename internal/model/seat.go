package model

import "time"

// Seat statuses.  A seat moves AVAILABLE -> HELD -> {AVAILABLE, BOOKED};
// BOOKED is terminal for the seat within its show.
const (
	SeatAvailable = "AVAILABLE"
	SeatHeld      = "HELD"
	SeatBooked    = "BOOKED"
)

// Seat describes one seat of one show together with its current
// reservation state.  Seats are uniquely identified by their show, row
// label and seat number.  HeldBy and HoldExpiresAt are only meaningful
// while Status is HELD.
//
// Fields:
//
//	ID            – primary key identifier.
//	ShowID        – show to which this seat belongs.
//	RowLabel      – letter or string designating the row.
//	SeatNumber    – number of the seat within the row.
//	Status        – AVAILABLE, HELD or BOOKED.
//	HeldBy        – identity of the current holder, empty unless HELD.
//	HoldExpiresAt – when the current hold lapses, nil unless HELD.
//	Version       – bumped on every status change; backs the
//	                compare-and-set discipline in the seat store.
//	CreatedAt     – creation timestamp.
//	UpdatedAt     – last update timestamp.
type Seat struct {
	ID            uint64     // seats.id
	ShowID        uint64     // seats.show_id
	RowLabel      string     // seats.row_label
	SeatNumber    uint32     // seats.seat_number
	Status        string     // seats.status
	HeldBy        string     // seats.held_by (empty when not held)
	HoldExpiresAt *time.Time // seats.hold_expires_at (nil when not held)
	Version       uint32     // seats.version
	CreatedAt     time.Time  // seats.created_at
	UpdatedAt     time.Time  // seats.updated_at
}

// SeatClaim is one side of a compare-and-set on a seat: either the state
// the caller expects to observe, or the state to install.  An empty
// HolderID or nil ExpiresAt in an expected claim means "do not guard on
// this field"; in a new claim it means "clear this field".
type SeatClaim struct {
	Status    string
	HolderID  string
	ExpiresAt *time.Time
}

// HoldLapsed reports whether the seat is HELD but its lease has already
// passed at the given instant.  Such seats are reclaimable: the engine
// expires them through the same compare-and-set used by the scheduled
// expiry action.
func (s *Seat) HoldLapsed(now time.Time) bool {
	return s.Status == SeatHeld && s.HoldExpiresAt != nil && !s.HoldExpiresAt.After(now)
}
