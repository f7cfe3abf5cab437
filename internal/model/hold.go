package model

import "time"

// Hold is a time-bounded exclusive claim on one or more seats of a
// single show.  All seats of a hold share the same holder and the same
// expiry.  A hold ceases to exist the moment it expires, is released or
// is promoted into a booking; there is no "expired hold" state.
//
// Fields:
//
//	ID        – opaque hold identifier (UUID) returned to the client.
//	ShowID    – show whose seats are held.
//	HolderID  – identity that owns the claim.
//	SeatIDs   – seats covered by the claim.
//	ExpiresAt – shared lease deadline for every seat in the hold.
//	CreatedAt – when the hold was granted.
type Hold struct {
	ID        string    // seat_holds.hold_id
	ShowID    uint64    // seat_holds.show_id
	HolderID  string    // seat_holds.holder_id
	SeatIDs   []uint64  // seat_holds.seat_id, one row per seat
	ExpiresAt time.Time // seat_holds.expires_at
	CreatedAt time.Time // seat_holds.created_at
}

// Active reports whether the hold's lease is still running at the given
// instant.
func (h *Hold) Active(now time.Time) bool { return h.ExpiresAt.After(now) }
