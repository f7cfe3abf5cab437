package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a request is malformed (empty
// seat set, missing holder, non-positive TTL).  Not retryable as-is.
var ErrInvalidArgument = errors.New("invalid argument")

// SeatsUnavailableError is returned by Hold when any requested seat is
// already held or booked.  The request is all-or-nothing: no seat from
// the request remains held after this error.  SeatIDs lists every
// conflicting seat so the client can reselect.
type SeatsUnavailableError struct {
	SeatIDs []uint64
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable: %v", e.SeatIDs)
}

// ConfirmConflictError is returned by Confirm when any requested seat
// is no longer validly held by the caller: the lease lapsed, the seat
// was re-held by someone else, or it was never held.  The caller must
// restart the hold flow rather than retry confirm blindly.
type ConfirmConflictError struct {
	SeatIDs []uint64
}

func (e *ConfirmConflictError) Error() string {
	return fmt.Sprintf("hold expired or conflicted: %v", e.SeatIDs)
}

// Release outcomes reported per seat.  Seats the caller does not
// hold are skipped and reported, not turned into a call-level failure.
const (
	ReleaseReleased = "released"  // seat was held by the caller and is AVAILABLE again
	ReleaseNotYours = "not_yours" // seat is held by a different identity
	ReleaseNotHeld  = "not_held"  // seat was not held at all (already free or booked)
	ReleaseNotFound = "not_found" // seat does not belong to the show
)

// ReleaseResult reports what happened to one seat of a release request.
// Status carries the seat's status after the call for seats that exist.
type ReleaseResult struct {
	SeatID  uint64
	Outcome string
	Status  string
}
