// Package repository implements MySQL persistence for shows, seats,
// holds and bookings.  This file defines sentinel error values shared
// across the repositories so that higher layers can distinguish failure
// scenarios with errors.Is instead of string matching.
package repository

import "errors"

// ErrShowNotFound is returned when a show with the requested ID does
// not exist.  Handlers translate this into an HTTP 404 response.
var ErrShowNotFound = errors.New("show not found")

// ErrSeatNotFound is returned when a seat does not exist for the given
// show.  Requests naming unknown seats are fatal, not retryable.
var ErrSeatNotFound = errors.New("seat not found")

// ErrConflict is returned when a compare-and-set does not observe the
// expected prior state, or when a uniqueness guard rejects an insert.
// The caller lost the race and must re-read before retrying.
var ErrConflict = errors.New("conflict")

// ErrBookingNotFound is returned when a booking lookup matches nothing.
var ErrBookingNotFound = errors.New("booking not found")
