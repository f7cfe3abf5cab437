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

// BookingFinalizer converts an active hold into a permanent booking.
// Promotion is all-or-nothing over the requested seat set; a partial
// failure rolls every already-promoted seat back to HELD with its
// original holder and expiry before the error surfaces.
type BookingFinalizer struct {
	shows    ShowStore
	seats    SeatStore
	holds    HoldStore
	bookings BookingStore
	clk      clock.Clock
	events   Events // may be nil
}

// NewBookingFinalizer constructs a BookingFinalizer.  All stores and
// the clock must be non-nil; events is optional.
func NewBookingFinalizer(shows ShowStore, seats SeatStore, holds HoldStore, bookings BookingStore, clk clock.Clock, events Events) *BookingFinalizer {
	if shows == nil || seats == nil || holds == nil || bookings == nil || clk == nil {
		panic("nil dependency passed to NewBookingFinalizer")
	}
	return &BookingFinalizer{shows: shows, seats: seats, holds: holds, bookings: bookings, clk: clk, events: events}
}

// Confirm promotes the caller's hold on exactly the requested seats
// into a booking.  Preconditions: every seat is HELD by holderID with
// an unexpired lease.  Re-confirming an already-booked identical seat
// set for the same holder returns the existing booking, so a client
// that retries after a network timeout does not get an error.
func (f *BookingFinalizer) Confirm(ctx context.Context, showID uint64, seatIDs []uint64, holderID, paymentRef string) (*model.Booking, error) {
	if len(seatIDs) == 0 {
		return nil, fmt.Errorf("%w: seat ids are required", ErrInvalidArgument)
	}
	if holderID == "" {
		return nil, fmt.Errorf("%w: holder id is required", ErrInvalidArgument)
	}
	if _, err := f.shows.GetByID(ctx, showID); err != nil {
		return nil, err
	}
	unique := dedupe(seatIDs)
	if len(unique) == 0 {
		return nil, fmt.Errorf("%w: no valid seat ids", ErrInvalidArgument)
	}

	// Idempotent retry path: the exact seat set was already promoted
	// for this holder.
	if existing, err := f.bookings.FindBySeatSet(ctx, showID, holderID, unique); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrBookingNotFound) {
		return nil, err
	}

	seats, err := f.seats.GetSeats(ctx, showID, unique)
	if err != nil {
		return nil, err
	}
	if len(seats) != len(unique) {
		return nil, fmt.Errorf("%w: one or more seat ids are invalid for this show", repository.ErrSeatNotFound)
	}

	now := f.clk.Now()
	var invalid []uint64
	for i := range seats {
		s := &seats[i]
		if s.Status != model.SeatHeld || s.HeldBy != holderID || s.HoldLapsed(now) {
			invalid = append(invalid, s.ID)
		}
	}
	if len(invalid) > 0 {
		return nil, &ConfirmConflictError{SeatIDs: invalid}
	}

	// Promote seat by seat.  Guards carry the observed expiry so a
	// concurrent expiry action loses cleanly, and the expiry is kept
	// for rollback.
	type promoted struct {
		seatID    uint64
		expiresAt time.Time
	}
	var done []promoted
	rollback := func() {
		for _, p := range done {
			exp := p.expiresAt
			booked := model.SeatClaim{Status: model.SeatBooked}
			held := model.SeatClaim{Status: model.SeatHeld, HolderID: holderID, ExpiresAt: &exp}
			if err := f.seats.CompareAndSetStatus(ctx, showID, p.seatID, booked, held); err != nil {
				log.Printf("finalizer: rollback of seat %d to HELD failed: %v", p.seatID, err)
			}
		}
	}
	for i := range seats {
		s := &seats[i]
		held := model.SeatClaim{Status: model.SeatHeld, HolderID: holderID, ExpiresAt: s.HoldExpiresAt}
		if err := f.seats.CompareAndSetStatus(ctx, showID, s.ID, held, model.SeatClaim{Status: model.SeatBooked}); err != nil {
			rollback()
			if errors.Is(err, repository.ErrConflict) {
				return nil, &ConfirmConflictError{SeatIDs: []uint64{s.ID}}
			}
			return nil, err
		}
		done = append(done, promoted{seatID: s.ID, expiresAt: *s.HoldExpiresAt})
	}

	booking := &model.Booking{
		ID:         uuid.NewString(),
		ShowID:     showID,
		HolderID:   holderID,
		SeatIDs:    unique,
		PaymentRef: paymentRef,
		CreatedAt:  now,
	}
	if err := f.bookings.Create(ctx, booking); err != nil {
		rollback()
		if errors.Is(err, repository.ErrConflict) {
			return nil, &ConfirmConflictError{SeatIDs: unique}
		}
		return nil, err
	}

	// The hold ceases to exist: its seats are BOOKED now, not HELD.
	if err := f.holds.DeleteSeats(ctx, showID, unique); err != nil {
		log.Printf("finalizer: hold row cleanup after booking %s failed: %v", booking.ID, err)
	}
	if f.events != nil {
		f.events.BookingConfirmed(ctx, booking)
	}
	return booking, nil
}
