package model

import "time"

// Booking is the permanent record of seats owned by an identity for a
// show.  It is created exclusively by promoting a valid hold and is
// immutable afterwards; PaymentRef is an external correlation field not
// interpreted by the engine.
//
// Fields:
//
//	ID         – booking identifier (UUID).
//	ShowID     – show the seats belong to.
//	HolderID   – identity that owned the promoted hold.
//	SeatIDs    – seats owned by this booking.
//	PaymentRef – opaque payment-gateway reference supplied by the caller.
//	CreatedAt  – promotion timestamp.
type Booking struct {
	ID         string    // bookings.id
	ShowID     uint64    // bookings.show_id
	HolderID   string    // bookings.holder_id
	SeatIDs    []uint64  // booking_seats.seat_id
	PaymentRef string    // bookings.payment_ref
	CreatedAt  time.Time // bookings.created_at
}
