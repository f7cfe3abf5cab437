// Package queue is the process-external event channel for seat
// lifecycle changes, carried over RabbitMQ.  Delivery is best-effort by
// contract: clients reconcile by re-reading authoritative seat state,
// so a lost event never loses a seat.
package queue

// Queue names.  Both queues are declared durable.
const (
	BookingConfirmedQueue = "booking.confirmed"
	HoldExpiredQueue      = "hold.expired"
)

// BookingConfirmedEvent is published when a hold is promoted into a
// booking.  It carries enough for downstream consumers to log or notify
// without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID   string   `json:"booking_id"`
	ShowID      uint64   `json:"show_id"`
	HolderID    string   `json:"holder_id"`
	SeatIDs     []uint64 `json:"seat_ids"`
	PaymentRef  string   `json:"payment_ref,omitempty"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// HoldExpiredEvent is published when a hold's lease lapses without
// release or promotion and its seats revert to AVAILABLE.
type HoldExpiredEvent struct {
	HoldID    string   `json:"hold_id"`
	ShowID    uint64   `json:"show_id"`
	HolderID  string   `json:"holder_id"`
	SeatIDs   []uint64 `json:"seat_ids"`
	ExpiredAt string   `json:"expired_at"`
}
