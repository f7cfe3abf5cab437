// Package handler exposes the HTTP surface of the reservation engine:
// the seat-map query, hold placement and release, booking confirmation
// and hold re-query.  Handlers bind and validate requests, delegate to
// the engine and translate its error taxonomy into status codes; they
// never touch the seat store's mutation primitive themselves.
package handler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinebook/seat-reservation/internal/clock"
	"github.com/cinebook/seat-reservation/internal/engine"
	"github.com/cinebook/seat-reservation/internal/model"
)

// HoldService is the slice of the hold manager the handlers use.
type HoldService interface {
	Hold(ctx context.Context, showID uint64, seatIDs []uint64, holderID string, ttl time.Duration) (*model.Hold, error)
	Release(ctx context.Context, showID uint64, seatIDs []uint64, holderID string) ([]engine.ReleaseResult, error)
	HoldsOf(ctx context.Context, showID uint64, holderID string) ([]model.Hold, error)
}

// ConfirmService is the slice of the booking finalizer the handlers use.
type ConfirmService interface {
	Confirm(ctx context.Context, showID uint64, seatIDs []uint64, holderID, paymentRef string) (*model.Booking, error)
}

// SeatMapSource reads the authoritative seat snapshot.
type SeatMapSource interface {
	Snapshot(ctx context.Context, showID uint64) ([]model.Seat, []string, error)
}

// HoldLimits are the accepted bounds for the holdMinutes request field.
type HoldLimits struct {
	DefaultMinutes int
	MinMinutes     int
	MaxMinutes     int
}

// ReservationHandler groups the engine services behind the public API.
type ReservationHandler struct {
	Seats    SeatMapSource
	Holds    HoldService
	Bookings ConfirmService
	Clock    clock.Clock
	Limits   HoldLimits

	// PollSeconds is the re-fetch interval suggested to polling
	// clients in the seat-map payload.
	PollSeconds int

	// Cache invalidation; both may be zero-valued when caching is off.
	Redis       *redis.Client
	CachePrefix string
}

// NewReservationHandler constructs a ReservationHandler.  Redis and
// cachePrefix are optional.
func NewReservationHandler(seats SeatMapSource, holds HoldService, bookings ConfirmService, clk clock.Clock, limits HoldLimits, rdb *redis.Client, cachePrefix string) *ReservationHandler {
	if seats == nil || holds == nil || bookings == nil || clk == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	if limits.DefaultMinutes <= 0 {
		limits.DefaultMinutes = 10
	}
	if limits.MinMinutes <= 0 {
		limits.MinMinutes = 5
	}
	if limits.MaxMinutes < limits.MinMinutes {
		limits.MaxMinutes = limits.DefaultMinutes
	}
	return &ReservationHandler{
		Seats:       seats,
		Holds:       holds,
		Bookings:    bookings,
		Clock:       clk,
		Limits:      limits,
		Redis:       rdb,
		CachePrefix: cachePrefix,
	}
}
