package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/seat-reservation/internal/middleware"
)

// ConfirmBookingRequest is the body of POST /bookings/confirm.
// PaymentRef is an opaque reference from the external payment gateway;
// the engine stores it without interpreting it.
type ConfirmBookingRequest struct {
	ShowID     uint64   `json:"showId"`
	SeatIDs    []uint64 `json:"seatIds"`
	HolderID   string   `json:"holderId"`
	PaymentRef string   `json:"paymentRef"`
}

// ConfirmBookingResponse is the success payload of a confirm request.
type ConfirmBookingResponse struct {
	BookingID  string    `json:"bookingId"`
	ShowID     uint64    `json:"showId"`
	SeatIDs    []uint64  `json:"seatIds"`
	Status     string    `json:"status"`
	PaymentRef string    `json:"paymentRef,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ConfirmBooking handles POST /bookings/confirm.  Promotes the caller's
// hold on exactly the requested seats into a permanent booking.
// Retrying after a timeout with the same seats returns the original
// booking with 201 rather than an error.
func (h *ReservationHandler) ConfirmBooking(c echo.Context) error {
	var body ConfirmBookingRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ShowID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "showId is required"})
	}
	holderID := middlewareHolder(c, body.HolderID)
	if holderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "holderId is required"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seatIds is required"})
	}

	booking, err := h.Bookings.Confirm(c.Request().Context(), body.ShowID, body.SeatIDs, holderID, body.PaymentRef)
	if err != nil {
		return h.mapError(c, err)
	}
	middleware.BumpShowGeneration(c.Request().Context(), h.Redis, h.CachePrefix, body.ShowID)
	return c.JSON(http.StatusCreated, ConfirmBookingResponse{
		BookingID:  booking.ID,
		ShowID:     booking.ShowID,
		SeatIDs:    booking.SeatIDs,
		Status:     "CONFIRMED",
		PaymentRef: booking.PaymentRef,
		CreatedAt:  booking.CreatedAt.UTC(),
	})
}
