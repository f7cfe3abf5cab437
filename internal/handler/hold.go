package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/seat-reservation/internal/middleware"
)

// HoldSeatsRequest is the body of POST /shows/:showId/seats/hold.
type HoldSeatsRequest struct {
	SeatIDs     []uint64 `json:"seatIds"`
	HolderID    string   `json:"holderId"`
	HoldMinutes *int     `json:"holdMinutes,omitempty"`
}

// HoldSeatsResponse is the success payload of a hold request.
type HoldSeatsResponse struct {
	HoldID        string    `json:"holdId"`
	ShowID        uint64    `json:"showId"`
	SeatIDs       []uint64  `json:"seats"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
}

// HoldSeats handles POST /shows/:showId/seats/hold.  All-or-nothing:
// either every requested seat is held until the returned expiry, or the
// request fails with 409 listing the conflicting seats and nothing is
// held.
func (h *ReservationHandler) HoldSeats(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("showId"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body HoldSeatsRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	holderID := middlewareHolder(c, body.HolderID)
	if holderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "holderId is required"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seatIds is required"})
	}
	minutes := h.Limits.DefaultMinutes
	if body.HoldMinutes != nil {
		minutes = *body.HoldMinutes
	}
	if minutes < h.Limits.MinMinutes || minutes > h.Limits.MaxMinutes {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": fmt.Sprintf("holdMinutes must be between %d and %d", h.Limits.MinMinutes, h.Limits.MaxMinutes),
		})
	}

	hold, err := h.Holds.Hold(c.Request().Context(), showID, body.SeatIDs, holderID, time.Duration(minutes)*time.Minute)
	if err != nil {
		return h.mapError(c, err)
	}
	middleware.BumpShowGeneration(c.Request().Context(), h.Redis, h.CachePrefix, showID)
	return c.JSON(http.StatusCreated, HoldSeatsResponse{
		HoldID:        hold.ID,
		ShowID:        hold.ShowID,
		SeatIDs:       hold.SeatIDs,
		HoldExpiresAt: hold.ExpiresAt.UTC(),
	})
}

// ReleaseSeatsRequest is the body of POST /shows/:showId/seats/release.
type ReleaseSeatsRequest struct {
	SeatIDs  []uint64 `json:"seatIds"`
	HolderID string   `json:"holderId"`
}

// SeatReleaseResponse reports the outcome for one seat of a release
// request.  result distinguishes "nothing to release" from "that seat
// was not mine"; the call as a whole never fails on either.
type SeatReleaseResponse struct {
	SeatID uint64 `json:"seatId"`
	Result string `json:"result"`
	Status string `json:"status,omitempty"`
}

// ReleaseSeats handles POST /shows/:showId/seats/release.  Best-effort
// per seat: seats held by other identities are left untouched and
// reported as not_yours.
func (h *ReservationHandler) ReleaseSeats(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("showId"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	var body ReleaseSeatsRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	holderID := middlewareHolder(c, body.HolderID)
	if holderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "holderId is required"})
	}
	if len(body.SeatIDs) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seatIds is required"})
	}

	results, err := h.Holds.Release(c.Request().Context(), showID, body.SeatIDs, holderID)
	if err != nil {
		return h.mapError(c, err)
	}
	middleware.BumpShowGeneration(c.Request().Context(), h.Redis, h.CachePrefix, showID)
	out := make([]SeatReleaseResponse, 0, len(results))
	for _, r := range results {
		out = append(out, SeatReleaseResponse{SeatID: r.SeatID, Result: r.Outcome, Status: r.Status})
	}
	return c.JSON(http.StatusOK, echo.Map{"showId": showID, "seats": out})
}
