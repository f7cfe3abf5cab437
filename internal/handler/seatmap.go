package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/seat-reservation/internal/model"
	"github.com/cinebook/seat-reservation/internal/repository"
)

// SeatStatusResponse is one seat of the seat map.  HoldExpiresAt and
// RemainingSeconds are present only on seats held by the requesting
// holder; clients derive their countdown from HoldExpiresAt, never from
// a local timer alone.
type SeatStatusResponse struct {
	SeatID            uint64     `json:"seatId"`
	RowLabel          string     `json:"rowLabel"`
	SeatNumber        uint32     `json:"seatNumber"`
	Status            string     `json:"status"`
	HeldByCurrentUser bool       `json:"heldByCurrentUser"`
	HoldExpiresAt     *time.Time `json:"holdExpiresAt,omitempty"`
	RemainingSeconds  *int64     `json:"remainingSeconds,omitempty"`
}

// SeatMapResponse is the payload of GET /shows/:showId/seats.
// PollSeconds is the suggested re-fetch interval for polling clients.
type SeatMapResponse struct {
	ShowID      uint64               `json:"showId"`
	Rows        []string             `json:"rows"`
	Seats       []SeatStatusResponse `json:"seats"`
	PollSeconds int                  `json:"pollSeconds,omitempty"`
}

// GetSeatMap handles GET /shows/:showId/seats.  The optional holderId
// query parameter marks the caller's own held seats.  Seats whose hold
// has lapsed but not yet been swept are presented as AVAILABLE; the
// write path revalidates against authoritative state anyway, so the
// view never has to mutate anything.
func (h *ReservationHandler) GetSeatMap(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("showId"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	holderID := middlewareHolder(c, c.QueryParam("holderId"))

	seats, rows, err := h.Seats.Snapshot(c.Request().Context(), showID)
	if err != nil {
		if errors.Is(err, repository.ErrShowNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	now := h.Clock.Now()
	resp := SeatMapResponse{
		ShowID:      showID,
		Rows:        rows,
		Seats:       make([]SeatStatusResponse, 0, len(seats)),
		PollSeconds: h.PollSeconds,
	}
	for i := range seats {
		s := &seats[i]
		out := SeatStatusResponse{
			SeatID:     s.ID,
			RowLabel:   s.RowLabel,
			SeatNumber: s.SeatNumber,
			Status:     s.Status,
		}
		if s.HoldLapsed(now) {
			out.Status = model.SeatAvailable
		} else if s.Status == model.SeatHeld && holderID != "" && s.HeldBy == holderID {
			out.HeldByCurrentUser = true
			exp := s.HoldExpiresAt.UTC()
			out.HoldExpiresAt = &exp
			remaining := int64(exp.Sub(now) / time.Second)
			if remaining < 0 {
				remaining = 0
			}
			out.RemainingSeconds = &remaining
		}
		resp.Seats = append(resp.Seats, out)
	}
	return c.JSON(http.StatusOK, resp)
}

// HoldResponse is one active hold in the holds re-query payload.
type HoldResponse struct {
	HoldID        string    `json:"holdId"`
	SeatIDs       []uint64  `json:"seatIds"`
	HoldExpiresAt time.Time `json:"holdExpiresAt"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GetHolds handles GET /shows/:showId/holds?holderId=.  Clients call it
// after reconnecting to recover their active holds from authoritative
// state instead of trusting whatever they had cached.
func (h *ReservationHandler) GetHolds(c echo.Context) error {
	showID, err := strconv.ParseUint(c.Param("showId"), 10, 64)
	if err != nil || showID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
	}
	holderID := middlewareHolder(c, c.QueryParam("holderId"))
	if holderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "holderId is required"})
	}
	holds, err := h.Holds.HoldsOf(c.Request().Context(), showID, holderID)
	if err != nil {
		return h.mapError(c, err)
	}
	out := make([]HoldResponse, 0, len(holds))
	for i := range holds {
		hd := &holds[i]
		out = append(out, HoldResponse{
			HoldID:        hd.ID,
			SeatIDs:       hd.SeatIDs,
			HoldExpiresAt: hd.ExpiresAt.UTC(),
			CreatedAt:     hd.CreatedAt.UTC(),
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"showId": showID, "holds": out})
}
