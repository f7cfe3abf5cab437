package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/seat-reservation/internal/engine"
	"github.com/cinebook/seat-reservation/internal/middleware"
	"github.com/cinebook/seat-reservation/internal/repository"
)

// middlewareHolder resolves the effective holder: a verified identity
// from the bearer token wins over the explicit request value.
func middlewareHolder(c echo.Context, fallback string) string {
	return middleware.HolderID(c, fallback)
}

// mapError translates the engine/repository error taxonomy into HTTP
// responses.  Contention errors carry the conflicting seat IDs so the
// client can reselect.
func (h *ReservationHandler) mapError(c echo.Context, err error) error {
	var unavailable *engine.SeatsUnavailableError
	if errors.As(err, &unavailable) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "SeatsUnavailable",
			"seatIds": unavailable.SeatIDs,
		})
	}
	var conflict *engine.ConfirmConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, echo.Map{
			"error":   "HoldExpiredOrConflict",
			"seatIds": conflict.SeatIDs,
		})
	}
	switch {
	case errors.Is(err, repository.ErrShowNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
	case errors.Is(err, repository.ErrSeatNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "one or more seat ids are invalid for this show"})
	case errors.Is(err, engine.ErrInvalidArgument):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
