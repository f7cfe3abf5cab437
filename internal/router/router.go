// Package router wires the public API routes to their handlers and
// middleware.  Paths follow the external contract exactly; there is no
// version prefix.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cinebook/seat-reservation/internal/config"
	"github.com/cinebook/seat-reservation/internal/handler"
	"github.com/cinebook/seat-reservation/internal/middleware"
)

// RegisterRoutes registers all routes on the provided Echo instance.
// rdb may be nil, which disables the response cache and rate limiter.
func RegisterRoutes(e *echo.Echo, h *handler.ReservationHandler, cfg config.Config, cacheCfg config.CacheConfig, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	e.Use(middleware.HolderIdentity(cfg.JWTSecret))

	limited := middleware.NewTokenBucket(rlCfg, rdb)

	// Query interface.  The seat map read tolerates bounded staleness,
	// so it sits behind the generation-keyed response cache.
	e.GET("/shows/:showId/seats", h.GetSeatMap, middleware.SeatMapCache(cacheCfg, rdb))
	e.GET("/shows/:showId/holds", h.GetHolds)

	// Mutations go through the rate limiter; every one of them funnels
	// into the engine's compare-and-set discipline.
	e.POST("/shows/:showId/seats/hold", h.HoldSeats, limited)
	e.POST("/shows/:showId/seats/release", h.ReleaseSeats, limited)
	e.POST("/bookings/confirm", h.ConfirmBooking, limited)
}
