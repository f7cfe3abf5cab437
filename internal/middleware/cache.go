package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/cinebook/seat-reservation/internal/config"
)

// The seat-map read is eventually consistent by contract, so serving it
// from a short-lived Redis cache is allowed.  Staleness is doubly
// bounded: entries expire after the configured TTL, and every mutation
// on a show bumps that show's generation counter, which is part of the
// cache key, so writes invalidate immediately.

type cachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// genKey is the per-show generation counter key.
func genKey(prefix string, showID string) string {
	return fmt.Sprintf("%s:gen:%s", prefix, showID)
}

// BumpShowGeneration invalidates all cached seat maps of a show.
// Called by mutation handlers after a successful hold, release, confirm
// or expiry.  Errors are ignored: the TTL still bounds staleness.
func BumpShowGeneration(ctx context.Context, rdb *redis.Client, prefix string, showID uint64) {
	if rdb == nil {
		return
	}
	_ = rdb.Incr(ctx, genKey(prefix, fmt.Sprintf("%d", showID))).Err()
}

// ShowCacheInvalidator adapts generation bumping for callers outside
// the HTTP layer, such as the expiry worker and the sweep.
type ShowCacheInvalidator struct {
	Redis  *redis.Client
	Prefix string
}

func (i *ShowCacheInvalidator) InvalidateShow(ctx context.Context, showID uint64) {
	BumpShowGeneration(ctx, i.Redis, i.Prefix, showID)
}

// SeatMapCache caches successful seat-map responses per
// (show, generation, holder).  With caching disabled or no Redis client
// the middleware is a pass-through.
func SeatMapCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			ctx := c.Request().Context()
			showID := c.Param("showId")
			gen, err := rdb.Get(ctx, genKey(cfg.Prefix, showID)).Result()
			if err != nil {
				gen = "0"
			}
			key := fmt.Sprintf("%s:%s:g%s:h%s", cfg.Prefix, showID, gen, c.QueryParam("holderId"))

			if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var cached cachedResponse
				if json.Unmarshal(raw, &cached) == nil {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.JSONBlob(cached.Status, cached.Body)
				}
			}

			rec := &recordingWriter{ResponseWriter: c.Response().Writer}
			c.Response().Writer = rec
			if err := next(c); err != nil {
				return err
			}
			if rec.status == http.StatusOK && len(rec.body) > 0 {
				raw, err := json.Marshal(cachedResponse{Status: rec.status, Body: rec.body})
				if err == nil {
					_ = rdb.Set(ctx, key, raw, cfg.TTL).Err()
				}
			}
			return nil
		}
	}
}

// recordingWriter captures the response body and status while
// forwarding to the client.
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   []byte
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	// Bodies over 1 MiB are never cached.
	if len(w.body) < 1<<20 {
		w.body = append(w.body, b...)
	}
	return w.ResponseWriter.Write(b)
}
