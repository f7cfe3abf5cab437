package config

import (
	"os"
	"strconv"
	"time"
)

// CacheConfig defines settings for the seat-map response cache.  When
// Enabled is false or no Redis client is available, caching is
// disabled.  TTL bounds how stale a served seat map may be; mutation
// handlers additionally bump a per-show generation key so writes
// invalidate immediately instead of waiting out the TTL.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: getenv("CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("CACHE_TTL", "3s"), 3*time.Second),
		Prefix:  getenv("CACHE_PREFIX", "seatmap"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func atoi(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
