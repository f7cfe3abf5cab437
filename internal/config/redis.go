package config

// Redis backs three concerns: the seat-map response cache, distributed
// rate limiting, and the asynq hold-expiry task queue.  Connection
// parameters come from environment variables.  When the go-redis client
// cannot connect at startup, NewRedisClient returns nil and callers
// degrade gracefully by disabling caching and rate limiting.  The
// expiry queue, in contrast, is load-bearing; asynq manages its own
// connections from AsynqRedisOpt.

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// redisParams resolves address, password, database number and TLS use
// from REDIS_HOST/REDIS_PORT, REDIS_ADDR, REDIS_PASSWORD, REDIS_DB and
// REDIS_TLS.
func redisParams() (addr, password string, db int, tlsConf *tls.Config) {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	addr = os.Getenv("REDIS_ADDR")
	if host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	password = os.Getenv("REDIS_PASSWORD")
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if n, err := strconv.Atoi(dbStr); err == nil {
			db = n
		}
	}
	if tlsEnv := os.Getenv("REDIS_TLS"); strings.EqualFold(tlsEnv, "true") || tlsEnv == "1" {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	return addr, password, db, tlsConf
}

// NewRedisClient instantiates a go-redis client from the environment.
// The returned client is nil if a connection cannot be established.
func NewRedisClient() *redis.Client {
	addr, password, db, tlsConf := redisParams()
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  password,
		DB:        db,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

// AsynqRedisOpt builds the asynq connection options from the same
// environment variables the go-redis client uses.
func AsynqRedisOpt() asynq.RedisClientOpt {
	addr, password, db, tlsConf := redisParams()
	return asynq.RedisClientOpt{
		Addr:      addr,
		Password:  password,
		DB:        db,
		TLSConfig: tlsConf,
	}
}
