package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/cinebook/seat-reservation/internal/clock"
	"github.com/cinebook/seat-reservation/internal/config"
	"github.com/cinebook/seat-reservation/internal/database"
	"github.com/cinebook/seat-reservation/internal/engine"
	"github.com/cinebook/seat-reservation/internal/expiry"
	"github.com/cinebook/seat-reservation/internal/handler"
	"github.com/cinebook/seat-reservation/internal/middleware"
	"github.com/cinebook/seat-reservation/internal/queue"
	"github.com/cinebook/seat-reservation/internal/repository"
	"github.com/cinebook/seat-reservation/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	showRepo := repository.NewShowRepo(db)
	seatRepo := repository.NewSeatRepo(db)
	holdRepo := repository.NewHoldRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	clk := clock.NewSystem()
	events := queue.NewPublisher(cfg.AMQPURL)

	redisOpt := config.AsynqRedisOpt()
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()
	scheduler := expiry.NewScheduler(asynqClient)

	holdManager := engine.NewHoldManager(showRepo, seatRepo, holdRepo, clk, scheduler, events)
	finalizer := engine.NewBookingFinalizer(showRepo, seatRepo, holdRepo, bookingRepo, clk, events)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; response cache and rate limiting disabled")
	}
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	if rdb != nil {
		// Expiries and sweeps mutate seats without an HTTP request, so
		// they must bump the show generation themselves.
		holdManager.SetCacheInvalidator(&middleware.ShowCacheInvalidator{Redis: rdb, Prefix: cacheCfg.Prefix})
	}

	// Recover lease enforcement from persisted state: release anything
	// that lapsed while we were down, then re-enqueue expiry tasks for
	// the holds still running.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if released, err := holdManager.Sweep(startupCtx); err != nil {
		log.Printf("startup sweep failed: %v", err)
	} else if released > 0 {
		log.Printf("startup sweep released %d lapsed seats", released)
	}
	if n, err := expiry.Rescan(startupCtx, holdRepo, scheduler, clk.Now()); err != nil {
		log.Printf("expiry rescan failed: %v", err)
	} else if n > 0 {
		log.Printf("re-scheduled expiry for %d active holds", n)
	}
	cancelStartup()

	go func() {
		if err := expiry.Run(redisOpt, holdManager); err != nil {
			log.Fatalf("expiry worker: %v", err)
		}
	}()
	go queue.StartEventConsumer()

	h := handler.NewReservationHandler(seatRepo, holdManager, finalizer, clk, handler.HoldLimits{
		DefaultMinutes: cfg.HoldMinutesDef,
		MinMinutes:     cfg.HoldMinutesMin,
		MaxMinutes:     cfg.HoldMinutesMax,
	}, rdb, cacheCfg.Prefix)
	h.PollSeconds = cfg.ReconcileSecs

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, h, cfg, cacheCfg, rlCfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
