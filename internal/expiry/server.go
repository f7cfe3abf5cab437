package expiry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cinebook/seat-reservation/internal/model"
)

// Manager is the slice of the hold manager the expiry worker needs.
type Manager interface {
	ExpireHold(ctx context.Context, holdID string, expectedExpiry time.Time) error
	Sweep(ctx context.Context) (int, error)
}

type holdLister interface {
	ListActive(ctx context.Context, now time.Time) ([]model.Hold, error)
}

type holdEnqueuer interface {
	ScheduleHoldExpiry(ctx context.Context, holdID string, expiresAt time.Time) error
}

// Run starts the asynq worker that processes hold:expire and hold:sweep
// tasks, plus a cron scheduler that enqueues a sweep every minute.  It
// blocks until the server stops; callers run it in a goroutine.
func Run(redisOpt asynq.RedisClientOpt, mgr Manager) error {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeHoldExpire, func(ctx context.Context, t *asynq.Task) error {
		var p HoldExpirePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("unmarshal %s payload: %w", TypeHoldExpire, err)
		}
		return mgr.ExpireHold(ctx, p.HoldID, p.ExpiresAt)
	})
	mux.HandleFunc(TypeHoldSweep, func(ctx context.Context, t *asynq.Task) error {
		released, err := mgr.Sweep(ctx)
		if err != nil {
			return err
		}
		if released > 0 {
			log.Printf("expiry: sweep released %d lapsed seats", released)
		}
		return nil
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("* * * * *", asynq.NewTask(TypeHoldSweep, nil)); err != nil {
		return fmt.Errorf("register sweep schedule: %w", err)
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			log.Printf("expiry: scheduler stopped: %v", err)
		}
	}()

	return srv.Run(mux)
}
