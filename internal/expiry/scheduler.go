package expiry

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

// Scheduler enqueues hold:expire tasks on Redis via asynq.  It
// satisfies engine.ExpiryScheduler.
type Scheduler struct {
	client *asynq.Client
}

// NewScheduler wraps an asynq client.
func NewScheduler(client *asynq.Client) *Scheduler {
	return &Scheduler{client: client}
}

// ScheduleHoldExpiry enqueues the expiry action for a hold, to be
// processed at the hold's deadline.  Enqueueing the same lease twice is
// a no-op thanks to the deterministic task ID.
func (s *Scheduler) ScheduleHoldExpiry(ctx context.Context, holdID string, expiresAt time.Time) error {
	payload, err := marshalHoldExpire(holdID, expiresAt)
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeHoldExpire, payload)
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID(holdID, expiresAt)),
		asynq.ProcessAt(expiresAt),
		asynq.MaxRetry(5),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Rescan re-derives expiry tasks from persisted holds.  Called at
// startup so that leases outlive a single server process: in-memory
// timers are gone after a restart, the seat_holds rows are not.
// Returns the number of holds re-scheduled.
func Rescan(ctx context.Context, holds holdLister, sched holdEnqueuer, now time.Time) (int, error) {
	active, err := holds.ListActive(ctx, now)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range active {
		h := &active[i]
		if err := sched.ScheduleHoldExpiry(ctx, h.ID, h.ExpiresAt); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
