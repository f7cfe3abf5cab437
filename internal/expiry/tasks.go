// Package expiry enforces hold leases.  Each granted hold gets one
// asynq task scheduled at its deadline; the task payload is keyed on
// (hold ID, expected expiry) and the handler re-checks state before
// releasing anything, so a hold that was promoted or released in time
// is never erroneously expired.  A periodic sweep and a startup rescan
// of persisted holds make expiry survive crashes and restarts.
package expiry

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task type names routed by the asynq mux.
const (
	TypeHoldExpire = "hold:expire"
	TypeHoldSweep  = "hold:sweep"
)

// HoldExpirePayload identifies the lease a hold:expire task enforces.
// ExpiresAt is the expiry the hold carried when the task was enqueued.
type HoldExpirePayload struct {
	HoldID    string    `json:"hold_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// taskID builds a stable asynq task ID so that re-enqueueing the same
// lease (for example during the startup rescan) deduplicates instead of
// stacking tasks.
func taskID(holdID string, expiresAt time.Time) string {
	return fmt.Sprintf("%s:%s@%d", TypeHoldExpire, holdID, expiresAt.UnixMilli())
}

func marshalHoldExpire(holdID string, expiresAt time.Time) ([]byte, error) {
	return json.Marshal(HoldExpirePayload{HoldID: holdID, ExpiresAt: expiresAt.UTC()})
}
