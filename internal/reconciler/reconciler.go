// Package reconciler keeps a remote client's seat map consistent with
// authoritative server state by polling the query interface.  It is a
// read-repair loop, not a source of truth: the countdown it exposes is
// re-derived from the server-reported hold expiry on every poll, and
// reaching zero forces an immediate re-snapshot instead of trusting the
// local timer.  The reconciler never mutates seat state; all mutation
// goes through the hold and confirm endpoints.
package reconciler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cinebook/seat-reservation/internal/clock"
	"github.com/cinebook/seat-reservation/internal/model"
)

// SeatView is one seat as reported by the query interface.
type SeatView struct {
	SeatID            uint64
	RowLabel          string
	SeatNumber        uint32
	Status            string
	HeldByCurrentUser bool
	HoldExpiresAt     *time.Time
}

// Snapshot is the authoritative seat map for one show, as seen by one
// holder.
type Snapshot struct {
	ShowID uint64
	Rows   []string
	Seats  []SeatView
}

// SnapshotSource fetches the seat map.  Implemented by HTTPSource for
// remote clients and by any in-process adapter over the seat store.
type SnapshotSource interface {
	SeatMap(ctx context.Context, showID uint64, holderID string) (*Snapshot, error)
}

// View is the reconciled client-side state after a poll.
type View struct {
	Rows          []string
	Seats         []SeatView
	Selected      []uint64
	HoldExpiresAt *time.Time
	// Remaining is the countdown derived from HoldExpiresAt at the
	// time the view was built; zero when no seat is held by us.
	Remaining time.Duration
}

// Reconciler polls a SnapshotSource at a bounded interval and maintains
// the local seat selection against it.
type Reconciler struct {
	src      SnapshotSource
	showID   uint64
	holderID string
	interval time.Duration
	clk      clock.Clock
	onChange func(View) // optional, called after a poll that changed the view

	mu          sync.Mutex
	selected    map[uint64]struct{}
	last        *Snapshot
	fingerprint string
}

// New constructs a Reconciler.  interval bounds how often the source is
// polled; onChange may be nil.
func New(src SnapshotSource, showID uint64, holderID string, interval time.Duration, clk clock.Clock, onChange func(View)) *Reconciler {
	if src == nil || clk == nil {
		panic("nil dependency passed to reconciler.New")
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Reconciler{
		src:      src,
		showID:   showID,
		holderID: holderID,
		interval: interval,
		clk:      clk,
		onChange: onChange,
		selected: make(map[uint64]struct{}),
	}
}

// Select marks a seat as locally selected.  The next poll drops the
// selection again if the seat is no longer AVAILABLE or held by us.
func (r *Reconciler) Select(seatID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected[seatID] = struct{}{}
}

// Deselect removes a seat from the local selection.
func (r *Reconciler) Deselect(seatID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.selected, seatID)
}

// Refresh performs one poll and reconciles the local selection: any
// selected seat that became BOOKED or held by someone else is dropped.
func (r *Reconciler) Refresh(ctx context.Context) error {
	snap, err := r.src.SeatMap(ctx, r.showID, r.holderID)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.last = snap
	for id := range r.selected {
		if !r.selectable(snap, id) {
			delete(r.selected, id)
		}
	}
	view := r.viewLocked()
	fp := fingerprint(view)
	changed := fp != r.fingerprint
	r.fingerprint = fp
	cb := r.onChange
	r.mu.Unlock()

	if changed && cb != nil {
		cb(view)
	}
	return nil
}

// selectable reports whether a seat may stay in the local selection:
// it must exist in the snapshot and be AVAILABLE or held by us.
func (r *Reconciler) selectable(snap *Snapshot, seatID uint64) bool {
	for i := range snap.Seats {
		s := &snap.Seats[i]
		if s.SeatID != seatID {
			continue
		}
		return s.Status == model.SeatAvailable || (s.Status == model.SeatHeld && s.HeldByCurrentUser)
	}
	return false
}

// View returns the current reconciled state.  Remaining is recomputed
// from the server-reported expiry each call, never from a local timer.
func (r *Reconciler) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Reconciler) viewLocked() View {
	v := View{}
	if r.last != nil {
		v.Rows = r.last.Rows
		v.Seats = r.last.Seats
		for i := range r.last.Seats {
			s := &r.last.Seats[i]
			if s.HeldByCurrentUser && s.HoldExpiresAt != nil {
				if v.HoldExpiresAt == nil || s.HoldExpiresAt.Before(*v.HoldExpiresAt) {
					v.HoldExpiresAt = s.HoldExpiresAt
				}
			}
		}
	}
	for id := range r.selected {
		v.Selected = append(v.Selected, id)
	}
	sort.Slice(v.Selected, func(i, j int) bool { return v.Selected[i] < v.Selected[j] })
	if v.HoldExpiresAt != nil {
		if rem := v.HoldExpiresAt.Sub(r.clk.Now()); rem > 0 {
			v.Remaining = rem
		}
	}
	return v
}

// Run polls until the context is cancelled.  The wait between polls is
// the configured interval, shortened so a poll lands right after the
// hold countdown reaches zero; the server, not the countdown, decides
// whether the hold is actually still valid.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		if err := r.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("reconciler: poll failed: %v", err)
		}
		wait := r.interval
		if v := r.View(); v.HoldExpiresAt != nil && v.Remaining > 0 && v.Remaining < wait {
			wait = v.Remaining
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// fingerprint summarizes the parts of a view whose change should fire
// the callback.
func fingerprint(v View) string {
	var b strings.Builder
	for i := range v.Seats {
		s := &v.Seats[i]
		fmt.Fprintf(&b, "%d=%s/%t;", s.SeatID, s.Status, s.HeldByCurrentUser)
	}
	fmt.Fprintf(&b, "sel=%v", v.Selected)
	if v.HoldExpiresAt != nil {
		fmt.Fprintf(&b, "exp=%d", v.HoldExpiresAt.UnixMilli())
	}
	return b.String()
}
