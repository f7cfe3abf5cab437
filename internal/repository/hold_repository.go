package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinebook/seat-reservation/internal/model"
)

// HoldRepo provides data access to the seat_holds table.  A hold is
// stored as one row per seat, all sharing the hold ID, holder and
// expiry.  All timestamps are UTC.  Seat authority lives in the seats
// table; these rows are hold metadata used for holdsOf queries and for
// re-deriving expiry schedules after a restart.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a new HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo {
	return &HoldRepo{db: db}
}

// Create inserts one row per seat for the given hold.
func (r *HoldRepo) Create(ctx context.Context, h *model.Hold) error {
	if len(h.SeatIDs) == 0 {
		return nil
	}
	query := `INSERT INTO seat_holds (hold_id, show_id, seat_id, holder_id, expires_at, created_at) VALUES `
	args := make([]interface{}, 0, len(h.SeatIDs)*6)
	for i, seatID := range h.SeatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, h.ID, h.ShowID, seatID, h.HolderID, h.ExpiresAt.UTC(), h.CreatedAt.UTC())
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByID reassembles a hold from its seat rows.  Returns nil (and no
// error) when the hold no longer exists, which is a normal outcome for
// expiry actions racing a release or promotion.
func (r *HoldRepo) GetByID(ctx context.Context, holdID string) (*model.Hold, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT show_id, seat_id, holder_id, expires_at, created_at
		 FROM seat_holds WHERE hold_id = ? ORDER BY seat_id`,
		holdID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var h *model.Hold
	for rows.Next() {
		var showID, seatID uint64
		var holderID string
		var expiresAt, createdAt time.Time
		if err := rows.Scan(&showID, &seatID, &holderID, &expiresAt, &createdAt); err != nil {
			return nil, err
		}
		if h == nil {
			h = &model.Hold{
				ID:        holdID,
				ShowID:    showID,
				HolderID:  holderID,
				ExpiresAt: expiresAt.UTC(),
				CreatedAt: createdAt.UTC(),
			}
		}
		h.SeatIDs = append(h.SeatIDs, seatID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return h, nil
}

// ActiveByHolder returns the holder's currently active holds for a
// show, grouped by hold ID.  Rows whose expiry has passed are excluded;
// the sweep removes them eventually.
func (r *HoldRepo) ActiveByHolder(ctx context.Context, showID uint64, holderID string, now time.Time) ([]model.Hold, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT hold_id, seat_id, expires_at, created_at
		 FROM seat_holds
		 WHERE show_id = ? AND holder_id = ? AND expires_at > ?
		 ORDER BY created_at, hold_id, seat_id`,
		showID, holderID, now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Hold
	index := map[string]int{}
	for rows.Next() {
		var holdID string
		var seatID uint64
		var expiresAt, createdAt time.Time
		if err := rows.Scan(&holdID, &seatID, &expiresAt, &createdAt); err != nil {
			return nil, err
		}
		i, ok := index[holdID]
		if !ok {
			out = append(out, model.Hold{
				ID:        holdID,
				ShowID:    showID,
				HolderID:  holderID,
				ExpiresAt: expiresAt.UTC(),
				CreatedAt: createdAt.UTC(),
			})
			i = len(out) - 1
			index[holdID] = i
		}
		out[i].SeatIDs = append(out[i].SeatIDs, seatID)
	}
	return out, rows.Err()
}

// ListActive returns every hold with a future expiry across all shows.
// Used at startup to re-enqueue expiry tasks from persisted state.
func (r *HoldRepo) ListActive(ctx context.Context, now time.Time) ([]model.Hold, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT hold_id, show_id, seat_id, holder_id, expires_at, created_at
		 FROM seat_holds WHERE expires_at > ? ORDER BY hold_id, seat_id`,
		now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Hold
	index := map[string]int{}
	for rows.Next() {
		var holdID, holderID string
		var showID, seatID uint64
		var expiresAt, createdAt time.Time
		if err := rows.Scan(&holdID, &showID, &seatID, &holderID, &expiresAt, &createdAt); err != nil {
			return nil, err
		}
		i, ok := index[holdID]
		if !ok {
			out = append(out, model.Hold{
				ID:        holdID,
				ShowID:    showID,
				HolderID:  holderID,
				ExpiresAt: expiresAt.UTC(),
				CreatedAt: createdAt.UTC(),
			})
			i = len(out) - 1
			index[holdID] = i
		}
		out[i].SeatIDs = append(out[i].SeatIDs, seatID)
	}
	return out, rows.Err()
}

// Delete removes every row of a hold.
func (r *HoldRepo) Delete(ctx context.Context, holdID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM seat_holds WHERE hold_id = ?`, holdID)
	return err
}

// DeleteSeats removes hold rows for specific seats of a show,
// regardless of which hold they belong to.  Used when individual seats
// are released or promoted out of a hold.
func (r *HoldRepo) DeleteSeats(ctx context.Context, showID uint64, seatIDs []uint64) error {
	if len(seatIDs) == 0 {
		return nil
	}
	query := `DELETE FROM seat_holds WHERE show_id = ? AND seat_id IN (`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showID)
	for i, id := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += ")"
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}
