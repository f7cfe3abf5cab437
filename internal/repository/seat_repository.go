package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cinebook/seat-reservation/internal/model"
)

// SeatRepo is the authoritative seat store.  Every status change in the
// system goes through CompareAndSetStatus; reads never block writers
// and may be slightly stale, which is acceptable because writers
// re-validate their preconditions at commit time.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, show_id, row_label, seat_number, status,
	COALESCE(held_by, ''), hold_expires_at, version, created_at, updated_at`

func scanSeat(row interface{ Scan(...interface{}) error }) (model.Seat, error) {
	var s model.Seat
	var expires sql.NullTime
	err := row.Scan(&s.ID, &s.ShowID, &s.RowLabel, &s.SeatNumber, &s.Status,
		&s.HeldBy, &expires, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Seat{}, err
	}
	if expires.Valid {
		t := expires.Time.UTC()
		s.HoldExpiresAt = &t
	}
	return s, nil
}

// CreateBulk inserts multiple seats in one statement.  Only show_id,
// row_label, seat_number and status are inserted; timestamps default in
// the DB.  The ID fields of the passed values are not populated.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (show_id, row_label, seat_number, status) VALUES `
	args := make([]interface{}, 0, len(seats)*4)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		status := s.Status
		if status == "" {
			status = model.SeatAvailable
		}
		args = append(args, s.ShowID, s.RowLabel, s.SeatNumber, status)
	}
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// Snapshot returns every seat of a show ordered by row label and seat
// number, plus the distinct row labels in display order.  It returns
// ErrShowNotFound when the show does not exist.  The snapshot reflects
// only committed mutations.
func (r *SeatRepo) Snapshot(ctx context.Context, showID uint64) ([]model.Seat, []string, error) {
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM shows WHERE id = ?`, showID).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, ErrShowNotFound
		}
		return nil, nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE show_id = ? ORDER BY row_label, seat_number`,
		showID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	var rowOrder []string
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, nil, err
		}
		if n := len(rowOrder); n == 0 || rowOrder[n-1] != s.RowLabel {
			rowOrder = append(rowOrder, s.RowLabel)
		}
		seats = append(seats, s)
	}
	return seats, rowOrder, rows.Err()
}

// GetSeats loads the named seats of a show.  Seat IDs that do not
// belong to the show are simply absent from the result; callers detect
// this by comparing lengths.
func (r *SeatRepo) GetSeats(ctx context.Context, showID uint64, seatIDs []uint64) ([]model.Seat, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + seatColumns + ` FROM seats WHERE show_id = ? AND id IN (`
	args := make([]interface{}, 0, len(seatIDs)+1)
	args = append(args, showID)
	for i, id := range seatIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args = append(args, id)
	}
	query += `) ORDER BY row_label, seat_number`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// ListLapsedHeld returns seats of any show that are HELD with an expiry
// at or before the given instant.  Used by the periodic sweep.
func (r *SeatRepo) ListLapsedHeld(ctx context.Context, now time.Time) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE status = ? AND hold_expires_at <= ?`,
		model.SeatHeld, now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// CompareAndSetStatus transitions one seat from the expected claim to
// the next claim in a single conditional UPDATE.  The update is guarded
// on the expected status and, when supplied, on the exact holder and
// expiry; the version column is bumped on success.  If the guard does
// not match the current row the seat is untouched and ErrConflict is
// returned; ErrSeatNotFound is returned when the seat row does not
// exist at all.  Per-seat linearizability follows from MySQL's row
// serialization: whichever caller's UPDATE commits first wins.
func (r *SeatRepo) CompareAndSetStatus(ctx context.Context, showID, seatID uint64, expected, next model.SeatClaim) error {
	query := `UPDATE seats
		SET status = ?, held_by = ?, hold_expires_at = ?, version = version + 1, updated_at = UTC_TIMESTAMP(3)
		WHERE id = ? AND show_id = ? AND status = ?`
	args := []interface{}{
		next.Status, nullString(next.HolderID), nullTime(next.ExpiresAt),
		seatID, showID, expected.Status,
	}
	if expected.HolderID != "" {
		query += ` AND held_by = ?`
		args = append(args, expected.HolderID)
	}
	if expected.ExpiresAt != nil {
		query += ` AND hold_expires_at = ?`
		args = append(args, expected.ExpiresAt.UTC())
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	// Zero rows: distinguish a lost race from a seat that never existed.
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM seats WHERE id = ? AND show_id = ?`, seatID, showID).Scan(&one)
	if err == sql.ErrNoRows {
		return ErrSeatNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}
