package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/cinebook/seat-reservation/internal/model"
)

// mysqlDuplicateEntry is the MySQL error number for unique-key
// violations (ER_DUP_ENTRY).
const mysqlDuplicateEntry = 1062

// BookingRepo provides data access to the bookings and booking_seats
// tables.  booking_seats carries a UNIQUE (show_id, seat_id) constraint
// as a last-line guard against double promotion; the engine's
// compare-and-set discipline makes hitting it exceptional.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// Create persists a booking and its seats in one transaction.  Returns
// ErrConflict if any seat is already part of another booking for the
// same show.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, show_id, holder_id, payment_ref, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.ShowID, b.HolderID, b.PaymentRef, b.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	query := `INSERT INTO booking_seats (booking_id, show_id, seat_id) VALUES `
	args := make([]interface{}, 0, len(b.SeatIDs)*3)
	for i, seatID := range b.SeatIDs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, b.ID, b.ShowID, seatID)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrConflict
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns a booking with its seat IDs or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx,
		`SELECT id, show_id, holder_id, payment_ref, created_at FROM bookings WHERE id = ?`,
		id,
	).Scan(&b.ID, &b.ShowID, &b.HolderID, &b.PaymentRef, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seat_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var seatID uint64
		if err := rows.Scan(&seatID); err != nil {
			return nil, err
		}
		b.SeatIDs = append(b.SeatIDs, seatID)
	}
	return &b, rows.Err()
}

// FindBySeatSet returns the holder's booking for a show whose seat set
// is exactly the given set, or ErrBookingNotFound.  This backs the
// idempotent confirm retry: a client that timed out and retries with
// the same seats gets its original booking back.
func (r *BookingRepo) FindBySeatSet(ctx context.Context, showID uint64, holderID string, seatIDs []uint64) (*model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.payment_ref, b.created_at, bs.seat_id
		 FROM bookings b JOIN booking_seats bs ON bs.booking_id = b.id
		 WHERE b.show_id = ? AND b.holder_id = ?
		 ORDER BY b.created_at, b.id, bs.seat_id`,
		showID, holderID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	want := make(map[uint64]struct{}, len(seatIDs))
	for _, id := range seatIDs {
		want[id] = struct{}{}
	}
	candidates := map[string]*model.Booking{}
	var order []string
	for rows.Next() {
		var id, paymentRef string
		var createdAt sql.NullTime
		var seatID uint64
		if err := rows.Scan(&id, &paymentRef, &createdAt, &seatID); err != nil {
			return nil, err
		}
		b, ok := candidates[id]
		if !ok {
			b = &model.Booking{ID: id, ShowID: showID, HolderID: holderID, PaymentRef: paymentRef}
			if createdAt.Valid {
				b.CreatedAt = createdAt.Time.UTC()
			}
			candidates[id] = b
			order = append(order, id)
		}
		b.SeatIDs = append(b.SeatIDs, seatID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, id := range order {
		b := candidates[id]
		if len(b.SeatIDs) != len(want) {
			continue
		}
		match := true
		for _, seatID := range b.SeatIDs {
			if _, ok := want[seatID]; !ok {
				match = false
				break
			}
		}
		if match {
			return b, nil
		}
	}
	return nil, ErrBookingNotFound
}
