package repository

import (
	"context"
	"database/sql"

	"github.com/cinebook/seat-reservation/internal/model"
)

// ShowRepo encapsulates database operations for shows.  Shows are
// written once (by the seeding tool) and read-only afterwards.
type ShowRepo struct {
	db *sql.DB
}

// NewShowRepo constructs a ShowRepo given a DB handle.
func NewShowRepo(db *sql.DB) *ShowRepo {
	return &ShowRepo{db: db}
}

// Create inserts a new show and populates its ID.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO shows (title, screen, starts_at) VALUES (?, ?, ?)`,
		s.Title, s.Screen, s.StartsAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID returns the show with the given ID or ErrShowNotFound.
func (r *ShowRepo) GetByID(ctx context.Context, id uint64) (*model.Show, error) {
	var s model.Show
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, screen, starts_at, created_at FROM shows WHERE id = ?`,
		id,
	).Scan(&s.ID, &s.Title, &s.Screen, &s.StartsAt, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrShowNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// List returns all shows ordered by start time.  Used by the seeding
// tool and by clients that need to discover show IDs.
func (r *ShowRepo) List(ctx context.Context) ([]model.Show, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, screen, starts_at, created_at FROM shows ORDER BY starts_at, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Show
	for rows.Next() {
		var s model.Show
		if err := rows.Scan(&s.ID, &s.Title, &s.Screen, &s.StartsAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
