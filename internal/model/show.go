package model

import "time"

// Show represents a scheduled screening.  Shows are created once by the
// scheduling subsystem (here: cmd/seed) and never modified afterwards;
// the engine only reads them.
//
// Fields:
//
//	ID        – primary key identifier.
//	Title     – movie title or an external reference.
//	Screen    – name of the screen/auditorium the show runs in.
//	StartsAt  – when the show begins.
//	CreatedAt – creation timestamp.
type Show struct {
	ID        uint64    // shows.id
	Title     string    // shows.title
	Screen    string    // shows.screen
	StartsAt  time.Time // shows.starts_at
	CreatedAt time.Time // shows.created_at
}
