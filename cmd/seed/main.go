// Command seed creates a show with a rectangular seat grid so the
// engine can be exercised end to end.  Shows are immutable once
// created and owned by the scheduling subsystem; this tool is that
// subsystem's stand-in for development and demos.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/cinebook/seat-reservation/internal/config"
	"github.com/cinebook/seat-reservation/internal/database"
	"github.com/cinebook/seat-reservation/internal/model"
	"github.com/cinebook/seat-reservation/internal/repository"
)

func main() {
	title := flag.String("title", "Interstellar", "movie title")
	screen := flag.String("screen", "Screen 1", "screen name")
	startsIn := flag.Duration("starts-in", 3*time.Hour, "how far in the future the show starts")
	rows := flag.Int("rows", 6, "number of seat rows (A..)")
	perRow := flag.Int("seats-per-row", 8, "seats per row")
	flag.Parse()

	if *rows < 1 || *rows > 26 || *perRow < 1 {
		log.Fatalf("invalid grid: rows must be 1..26, seats-per-row >= 1")
	}

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("schema: %v", err)
	}

	showRepo := repository.NewShowRepo(db)
	seatRepo := repository.NewSeatRepo(db)

	show := &model.Show{
		Title:    *title,
		Screen:   *screen,
		StartsAt: time.Now().UTC().Add(*startsIn),
	}
	if err := showRepo.Create(ctx, show); err != nil {
		log.Fatalf("create show: %v", err)
	}

	seats := make([]model.Seat, 0, *rows**perRow)
	for r := 0; r < *rows; r++ {
		rowLabel := string(rune('A' + r))
		for n := 1; n <= *perRow; n++ {
			seats = append(seats, model.Seat{
				ShowID:     show.ID,
				RowLabel:   rowLabel,
				SeatNumber: uint32(n),
				Status:     model.SeatAvailable,
			})
		}
	}
	if err := seatRepo.CreateBulk(ctx, seats); err != nil {
		log.Fatalf("create seats: %v", err)
	}

	fmt.Printf("seeded show %d (%q on %s) with %d seats\n", show.ID, show.Title, show.Screen, len(seats))
}
