package database

import (
	"context"
	"database/sql"
)

// schema creates the tables the engine needs.  DATETIME(3) keeps
// millisecond precision so the exact-expiry guards in the seat store's
// compare-and-set match the values the engine wrote.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS shows (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		title      VARCHAR(255)    NOT NULL,
		screen     VARCHAR(64)     NOT NULL,
		starts_at  DATETIME(3)     NOT NULL,
		created_at DATETIME(3)     NOT NULL DEFAULT (UTC_TIMESTAMP(3)),
		PRIMARY KEY (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS seats (
		id              BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		show_id         BIGINT UNSIGNED NOT NULL,
		row_label       VARCHAR(8)      NOT NULL,
		seat_number     INT UNSIGNED    NOT NULL,
		status          ENUM('AVAILABLE','HELD','BOOKED') NOT NULL DEFAULT 'AVAILABLE',
		held_by         VARCHAR(128)    NULL,
		hold_expires_at DATETIME(3)     NULL,
		version         INT UNSIGNED    NOT NULL DEFAULT 0,
		created_at      DATETIME(3)     NOT NULL DEFAULT (UTC_TIMESTAMP(3)),
		updated_at      DATETIME(3)     NOT NULL DEFAULT (UTC_TIMESTAMP(3)),
		PRIMARY KEY (id),
		UNIQUE KEY uq_seats_show_row_number (show_id, row_label, seat_number),
		KEY idx_seats_status_expiry (status, hold_expires_at),
		CONSTRAINT fk_seats_show FOREIGN KEY (show_id) REFERENCES shows (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS seat_holds (
		hold_id    CHAR(36)        NOT NULL,
		show_id    BIGINT UNSIGNED NOT NULL,
		seat_id    BIGINT UNSIGNED NOT NULL,
		holder_id  VARCHAR(128)    NOT NULL,
		expires_at DATETIME(3)     NOT NULL,
		created_at DATETIME(3)     NOT NULL,
		PRIMARY KEY (hold_id, seat_id),
		KEY idx_seat_holds_show_holder (show_id, holder_id, expires_at),
		KEY idx_seat_holds_expiry (expires_at),
		KEY idx_seat_holds_show_seat (show_id, seat_id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id          CHAR(36)        NOT NULL,
		show_id     BIGINT UNSIGNED NOT NULL,
		holder_id   VARCHAR(128)    NOT NULL,
		payment_ref VARCHAR(255)    NOT NULL DEFAULT '',
		created_at  DATETIME(3)     NOT NULL,
		PRIMARY KEY (id),
		KEY idx_bookings_show_holder (show_id, holder_id),
		CONSTRAINT fk_bookings_show FOREIGN KEY (show_id) REFERENCES shows (id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS booking_seats (
		booking_id CHAR(36)        NOT NULL,
		show_id    BIGINT UNSIGNED NOT NULL,
		seat_id    BIGINT UNSIGNED NOT NULL,
		PRIMARY KEY (booking_id, seat_id),
		UNIQUE KEY uq_booking_seats_show_seat (show_id, seat_id),
		CONSTRAINT fk_booking_seats_booking FOREIGN KEY (booking_id) REFERENCES bookings (id)
	) ENGINE=InnoDB`,
}

// EnsureSchema applies the schema statements.  Safe to run at every
// startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
