package calendar

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/database"
)

// Repository handles trading calendar persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new calendar repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "calendar").Logger(),
	}
}

// Lookup returns the open/closed status for a market day.
// found is false when the day has no row at all.
func (r *Repository) Lookup(market, day string) (isOpen bool, found bool, err error) {
	var open int
	err = r.db.QueryRow(
		"SELECT is_open FROM trading_calendar WHERE market = ? AND day = ?",
		market, day,
	).Scan(&open)

	if err == sql.ErrNoRows {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to look up calendar day: %w", err)
	}
	return open == 1, true, nil
}

// UpsertDays writes a batch of day statuses for a market, overwriting
// existing rows. Idempotent.
func (r *Repository) UpsertDays(market string, days []DayStatus) error {
	if len(days) == 0 {
		return nil
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO trading_calendar (market, day, is_open)
			VALUES (?, ?, ?)
			ON CONFLICT(market, day) DO UPDATE SET is_open = excluded.is_open
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare calendar upsert: %w", err)
		}
		defer stmt.Close()

		for _, d := range days {
			open := 0
			if d.IsOpen {
				open = 1
			}
			if _, err := stmt.Exec(market, d.Day, open); err != nil {
				return fmt.Errorf("failed to upsert calendar day %s: %w", d.Day, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Str("market", market).Int("days", len(days)).Msg("Calendar days upserted")
	return nil
}

// Coverage reports the known span for a market
func (r *Repository) Coverage(market string) (*Coverage, error) {
	var first, last sql.NullString
	var count int

	err := r.db.QueryRow(
		"SELECT MIN(day), MAX(day), COUNT(*) FROM trading_calendar WHERE market = ?",
		market,
	).Scan(&first, &last, &count)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar coverage: %w", err)
	}

	cov := &Coverage{Market: market, Days: count}
	if first.Valid {
		cov.FirstDay = first.String
	}
	if last.Valid {
		cov.LastDay = last.String
	}
	return cov, nil
}
