package navs

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// Repository stores published NAVs. Lookups are exact-date only:
// there is no interpolation and no nearest-previous fallback.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new NAV repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "navs").Logger(),
	}
}

// Upsert writes a NAV point, overwriting an existing one. Idempotent.
func (r *Repository) Upsert(fundCode, day string, nav decimal.Decimal) error {
	_, err := r.db.Exec(`
		INSERT INTO navs (fund_code, day, nav)
		VALUES (?, ?, ?)
		ON CONFLICT(fund_code, day) DO UPDATE SET nav = excluded.nav
	`, fundCode, day, domain.QuantizeNav(nav).String())
	if err != nil {
		return fmt.Errorf("failed to upsert nav for %s on %s: %w", fundCode, day, err)
	}
	return nil
}

// Get returns the NAV for a fund on an exact day. found is false when
// no point exists for that day, regardless of neighboring days.
func (r *Repository) Get(fundCode, day string) (decimal.Decimal, bool, error) {
	var raw string
	err := r.db.QueryRow(
		"SELECT nav FROM navs WHERE fund_code = ? AND day = ?",
		fundCode, day,
	).Scan(&raw)

	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get nav for %s on %s: %w", fundCode, day, err)
	}

	nav, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt nav value %q for %s on %s: %w", raw, fundCode, day, err)
	}
	return nav, true, nil
}

// Latest returns the most recent NAV point for a fund. Reporting only;
// settlement always goes through Get with an exact date.
func (r *Repository) Latest(fundCode string) (*NavPoint, error) {
	var day, raw string
	err := r.db.QueryRow(
		"SELECT day, nav FROM navs WHERE fund_code = ? ORDER BY day DESC LIMIT 1",
		fundCode,
	).Scan(&day, &raw)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest nav for %s: %w", fundCode, err)
	}

	nav, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("corrupt nav value %q for %s: %w", raw, fundCode, err)
	}
	return &NavPoint{FundCode: fundCode, Day: day, Nav: nav}, nil
}

// History returns stored points for a fund in a day range, oldest first
func (r *Repository) History(fundCode, fromDay, toDay string) ([]NavPoint, error) {
	rows, err := r.db.Query(`
		SELECT day, nav FROM navs
		WHERE fund_code = ? AND day >= ? AND day <= ?
		ORDER BY day ASC
	`, fundCode, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("failed to query nav history: %w", err)
	}
	defer rows.Close()

	var points []NavPoint
	for rows.Next() {
		var day, raw string
		if err := rows.Scan(&day, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan nav point: %w", err)
		}
		nav, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt nav value %q: %w", raw, err)
		}
		points = append(points, NavPoint{FundCode: fundCode, Day: day, Nav: nav})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nav history: %w", err)
	}
	return points, nil
}
