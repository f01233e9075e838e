package funds

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// Repository handles fund registry persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new funds repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "funds").Logger(),
	}
}

// Upsert registers a fund or updates its metadata
func (r *Repository) Upsert(f *Fund) error {
	if f.FundCode == "" {
		return fmt.Errorf("fund_code is required")
	}
	_, err := r.db.Exec(`
		INSERT INTO funds (fund_code, name, asset_class, market, alias)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(fund_code) DO UPDATE SET
			name = excluded.name,
			asset_class = excluded.asset_class,
			market = excluded.market,
			alias = excluded.alias
	`, f.FundCode, f.Name, f.AssetClass, f.Market, nullString(f.Alias))
	if err != nil {
		return fmt.Errorf("failed to upsert fund %s: %w", f.FundCode, err)
	}
	return nil
}

// Get retrieves a fund by code
func (r *Repository) Get(fundCode string) (*Fund, error) {
	var f Fund
	var alias sql.NullString

	err := r.db.QueryRow(
		"SELECT fund_code, name, asset_class, market, alias FROM funds WHERE fund_code = ?",
		fundCode,
	).Scan(&f.FundCode, &f.Name, &f.AssetClass, &f.Market, &alias)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("fund %s: %w", fundCode, ErrFundNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund %s: %w", fundCode, err)
	}

	if alias.Valid {
		f.Alias = alias.String
	}
	return &f, nil
}

// List returns all registered funds ordered by code
func (r *Repository) List() ([]Fund, error) {
	rows, err := r.db.Query(
		"SELECT fund_code, name, asset_class, market, alias FROM funds ORDER BY fund_code ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	var out []Fund
	for rows.Next() {
		var f Fund
		var alias sql.NullString
		if err := rows.Scan(&f.FundCode, &f.Name, &f.AssetClass, &f.Market, &alias); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		if alias.Valid {
			f.Alias = alias.String
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds: %w", err)
	}
	return out, nil
}

// Delete removes a fund from the registry
func (r *Repository) Delete(fundCode string) error {
	res, err := r.db.Exec("DELETE FROM funds WHERE fund_code = ?", fundCode)
	if err != nil {
		return fmt.Errorf("failed to delete fund %s: %w", fundCode, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("fund %s: %w", fundCode, ErrFundNotFound)
	}
	return nil
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
