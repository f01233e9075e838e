package allocation

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// Repository handles allocation target persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new allocation repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "allocation").Logger(),
	}
}

// Upsert stores the target weight for an asset class
func (r *Repository) Upsert(t *Target) error {
	if t.AssetClass == "" {
		return fmt.Errorf("asset_class is required")
	}
	if !t.TargetWeight.IsPositive() || t.TargetWeight.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("target_weight must be in (0, 1], got %s", t.TargetWeight)
	}
	if t.MaxDeviation.IsNegative() {
		return fmt.Errorf("max_deviation must not be negative, got %s", t.MaxDeviation)
	}

	now := time.Now().UTC().Format(domain.TimestampFormat)
	_, err := r.db.Exec(`
		INSERT INTO alloc_config (asset_class, target_weight, max_deviation, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(asset_class) DO UPDATE SET
			target_weight = excluded.target_weight,
			max_deviation = excluded.max_deviation,
			updated_at = excluded.updated_at
	`, t.AssetClass, t.TargetWeight.String(), t.MaxDeviation.String(), now)
	if err != nil {
		return fmt.Errorf("failed to upsert allocation target %s: %w", t.AssetClass, err)
	}
	return nil
}

// Get retrieves the target for one asset class
func (r *Repository) Get(assetClass string) (*Target, error) {
	row := r.db.QueryRow(
		"SELECT asset_class, target_weight, max_deviation, updated_at FROM alloc_config WHERE asset_class = ?",
		assetClass,
	)
	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("asset class %s: %w", assetClass, ErrTargetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation target %s: %w", assetClass, err)
	}
	return t, nil
}

// List returns all allocation targets ordered by asset class
func (r *Repository) List() ([]Target, error) {
	rows, err := r.db.Query(
		"SELECT asset_class, target_weight, max_deviation, updated_at FROM alloc_config ORDER BY asset_class ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocation targets: %w", err)
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation target: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation targets: %w", err)
	}
	return out, nil
}

// Delete removes the target for an asset class
func (r *Repository) Delete(assetClass string) error {
	res, err := r.db.Exec("DELETE FROM alloc_config WHERE asset_class = ?", assetClass)
	if err != nil {
		return fmt.Errorf("failed to delete allocation target %s: %w", assetClass, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("asset class %s: %w", assetClass, ErrTargetNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTarget(s scanner) (*Target, error) {
	var t Target
	var weight, deviation string
	if err := s.Scan(&t.AssetClass, &weight, &deviation, &t.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if t.TargetWeight, err = decimal.NewFromString(weight); err != nil {
		return nil, fmt.Errorf("bad target_weight %q: %w", weight, err)
	}
	if t.MaxDeviation, err = decimal.NewFromString(deviation); err != nil {
		return nil, fmt.Errorf("bad max_deviation %q: %w", deviation, err)
	}
	return &t, nil
}
