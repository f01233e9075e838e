package dca

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// Repository handles DCA plan persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new DCA plan repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "dca").Logger(),
	}
}

// Upsert creates a plan or replaces its definition, keeping the key
func (r *Repository) Upsert(p *Plan) error {
	if p.PlanKey == "" {
		return fmt.Errorf("plan_key is required")
	}
	if p.Status == "" {
		p.Status = PlanStatusActive
	}
	createdAt := time.Now().UTC().Format(domain.TimestampFormat)

	_, err := r.db.Exec(`
		INSERT INTO dca_plans (plan_key, fund_code, amount, frequency, rule, market, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(plan_key) DO UPDATE SET
			fund_code = excluded.fund_code,
			amount = excluded.amount,
			frequency = excluded.frequency,
			rule = excluded.rule,
			market = excluded.market,
			status = excluded.status
	`, p.PlanKey, p.FundCode, domain.QuantizeAmount(p.Amount).String(),
		string(p.Frequency), p.Rule, p.Market, string(p.Status), createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert plan %s: %w", p.PlanKey, err)
	}
	return nil
}

// Get retrieves a plan by key
func (r *Repository) Get(planKey string) (*Plan, error) {
	row := r.db.QueryRow(
		"SELECT plan_key, fund_code, amount, frequency, rule, market, status, created_at FROM dca_plans WHERE plan_key = ?",
		planKey,
	)
	p, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan %s: %w", planKey, ErrPlanNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan %s: %w", planKey, err)
	}
	return p, nil
}

// List returns all plans ordered by key
func (r *Repository) List() ([]Plan, error) {
	return r.list("SELECT plan_key, fund_code, amount, frequency, rule, market, status, created_at FROM dca_plans ORDER BY plan_key ASC")
}

// ListActive returns the plans that generate trades
func (r *Repository) ListActive() ([]Plan, error) {
	return r.list(
		"SELECT plan_key, fund_code, amount, frequency, rule, market, status, created_at FROM dca_plans WHERE status = ? ORDER BY plan_key ASC",
		string(PlanStatusActive),
	)
}

func (r *Repository) list(query string, args ...interface{}) ([]Plan, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plans: %w", err)
	}
	defer rows.Close()

	var plans []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plans: %w", err)
	}
	return plans, nil
}

// SetStatus pauses or reactivates a plan
func (r *Repository) SetStatus(planKey string, status PlanStatus) error {
	res, err := r.db.Exec("UPDATE dca_plans SET status = ? WHERE plan_key = ?", string(status), planKey)
	if err != nil {
		return fmt.Errorf("failed to set plan %s status: %w", planKey, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("plan %s: %w", planKey, ErrPlanNotFound)
	}
	return nil
}

// Delete removes a plan. Trades linked to it keep their plan key.
func (r *Repository) Delete(planKey string) error {
	res, err := r.db.Exec("DELETE FROM dca_plans WHERE plan_key = ?", planKey)
	if err != nil {
		return fmt.Errorf("failed to delete plan %s: %w", planKey, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("plan %s: %w", planKey, ErrPlanNotFound)
	}
	return nil
}

// ListActiveFundCodes returns the distinct fund codes of active plans
func (r *Repository) ListActiveFundCodes() ([]string, error) {
	rows, err := r.db.Query(
		"SELECT DISTINCT fund_code FROM dca_plans WHERE status = ? ORDER BY fund_code ASC",
		string(PlanStatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan fund codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan fund code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund codes: %w", err)
	}
	return codes, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(s scanner) (*Plan, error) {
	var p Plan
	var amountRaw, frequency, status string

	err := s.Scan(&p.PlanKey, &p.FundCode, &amountRaw, &frequency, &p.Rule, &p.Market, &status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.Frequency = Frequency(frequency)
	p.Status = PlanStatus(status)
	p.Amount, err = decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q on plan %s: %w", amountRaw, p.PlanKey, err)
	}
	return &p, nil
}
