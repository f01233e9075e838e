package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/database"
	"github.com/yuanmu/fundtrack/internal/domain"
)

const tradeColumns = `id, fund_code, trade_type, amount, trade_date, status, market,
       shares, nav, pricing_date, confirm_date, confirmation_status,
       delayed_reason, delayed_since, remark, external_id, import_batch_id,
       dca_plan_key, created_at`

// Repository handles trade persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new trade repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "trading").Logger(),
	}
}

// Create inserts a new trade
func (r *Repository) Create(t *Trade) (*Trade, error) {
	createdAt := time.Now().UTC().Format(domain.TimestampFormat)

	result, err := r.db.Exec(`
		INSERT INTO trades (
			fund_code, trade_type, amount, trade_date, status, market,
			shares, nav, pricing_date, confirm_date, confirmation_status,
			delayed_reason, delayed_since, remark, external_id,
			import_batch_id, dca_plan_key, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.FundCode,
		string(t.TradeType),
		t.Amount.String(),
		t.TradeDate,
		string(t.Status),
		t.Market,
		decimalPtrString(t.Shares),
		decimalPtrString(t.Nav),
		t.PricingDate,
		t.ConfirmDate,
		string(t.ConfirmationStatus),
		nullString(t.DelayedReason),
		nullString(t.DelayedSince),
		nullString(t.Remark),
		nullString(t.ExternalID),
		nullString(t.ImportBatchID),
		nullString(t.DcaPlanKey),
		createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert trade: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert ID: %w", err)
	}

	t.ID = id
	t.CreatedAt = createdAt
	return t, nil
}

// GetByID retrieves a trade by id, nil when absent
func (r *Repository) GetByID(id int64) (*Trade, error) {
	row := r.db.QueryRow("SELECT "+tradeColumns+" FROM trades WHERE id = ?", id)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	return t, nil
}

// GetByExternalID retrieves a trade by its external id, nil when absent
func (r *Repository) GetByExternalID(externalID string) (*Trade, error) {
	row := r.db.QueryRow("SELECT "+tradeColumns+" FROM trades WHERE external_id = ?", externalID)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade by external id: %w", err)
	}
	return t, nil
}

// List retrieves trades, newest first, optionally filtered by status
func (r *Repository) List(status string, limit int) ([]Trade, error) {
	query := "SELECT " + tradeColumns + " FROM trades"
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY trade_date DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListDueForConfirmation returns pending trades whose confirm date has
// arrived, oldest confirm date first
func (r *Repository) ListDueForConfirmation(today string) ([]Trade, error) {
	rows, err := r.db.Query(
		"SELECT "+tradeColumns+" FROM trades WHERE status = ? AND confirm_date <= ? ORDER BY confirm_date ASC, id ASC",
		string(StatusPending), today,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListBackfillCandidates returns buy trades of a fund in a date range
// that are not cancelled and not yet linked to any plan
func (r *Repository) ListBackfillCandidates(fundCode, fromDay, toDay string) ([]Trade, error) {
	rows, err := r.db.Query(`
		SELECT `+tradeColumns+` FROM trades
		WHERE fund_code = ?
		  AND trade_type = ?
		  AND trade_date >= ? AND trade_date <= ?
		  AND status != ?
		  AND (dca_plan_key IS NULL OR dca_plan_key = '')
		ORDER BY trade_date ASC, id ASC
	`, fundCode, string(TradeTypeBuy), fromDay, toDay, string(StatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("failed to query backfill candidates: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListPlanTrades returns the non-cancelled trades already linked to a
// plan within a date range
func (r *Repository) ListPlanTrades(planKey, fromDay, toDay string) ([]Trade, error) {
	rows, err := r.db.Query(`
		SELECT `+tradeColumns+` FROM trades
		WHERE dca_plan_key = ?
		  AND trade_date >= ? AND trade_date <= ?
		  AND status != ?
		ORDER BY trade_date ASC, id ASC
	`, planKey, fromDay, toDay, string(StatusCancelled))
	if err != nil {
		return nil, fmt.Errorf("failed to query plan trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// Confirm finalizes a trade: records shares, nav and the settled amount,
// moves it to confirmed and clears any delay marker
func (r *Repository) Confirm(id int64, shares, nav, amount decimal.Decimal) error {
	res, err := r.db.Exec(`
		UPDATE trades
		SET status = ?, shares = ?, nav = ?, amount = ?,
		    confirmation_status = ?, delayed_reason = NULL, delayed_since = NULL
		WHERE id = ?
	`, string(StatusConfirmed), shares.String(), nav.String(), amount.String(),
		string(ConfirmationNormal), id)
	if err != nil {
		return fmt.Errorf("failed to confirm trade %d: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("trade %d: %w", id, ErrTradeNotFound)
	}
	return nil
}

// MarkDelayed flags a trade as delayed. delayed_since keeps its first
// value across repeated passes.
func (r *Repository) MarkDelayed(id int64, reason, since string) error {
	_, err := r.db.Exec(`
		UPDATE trades
		SET confirmation_status = ?, delayed_reason = ?,
		    delayed_since = COALESCE(delayed_since, ?)
		WHERE id = ?
	`, string(ConfirmationDelayed), reason, since, id)
	if err != nil {
		return fmt.Errorf("failed to mark trade %d delayed: %w", id, err)
	}
	return nil
}

// UpdateStatus sets the lifecycle status of a trade
func (r *Repository) UpdateStatus(id int64, status TradeStatus) error {
	res, err := r.db.Exec("UPDATE trades SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update trade %d status: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("trade %d: %w", id, ErrTradeNotFound)
	}
	return nil
}

// SkipPendingOn marks the pending trades of a fund on a day as skipped,
// returning how many rows changed
func (r *Repository) SkipPendingOn(fundCode, day string) (int64, error) {
	res, err := r.db.Exec(
		"UPDATE trades SET status = ? WHERE fund_code = ? AND trade_date = ? AND status = ?",
		string(StatusSkipped), fundCode, day, string(StatusPending),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to skip trades for %s on %s: %w", fundCode, day, err)
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// AssignPlanKey links a set of trades to a DCA plan in one transaction
func (r *Repository) AssignPlanKey(ids []int64, planKey string) error {
	if len(ids) == 0 {
		return nil
	}
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare("UPDATE trades SET dca_plan_key = ? WHERE id = ?")
		if err != nil {
			return fmt.Errorf("failed to prepare plan key update: %w", err)
		}
		defer stmt.Close()

		for _, id := range ids {
			if _, err := stmt.Exec(planKey, id); err != nil {
				return fmt.Errorf("failed to link trade %d to plan %s: %w", id, planKey, err)
			}
		}
		return nil
	})
}

// HasTradeOn reports whether any trade (regardless of status) exists for
// a fund on a day. A skipped trade counts: a skip is a decision, not a gap.
func (r *Repository) HasTradeOn(fundCode, day string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM trades WHERE fund_code = ? AND trade_date = ?",
		fundCode, day,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check trades for %s on %s: %w", fundCode, day, err)
	}
	return count > 0, nil
}

// Positions aggregates confirmed share balances and pending subscription
// amounts per fund. Decimal sums run in Go; SQLite SUM would coerce the
// TEXT columns to float.
func (r *Repository) Positions() ([]Position, error) {
	rows, err := r.db.Query(`
		SELECT fund_code, trade_type, status, amount, shares
		FROM trades
		WHERE status IN (?, ?)
		ORDER BY fund_code ASC
	`, string(StatusConfirmed), string(StatusPending))
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	byFund := make(map[string]*Position)
	var order []string

	for rows.Next() {
		var fundCode, tradeType, status, amountRaw string
		var sharesRaw sql.NullString

		if err := rows.Scan(&fundCode, &tradeType, &status, &amountRaw, &sharesRaw); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}

		pos, ok := byFund[fundCode]
		if !ok {
			pos = &Position{FundCode: fundCode}
			byFund[fundCode] = pos
			order = append(order, fundCode)
		}

		switch TradeStatus(status) {
		case StatusConfirmed:
			if !sharesRaw.Valid {
				continue
			}
			shares, err := decimal.NewFromString(sharesRaw.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt shares %q on fund %s: %w", sharesRaw.String, fundCode, err)
			}
			if TradeType(tradeType) == TradeTypeSell {
				pos.Shares = pos.Shares.Sub(shares)
			} else {
				pos.Shares = pos.Shares.Add(shares)
			}
		case StatusPending:
			if TradeType(tradeType) != TradeTypeBuy {
				continue
			}
			amount, err := decimal.NewFromString(amountRaw)
			if err != nil {
				return nil, fmt.Errorf("corrupt amount %q on fund %s: %w", amountRaw, fundCode, err)
			}
			pos.PendingAmount = pos.PendingAmount.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating positions: %w", err)
	}

	out := make([]Position, 0, len(order))
	for _, code := range order {
		out = append(out, *byFund[code])
	}
	return out, nil
}

// ListPendingFundCodes returns the distinct fund codes with pending trades
func (r *Repository) ListPendingFundCodes() ([]string, error) {
	rows, err := r.db.Query(
		"SELECT DISTINCT fund_code FROM trades WHERE status = ? ORDER BY fund_code ASC",
		string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending fund codes: %w", err)
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

// setImportBatch tags a trade with the batch that created it
func (r *Repository) setImportBatch(id int64, batchID string) error {
	_, err := r.db.Exec("UPDATE trades SET import_batch_id = ? WHERE id = ?", batchID, id)
	if err != nil {
		return fmt.Errorf("failed to set import batch on trade %d: %w", id, err)
	}
	return nil
}

// CreateImportBatch records a history import batch
func (r *Repository) CreateImportBatch(id, source string, tradeCount int) error {
	createdAt := time.Now().UTC().Format(domain.TimestampFormat)
	_, err := r.db.Exec(
		"INSERT INTO import_batches (id, source, trade_count, created_at) VALUES (?, ?, ?, ?)",
		id, nullString(source), tradeCount, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record import batch: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanTrade
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*Trade, error) {
	var t Trade
	var tradeType, status, confirmationStatus, amountRaw string
	var shares, nav, delayedReason, delayedSince, remark, externalID, importBatchID, dcaPlanKey sql.NullString

	err := s.Scan(
		&t.ID,
		&t.FundCode,
		&tradeType,
		&amountRaw,
		&t.TradeDate,
		&status,
		&t.Market,
		&shares,
		&nav,
		&t.PricingDate,
		&t.ConfirmDate,
		&confirmationStatus,
		&delayedReason,
		&delayedSince,
		&remark,
		&externalID,
		&importBatchID,
		&dcaPlanKey,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.TradeType = TradeType(tradeType)
	t.Status = TradeStatus(status)
	t.ConfirmationStatus = ConfirmationStatus(confirmationStatus)

	t.Amount, err = decimal.NewFromString(amountRaw)
	if err != nil {
		return nil, fmt.Errorf("corrupt amount %q on trade %d: %w", amountRaw, t.ID, err)
	}
	if t.Shares, err = decimalPtr(shares); err != nil {
		return nil, fmt.Errorf("corrupt shares on trade %d: %w", t.ID, err)
	}
	if t.Nav, err = decimalPtr(nav); err != nil {
		return nil, fmt.Errorf("corrupt nav on trade %d: %w", t.ID, err)
	}

	t.DelayedReason = delayedReason.String
	t.DelayedSince = delayedSince.String
	t.Remark = remark.String
	t.ExternalID = externalID.String
	t.ImportBatchID = importBatchID.String
	t.DcaPlanKey = dcaPlanKey.String

	return &t, nil
}

func scanTrades(rows *sql.Rows) ([]Trade, error) {
	var trades []Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

func decimalPtr(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func decimalPtrString(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
