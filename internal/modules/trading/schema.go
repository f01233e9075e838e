package trading

import "database/sql"

const tradesSchema = `
CREATE TABLE IF NOT EXISTS trades (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fund_code TEXT NOT NULL,
    trade_type TEXT NOT NULL,
    amount TEXT NOT NULL,
    trade_date TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    market TEXT NOT NULL,
    shares TEXT,
    nav TEXT,
    pricing_date TEXT NOT NULL,
    confirm_date TEXT NOT NULL,
    confirmation_status TEXT NOT NULL DEFAULT 'normal',
    delayed_reason TEXT,
    delayed_since TEXT,
    remark TEXT,
    external_id TEXT UNIQUE,
    import_batch_id TEXT,
    dca_plan_key TEXT,
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);
CREATE INDEX IF NOT EXISTS idx_trades_fund_date ON trades(fund_code, trade_date);
CREATE INDEX IF NOT EXISTS idx_trades_confirm_date ON trades(confirm_date);

CREATE TABLE IF NOT EXISTS import_batches (
    id TEXT PRIMARY KEY,
    source TEXT,
    trade_count INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(tradesSchema)
	return err
}
