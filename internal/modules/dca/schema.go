package dca

import "database/sql"

const dcaSchema = `
CREATE TABLE IF NOT EXISTS dca_plans (
    plan_key TEXT PRIMARY KEY,
    fund_code TEXT NOT NULL,
    amount TEXT NOT NULL,
    frequency TEXT NOT NULL,
    rule INTEGER NOT NULL DEFAULT 0,
    market TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active',
    created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dca_plans_status ON dca_plans(status);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(dcaSchema)
	return err
}
