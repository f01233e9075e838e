package allocation

import "database/sql"

const allocationSchema = `
CREATE TABLE IF NOT EXISTS alloc_config (
    asset_class TEXT PRIMARY KEY,
    target_weight TEXT NOT NULL,
    max_deviation TEXT NOT NULL DEFAULT '0',
    updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(allocationSchema)
	return err
}
