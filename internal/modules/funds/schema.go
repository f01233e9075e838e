package funds

import "database/sql"

const fundsSchema = `
CREATE TABLE IF NOT EXISTS funds (
    fund_code TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    asset_class TEXT NOT NULL,
    market TEXT NOT NULL,
    alias TEXT
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(fundsSchema)
	return err
}
