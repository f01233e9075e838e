package navs

import "database/sql"

const navsSchema = `
CREATE TABLE IF NOT EXISTS navs (
    fund_code TEXT NOT NULL,
    day TEXT NOT NULL,
    nav TEXT NOT NULL,
    PRIMARY KEY (fund_code, day)
);

CREATE INDEX IF NOT EXISTS idx_navs_day ON navs(day);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(navsSchema)
	return err
}
