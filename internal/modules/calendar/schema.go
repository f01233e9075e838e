package calendar

import "database/sql"

const calendarSchema = `
CREATE TABLE IF NOT EXISTS trading_calendar (
    market TEXT NOT NULL,
    day TEXT NOT NULL,
    is_open INTEGER NOT NULL,
    PRIMARY KEY (market, day)
);

CREATE INDEX IF NOT EXISTS idx_trading_calendar_day ON trading_calendar(day);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(calendarSchema)
	return err
}
