package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the canonical civil-date layout used across the system.
// Dates are stored as TEXT in this format and compared lexicographically.
const DateFormat = "2006-01-02"

// TimestampFormat is used for created_at style columns.
const TimestampFormat = "2006-01-02 15:04:05"

// Market codes known to the default settlement policies.
const (
	MarketCNA    = "CN_A"
	MarketUSNYSE = "US_NYSE"
)

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a time as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// Today returns the current civil date at UTC midnight.
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// QuantizeAmount rounds a money amount to 2 decimal places, half up.
func QuantizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// QuantizeShares rounds fund shares to 4 decimal places, half up.
func QuantizeShares(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}

// QuantizeNav rounds a net asset value to 4 decimal places, half up.
func QuantizeNav(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}
