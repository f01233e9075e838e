package navs

import "github.com/shopspring/decimal"

// NavPoint is one published net asset value for a fund on a day
type NavPoint struct {
	FundCode string          `json:"fund_code"`
	Day      string          `json:"day"` // YYYY-MM-DD
	Nav      decimal.Decimal `json:"nav"`
}
