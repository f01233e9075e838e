package portfolio

import "github.com/shopspring/decimal"

// Holding is one fund position valued at a specific day's NAV
type Holding struct {
	FundCode   string          `json:"fund_code"`
	Name       string          `json:"name"`
	AssetClass string          `json:"asset_class"`
	Shares     decimal.Decimal `json:"shares"`
	Nav        decimal.Decimal `json:"nav"`
	Value      decimal.Decimal `json:"value"`
	Weight     decimal.Decimal `json:"weight"`
}

// ClassWeight aggregates holdings of one asset class
type ClassWeight struct {
	AssetClass string          `json:"asset_class"`
	Value      decimal.Decimal `json:"value"`
	Weight     decimal.Decimal `json:"weight"`
}

// Valuation prices the confirmed holdings at one day's NAVs. Funds
// without a NAV on that exact day are listed in Excluded and carry no
// value; the store is never interpolated.
type Valuation struct {
	Day      string          `json:"day"`
	Total    decimal.Decimal `json:"total"`
	Holdings []Holding       `json:"holdings"`
	Classes  []ClassWeight   `json:"classes"`
	Excluded []string        `json:"excluded"`
}

// Advice actions
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

// Advice is one rebalancing step for an asset class whose weight has
// drifted outside its band
type Advice struct {
	AssetClass   string          `json:"asset_class"`
	TargetWeight decimal.Decimal `json:"target_weight"`
	ActualWeight decimal.Decimal `json:"actual_weight"`
	Diff         decimal.Decimal `json:"diff"`
	Action       string          `json:"action"`
	Amount       decimal.Decimal `json:"amount"`
}
