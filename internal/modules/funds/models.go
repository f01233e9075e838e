package funds

import "errors"

// ErrFundNotFound means the fund code is not registered
var ErrFundNotFound = errors.New("fund not found")

// Fund is a registered open-ended fund
type Fund struct {
	FundCode   string `json:"fund_code"`
	Name       string `json:"name"`
	AssetClass string `json:"asset_class"` // e.g. equity_cn, equity_us, bond, gold
	Market     string `json:"market"`      // settlement policy selector
	Alias      string `json:"alias,omitempty"`
}
