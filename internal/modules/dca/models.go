package dca

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrPlanNotFound means no DCA plan exists under the given key
var ErrPlanNotFound = errors.New("dca plan not found")

// Frequency is how often a plan buys
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"   // every market-open day
	FrequencyWeekly  Frequency = "weekly"  // one weekday per week
	FrequencyMonthly Frequency = "monthly" // one day-of-month per month
)

// IsValid checks if the frequency is known
func (f Frequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly || f == FrequencyMonthly
}

// PlanStatus is the lifecycle state of a plan
type PlanStatus string

const (
	PlanStatusActive PlanStatus = "active"
	PlanStatusPaused PlanStatus = "paused"
)

// Plan is a recurring buy schedule for one fund.
//
// Rule depends on the frequency: ISO weekday 1..5 for weekly plans,
// day-of-month 1..31 for monthly plans, 0 for daily plans. Amount is
// the per-occurrence amount and serves only as a hint during backfill
// tie-breaks, never as a match gate.
type Plan struct {
	PlanKey   string          `json:"plan_key"`
	FundCode  string          `json:"fund_code"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency Frequency       `json:"frequency"`
	Rule      int             `json:"rule"`
	Market    string          `json:"market"`
	Status    PlanStatus      `json:"status"`
	CreatedAt string          `json:"created_at"`
}

// Match links one historical trade to one scheduled day.
// AmountDeviation is (trade amount − plan amount) / plan amount,
// recorded as a fact; a large deviation never disqualifies a date match.
type Match struct {
	TradeID         int64           `json:"trade_id"`
	ScheduledDay    string          `json:"scheduled_day"`
	TradeDate       string          `json:"trade_date"`
	Amount          decimal.Decimal `json:"amount"`
	AmountDeviation decimal.Decimal `json:"amount_deviation"`
}

// BackfillResult is the outcome of matching historical trades to a plan
type BackfillResult struct {
	PlanKey   string   `json:"plan_key"`
	Matches   []Match  `json:"matches"`
	Missed    []string `json:"missed"`    // scheduled days with no trade
	Unmatched []int64  `json:"unmatched"` // candidate trades left unlinked
	Applied   bool     `json:"applied"`
}

// RunResult summarizes one daily plan run
type RunResult struct {
	Due     int `json:"due"`
	Created int `json:"created"`
	Existed int `json:"existed"`
	Failed  int `json:"failed"`
}
