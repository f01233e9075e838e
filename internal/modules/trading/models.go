package trading

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrTradeNotFound means no trade exists with the given id
var ErrTradeNotFound = errors.New("trade not found")

// ErrInvalidManualConfirmation means a manual confirmation was rejected:
// the trade is not pending, or the supplied shares/nav are not positive.
var ErrInvalidManualConfirmation = errors.New("invalid manual confirmation")

// ErrTradeNotPending means an operation that only applies to pending
// trades (cancel, skip) hit a trade in another state
var ErrTradeNotPending = errors.New("trade is not pending")

// TradeType distinguishes subscriptions from redemptions
type TradeType string

const (
	TradeTypeBuy  TradeType = "buy"
	TradeTypeSell TradeType = "sell"
)

// IsValid checks if the trade type is known
func (tt TradeType) IsValid() bool {
	return tt == TradeTypeBuy || tt == TradeTypeSell
}

// TradeStatus is the lifecycle state of a trade
type TradeStatus string

const (
	StatusPending   TradeStatus = "pending"
	StatusConfirmed TradeStatus = "confirmed"
	StatusSkipped   TradeStatus = "skipped"
	StatusCancelled TradeStatus = "cancelled"
)

// ConfirmationStatus qualifies a pending trade: normal means settlement
// is on track, delayed means the confirm date has passed without a
// usable NAV.
type ConfirmationStatus string

const (
	ConfirmationNormal  ConfirmationStatus = "normal"
	ConfirmationDelayed ConfirmationStatus = "delayed"
)

// DelayReasonNavMissing is recorded when a trade passes its confirm date
// with no published NAV (a zero NAV counts as missing).
const DelayReasonNavMissing = "nav_missing"

// Trade is a fund subscription or redemption order.
//
// PricingDate and ConfirmDate are computed once at creation from the
// market's settlement policy and never recomputed afterwards.
type Trade struct {
	ID                 int64              `json:"id"`
	FundCode           string             `json:"fund_code"`
	TradeType          TradeType          `json:"trade_type"`
	Amount             decimal.Decimal    `json:"amount"`
	TradeDate          string             `json:"trade_date"`
	Status             TradeStatus        `json:"status"`
	Market             string             `json:"market"`
	Shares             *decimal.Decimal   `json:"shares,omitempty"`
	Nav                *decimal.Decimal   `json:"nav,omitempty"`
	PricingDate        string             `json:"pricing_date"`
	ConfirmDate        string             `json:"confirm_date"`
	ConfirmationStatus ConfirmationStatus `json:"confirmation_status"`
	DelayedReason      string             `json:"delayed_reason,omitempty"`
	DelayedSince       string             `json:"delayed_since,omitempty"`
	Remark             string             `json:"remark,omitempty"`
	ExternalID         string             `json:"external_id,omitempty"`
	ImportBatchID      string             `json:"import_batch_id,omitempty"`
	DcaPlanKey         string             `json:"dca_plan_key,omitempty"`
	CreatedAt          string             `json:"created_at"`
}

// CreateTradeInput is the service-level input for creating a trade
type CreateTradeInput struct {
	FundCode   string           `json:"fund_code"`
	TradeType  TradeType        `json:"trade_type"`
	Amount     decimal.Decimal  `json:"amount"`
	TradeDate  string           `json:"trade_date"`
	Shares     *decimal.Decimal `json:"shares,omitempty"` // required for sells
	Remark     string           `json:"remark,omitempty"`
	ExternalID string           `json:"external_id,omitempty"`
	DcaPlanKey string           `json:"dca_plan_key,omitempty"`
}

// Position is the confirmed share balance of one fund plus its
// still-pending subscription amount
type Position struct {
	FundCode      string          `json:"fund_code"`
	Shares        decimal.Decimal `json:"shares"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}

// ImportResult summarizes a history import batch
type ImportResult struct {
	BatchID    string  `json:"batch_id"`
	Created    int     `json:"created"`
	Duplicates int     `json:"duplicates"`
	Failed     int     `json:"failed"`
	TradeIDs   []int64 `json:"trade_ids"`
}

// ConfirmResult summarizes one confirmation pass
type ConfirmResult struct {
	Checked   int `json:"checked"`
	Confirmed int `json:"confirmed"`
	Delayed   int `json:"delayed"`
	Failed    int `json:"failed"`
}
