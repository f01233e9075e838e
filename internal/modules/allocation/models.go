package allocation

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrTargetNotFound is returned when no target exists for an asset class
var ErrTargetNotFound = errors.New("allocation target not found")

// DefaultMaxDeviation applies when a target does not set its own band
var DefaultMaxDeviation = decimal.RequireFromString("0.05")

// Target is the desired portfolio weight of one asset class.
// MaxDeviation is the tolerated absolute drift before rebalancing
// advice fires; zero means "use the default band".
type Target struct {
	AssetClass   string          `json:"asset_class"`
	TargetWeight decimal.Decimal `json:"target_weight"`
	MaxDeviation decimal.Decimal `json:"max_deviation"`
	UpdatedAt    string          `json:"updated_at,omitempty"`
}

// Band returns the effective deviation band for this target
func (t *Target) Band() decimal.Decimal {
	if t.MaxDeviation.IsPositive() {
		return t.MaxDeviation
	}
	return DefaultMaxDeviation
}
