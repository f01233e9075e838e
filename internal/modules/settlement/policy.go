package settlement

import (
	"fmt"
	"time"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// Calendar is the calendar dependency, injected explicitly. There is no
// package-level default: a policy without a calendar cannot compute dates.
type Calendar interface {
	NextOpenOnOrAfter(market string, date time.Time) (time.Time, error)
	Shift(market string, date time.Time, n int) (time.Time, error)
}

// Policy describes how a fund's market settles a trade.
//
// GuardMarket, when set, is the market whose session must accept the
// order before the pricing market is consulted: an order placed through
// a domestic channel for an overseas fund first waits for the next
// domestic open day.
type Policy struct {
	Market        string `json:"market"`
	GuardMarket   string `json:"guard_market,omitempty"`
	PricingMarket string `json:"pricing_market"`
	CountMarket   string `json:"count_market"`
	SettlementLag int    `json:"settlement_lag"`
}

// Validate checks structural soundness of a policy
func (p Policy) Validate() error {
	if p.PricingMarket == "" {
		return fmt.Errorf("policy for %s has no pricing market", p.Market)
	}
	if p.CountMarket == "" {
		return fmt.Errorf("policy for %s has no count market", p.Market)
	}
	if p.SettlementLag < 0 {
		return fmt.Errorf("policy for %s has negative settlement lag %d", p.Market, p.SettlementLag)
	}
	return nil
}

// DefaultPolicies returns the built-in market policies
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		domain.MarketCNA: {
			Market:        domain.MarketCNA,
			PricingMarket: domain.MarketCNA,
			CountMarket:   domain.MarketCNA,
			SettlementLag: 1,
		},
		domain.MarketUSNYSE: {
			Market:        domain.MarketUSNYSE,
			GuardMarket:   domain.MarketCNA,
			PricingMarket: domain.MarketUSNYSE,
			CountMarket:   domain.MarketUSNYSE,
			SettlementLag: 2,
		},
	}
}

// PolicyFor looks up the policy for a market code
func PolicyFor(market string) (Policy, error) {
	p, ok := DefaultPolicies()[market]
	if !ok {
		return Policy{}, fmt.Errorf("no settlement policy for market %s", market)
	}
	return p, nil
}

// ComputeDates derives the pricing and confirm dates for a trade placed
// on tradeDate. Both dates are computed exactly once, at trade creation,
// and persisted; later calendar patches never move stored dates.
//
// pricing = next open pricing day on or after the guard-cleared date;
// confirm = pricing shifted forward SettlementLag open count days.
func ComputeDates(cal Calendar, p Policy, tradeDate time.Time) (pricingDate, confirmDate time.Time, err error) {
	if err := p.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}

	base := tradeDate
	if p.GuardMarket != "" {
		base, err = cal.NextOpenOnOrAfter(p.GuardMarket, tradeDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("failed to clear guard market %s: %w", p.GuardMarket, err)
		}
	}

	pricingDate, err = cal.NextOpenOnOrAfter(p.PricingMarket, base)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to find pricing date on %s: %w", p.PricingMarket, err)
	}

	confirmDate, err = cal.Shift(p.CountMarket, pricingDate, p.SettlementLag)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to count settlement days on %s: %w", p.CountMarket, err)
	}

	return pricingDate, confirmDate, nil
}
