package trading

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// NavSource is the NAV lookup dependency of the confirmer. found is
// false when no NAV exists for the exact day.
type NavSource interface {
	Get(fundCode, day string) (decimal.Decimal, bool, error)
}

// Confirmer runs the confirmation pass: every pending trade whose
// confirm date has arrived either settles against the NAV of its
// pricing date or is flagged delayed.
//
// The pass is idempotent. A delayed trade recovers automatically on a
// later pass the moment its NAV appears; delayed_since keeps the date
// of first detection across passes.
type Confirmer struct {
	trades *Repository
	navs   NavSource
	log    zerolog.Logger
}

// NewConfirmer creates a new confirmer
func NewConfirmer(trades *Repository, navs NavSource, log zerolog.Logger) *Confirmer {
	return &Confirmer{
		trades: trades,
		navs:   navs,
		log:    log.With().Str("service", "confirmer").Logger(),
	}
}

// Run processes every due trade as of today. Per-trade failures are
// logged and counted, never abort the pass.
func (c *Confirmer) Run(today time.Time) (*ConfirmResult, error) {
	todayStr := domain.FormatDate(today)

	due, err := c.trades.ListDueForConfirmation(todayStr)
	if err != nil {
		return nil, err
	}

	result := &ConfirmResult{Checked: len(due)}

	for _, trade := range due {
		nav, found, err := c.navs.Get(trade.FundCode, trade.PricingDate)
		if err != nil {
			c.log.Error().Err(err).Int64("trade_id", trade.ID).Msg("NAV lookup failed")
			result.Failed++
			continue
		}

		// A zero NAV is indistinguishable from an absent one
		if !found || !nav.IsPositive() {
			if err := c.trades.MarkDelayed(trade.ID, DelayReasonNavMissing, todayStr); err != nil {
				c.log.Error().Err(err).Int64("trade_id", trade.ID).Msg("Failed to mark trade delayed")
				result.Failed++
				continue
			}
			result.Delayed++
			c.log.Warn().
				Int64("trade_id", trade.ID).
				Str("fund", trade.FundCode).
				Str("pricing_date", trade.PricingDate).
				Msg("Trade delayed, NAV missing")
			continue
		}

		if err := c.confirm(&trade, nav); err != nil {
			c.log.Error().Err(err).Int64("trade_id", trade.ID).Msg("Failed to confirm trade")
			result.Failed++
			continue
		}
		result.Confirmed++
	}

	c.log.Info().
		Int("checked", result.Checked).
		Int("confirmed", result.Confirmed).
		Int("delayed", result.Delayed).
		Int("failed", result.Failed).
		Msg("Confirmation pass completed")

	return result, nil
}

func (c *Confirmer) confirm(trade *Trade, nav decimal.Decimal) error {
	nav = domain.QuantizeNav(nav)

	var shares, amount decimal.Decimal
	switch trade.TradeType {
	case TradeTypeSell:
		if trade.Shares == nil {
			return fmt.Errorf("sell trade %d has no shares recorded", trade.ID)
		}
		shares = domain.QuantizeShares(*trade.Shares)
		amount = domain.QuantizeAmount(shares.Mul(nav))
	default:
		shares = domain.QuantizeShares(trade.Amount.Div(nav))
		amount = trade.Amount
	}

	if err := c.trades.Confirm(trade.ID, shares, nav, amount); err != nil {
		return err
	}

	c.log.Info().
		Int64("trade_id", trade.ID).
		Str("fund", trade.FundCode).
		Str("nav", nav.String()).
		Str("shares", shares.String()).
		Msg("Trade confirmed")
	return nil
}
