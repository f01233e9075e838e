package trading

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/funds"
	"github.com/yuanmu/fundtrack/internal/modules/settlement"
)

// FundResolver resolves fund codes to registry entries
type FundResolver interface {
	Get(fundCode string) (*funds.Fund, error)
}

// Service creates and manages trades. Settlement dates are derived at
// creation time through the injected calendar and never recomputed.
type Service struct {
	trades   *Repository
	funds    FundResolver
	cal      settlement.Calendar
	policies map[string]settlement.Policy
	log      zerolog.Logger
}

// NewService creates a new trading service
func NewService(
	trades *Repository,
	fundResolver FundResolver,
	cal settlement.Calendar,
	policies map[string]settlement.Policy,
	log zerolog.Logger,
) *Service {
	return &Service{
		trades:   trades,
		funds:    fundResolver,
		cal:      cal,
		policies: policies,
		log:      log.With().Str("service", "trading").Logger(),
	}
}

// Create validates the input, derives pricing and confirm dates from the
// fund's settlement policy and inserts a pending trade. A calendar gap
// aborts creation: no trade is ever stored with guessed dates.
//
// When ExternalID is set and already known, the existing trade is
// returned unchanged, making imports idempotent.
func (s *Service) Create(input CreateTradeInput) (*Trade, error) {
	if !input.TradeType.IsValid() {
		return nil, fmt.Errorf("invalid trade type %q", input.TradeType)
	}

	tradeDate, err := domain.ParseDate(input.TradeDate)
	if err != nil {
		return nil, err
	}

	amount := domain.QuantizeAmount(input.Amount)
	var shares *decimal.Decimal

	switch input.TradeType {
	case TradeTypeBuy:
		if !amount.IsPositive() {
			return nil, fmt.Errorf("buy amount must be positive, got %s", amount)
		}
	case TradeTypeSell:
		if input.Shares == nil || !input.Shares.IsPositive() {
			return nil, fmt.Errorf("sell trades require positive shares")
		}
		q := domain.QuantizeShares(*input.Shares)
		shares = &q
		if amount.IsNegative() {
			return nil, fmt.Errorf("sell amount estimate must not be negative")
		}
	}

	if input.ExternalID != "" {
		existing, err := s.trades.GetByExternalID(input.ExternalID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	fund, err := s.funds.Get(input.FundCode)
	if err != nil {
		return nil, err
	}

	policy, ok := s.policies[fund.Market]
	if !ok {
		return nil, fmt.Errorf("no settlement policy for market %s", fund.Market)
	}

	pricingDate, confirmDate, err := settlement.ComputeDates(s.cal, policy, tradeDate)
	if err != nil {
		return nil, fmt.Errorf("failed to derive settlement dates: %w", err)
	}

	trade := &Trade{
		FundCode:           fund.FundCode,
		TradeType:          input.TradeType,
		Amount:             amount,
		TradeDate:          input.TradeDate,
		Status:             StatusPending,
		Market:             fund.Market,
		Shares:             shares,
		PricingDate:        domain.FormatDate(pricingDate),
		ConfirmDate:        domain.FormatDate(confirmDate),
		ConfirmationStatus: ConfirmationNormal,
		Remark:             input.Remark,
		ExternalID:         input.ExternalID,
		DcaPlanKey:         input.DcaPlanKey,
	}

	created, err := s.trades.Create(trade)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("trade_id", created.ID).
		Str("fund", created.FundCode).
		Str("trade_date", created.TradeDate).
		Str("pricing_date", created.PricingDate).
		Str("confirm_date", created.ConfirmDate).
		Msg("Trade created")

	return created, nil
}

// Get retrieves a trade by id
func (s *Service) Get(id int64) (*Trade, error) {
	t, err := s.trades.GetByID(id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("trade %d: %w", id, ErrTradeNotFound)
	}
	return t, nil
}

// List retrieves trades with an optional status filter
func (s *Service) List(status string, limit int) ([]Trade, error) {
	return s.trades.List(status, limit)
}

// ManualConfirm confirms a pending trade by hand. Only pending trades
// with positive shares and a positive NAV are accepted; confirmed trades
// can never be re-confirmed.
func (s *Service) ManualConfirm(id int64, shares, nav decimal.Decimal) (*Trade, error) {
	trade, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if trade.Status != StatusPending {
		return nil, fmt.Errorf("trade %d is %s: %w", id, trade.Status, ErrInvalidManualConfirmation)
	}
	if !shares.IsPositive() {
		return nil, fmt.Errorf("shares must be positive: %w", ErrInvalidManualConfirmation)
	}
	if !nav.IsPositive() {
		return nil, fmt.Errorf("nav must be positive: %w", ErrInvalidManualConfirmation)
	}

	shares = domain.QuantizeShares(shares)
	nav = domain.QuantizeNav(nav)

	amount := trade.Amount
	if trade.TradeType == TradeTypeSell {
		amount = domain.QuantizeAmount(shares.Mul(nav))
	}

	if err := s.trades.Confirm(id, shares, nav, amount); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("trade_id", id).
		Str("shares", shares.String()).
		Str("nav", nav.String()).
		Msg("Trade confirmed manually")

	return s.Get(id)
}

// Cancel cancels a pending trade
func (s *Service) Cancel(id int64) (*Trade, error) {
	trade, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if trade.Status != StatusPending {
		return nil, fmt.Errorf("trade %d is %s: %w", id, trade.Status, ErrTradeNotPending)
	}

	if err := s.trades.UpdateStatus(id, StatusCancelled); err != nil {
		return nil, err
	}

	s.log.Info().Int64("trade_id", id).Msg("Trade cancelled")
	return s.Get(id)
}

// SkipDcaForDate marks the pending trades of a fund on a day as skipped,
// pausing a DCA occurrence without deleting its record
func (s *Service) SkipDcaForDate(fundCode, day string) (int64, error) {
	if _, err := domain.ParseDate(day); err != nil {
		return 0, err
	}
	skipped, err := s.trades.SkipPendingOn(fundCode, day)
	if err != nil {
		return 0, err
	}
	if skipped > 0 {
		s.log.Info().Str("fund", fundCode).Str("day", day).Int64("skipped", skipped).Msg("DCA occurrence skipped")
	}
	return skipped, nil
}

// Import creates historical trades under one batch id. Trades with a
// known external id are counted as duplicates, not re-created.
func (s *Service) Import(inputs []CreateTradeInput, source string) (*ImportResult, error) {
	result := &ImportResult{BatchID: uuid.NewString()}

	for _, input := range inputs {
		if input.ExternalID != "" {
			existing, err := s.trades.GetByExternalID(input.ExternalID)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				result.Duplicates++
				continue
			}
		}

		created, err := s.Create(input)
		if err != nil {
			s.log.Error().Err(err).Str("fund", input.FundCode).Str("trade_date", input.TradeDate).
				Msg("Failed to import trade")
			result.Failed++
			continue
		}

		if err := s.trades.setImportBatch(created.ID, result.BatchID); err != nil {
			s.log.Error().Err(err).Int64("trade_id", created.ID).Msg("Failed to tag import batch")
		}
		result.Created++
		result.TradeIDs = append(result.TradeIDs, created.ID)
	}

	if err := s.trades.CreateImportBatch(result.BatchID, source, result.Created); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("batch_id", result.BatchID).
		Int("created", result.Created).
		Int("duplicates", result.Duplicates).
		Int("failed", result.Failed).
		Msg("History import completed")

	return result, nil
}

// Positions returns confirmed share balances and pending amounts per fund
func (s *Service) Positions() ([]Position, error) {
	return s.trades.Positions()
}
