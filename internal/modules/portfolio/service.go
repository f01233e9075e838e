package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/allocation"
	"github.com/yuanmu/fundtrack/internal/modules/funds"
	"github.com/yuanmu/fundtrack/internal/modules/trading"
)

// PositionSource provides the confirmed holdings and pending cash
type PositionSource interface {
	Positions() ([]trading.Position, error)
}

// TradeLister lists trades by status for reporting
type TradeLister interface {
	List(status string, limit int) ([]trading.Trade, error)
}

// FundResolver looks up registered fund metadata
type FundResolver interface {
	Get(fundCode string) (*funds.Fund, error)
}

// NavSource answers exact-date NAV lookups
type NavSource interface {
	Get(fundCode, day string) (decimal.Decimal, bool, error)
}

// TargetSource lists the configured allocation targets
type TargetSource interface {
	List() ([]allocation.Target, error)
}

// Notifier pushes a rendered report to an external channel
type Notifier interface {
	Send(content string) error
}

// Service values holdings and derives rebalancing advice
type Service struct {
	positions PositionSource
	trades    TradeLister
	funds     FundResolver
	navs      NavSource
	targets   TargetSource
	notifier  Notifier
	log       zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(positions PositionSource, trades TradeLister, funds FundResolver, navs NavSource, targets TargetSource, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		positions: positions,
		trades:    trades,
		funds:     funds,
		navs:      navs,
		targets:   targets,
		notifier:  notifier,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// ValuationAsOf prices every confirmed holding at the given day's NAV.
// A fund with no NAV on that day goes to the excluded list; its shares
// never contribute to the total.
func (s *Service) ValuationAsOf(date time.Time) (*Valuation, error) {
	positions, err := s.positions.Positions()
	if err != nil {
		return nil, fmt.Errorf("failed to load positions: %w", err)
	}

	day := domain.FormatDate(date)
	valuation := &Valuation{
		Day:      day,
		Holdings: []Holding{},
		Classes:  []ClassWeight{},
		Excluded: []string{},
	}

	for _, pos := range positions {
		if !pos.Shares.IsPositive() {
			continue
		}

		name, class := pos.FundCode, "unclassified"
		fund, err := s.funds.Get(pos.FundCode)
		if err == nil {
			name, class = fund.Name, fund.AssetClass
		} else if !errors.Is(err, funds.ErrFundNotFound) {
			return nil, fmt.Errorf("failed to resolve fund %s: %w", pos.FundCode, err)
		}

		nav, found, err := s.navs.Get(pos.FundCode, day)
		if err != nil {
			return nil, fmt.Errorf("failed to look up nav for %s: %w", pos.FundCode, err)
		}
		if !found || !nav.IsPositive() {
			valuation.Excluded = append(valuation.Excluded, pos.FundCode)
			continue
		}

		valuation.Holdings = append(valuation.Holdings, Holding{
			FundCode:   pos.FundCode,
			Name:       name,
			AssetClass: class,
			Shares:     pos.Shares,
			Nav:        nav,
			Value:      domain.QuantizeAmount(pos.Shares.Mul(nav)),
		})
	}

	byClass := make(map[string]decimal.Decimal)
	for _, h := range valuation.Holdings {
		valuation.Total = valuation.Total.Add(h.Value)
		byClass[h.AssetClass] = byClass[h.AssetClass].Add(h.Value)
	}

	if valuation.Total.IsPositive() {
		for i := range valuation.Holdings {
			h := &valuation.Holdings[i]
			h.Weight = h.Value.Div(valuation.Total).Round(4)
		}
		for class, value := range byClass {
			valuation.Classes = append(valuation.Classes, ClassWeight{
				AssetClass: class,
				Value:      value,
				Weight:     value.Div(valuation.Total).Round(4),
			})
		}
	}

	sort.Slice(valuation.Holdings, func(i, j int) bool {
		return valuation.Holdings[i].Value.GreaterThan(valuation.Holdings[j].Value)
	})
	sort.Slice(valuation.Classes, func(i, j int) bool {
		return valuation.Classes[i].Value.GreaterThan(valuation.Classes[j].Value)
	})
	sort.Strings(valuation.Excluded)

	return valuation, nil
}

// RebalanceAdvice compares class weights against the configured targets
// and proposes a half-way correction for every class outside its band.
// Advice is ordered by drift, largest first.
func (s *Service) RebalanceAdvice(date time.Time) ([]Advice, error) {
	valuation, err := s.ValuationAsOf(date)
	if err != nil {
		return nil, err
	}

	targets, err := s.targets.List()
	if err != nil {
		return nil, fmt.Errorf("failed to load allocation targets: %w", err)
	}

	actual := make(map[string]decimal.Decimal, len(valuation.Classes))
	for _, c := range valuation.Classes {
		actual[c.AssetClass] = c.Weight
	}

	advice := []Advice{}
	for i := range targets {
		target := &targets[i]
		diff := actual[target.AssetClass].Sub(target.TargetWeight)
		if diff.Abs().LessThanOrEqual(target.Band()) {
			continue
		}

		action := ActionBuy
		if diff.IsPositive() {
			action = ActionSell
		}
		// Correct half the drift to avoid oscillating around the target
		amount := domain.QuantizeAmount(valuation.Total.Mul(diff.Abs()).Div(decimal.NewFromInt(2)))

		advice = append(advice, Advice{
			AssetClass:   target.AssetClass,
			TargetWeight: target.TargetWeight,
			ActualWeight: actual[target.AssetClass],
			Diff:         diff,
			Action:       action,
			Amount:       amount,
		})
	}

	sort.Slice(advice, func(i, j int) bool {
		return advice[i].Diff.Abs().GreaterThan(advice[j].Diff.Abs())
	})

	return advice, nil
}

// DailyReport renders the day's summary and pushes it through the
// notifier. The rendered text is returned either way.
func (s *Service) DailyReport(today time.Time) (string, error) {
	valuation, err := s.ValuationAsOf(today)
	if err != nil {
		return "", err
	}
	advice, err := s.RebalanceAdvice(today)
	if err != nil {
		return "", err
	}
	pending, err := s.trades.List(string(trading.StatusPending), 200)
	if err != nil {
		return "", fmt.Errorf("failed to list pending trades: %w", err)
	}

	report := s.renderReport(valuation, advice, pending)

	if err := s.notifier.Send(report); err != nil {
		s.log.Error().Err(err).Msg("Failed to push daily report")
		return report, fmt.Errorf("failed to push daily report: %w", err)
	}
	return report, nil
}

func (s *Service) renderReport(valuation *Valuation, advice []Advice, pending []trading.Trade) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Fund report %s\n", valuation.Day)
	fmt.Fprintf(&b, "Total value: %s\n", valuation.Total.StringFixed(2))

	for _, c := range valuation.Classes {
		fmt.Fprintf(&b, "- %s: %s (%s%%)\n",
			c.AssetClass, c.Value.StringFixed(2), c.Weight.Mul(decimal.NewFromInt(100)).StringFixed(1))
	}
	if len(valuation.Excluded) > 0 {
		fmt.Fprintf(&b, "No NAV for: %s\n", strings.Join(valuation.Excluded, ", "))
	}

	delayed := 0
	for _, t := range pending {
		if t.ConfirmationStatus == trading.ConfirmationDelayed {
			delayed++
		}
	}
	fmt.Fprintf(&b, "Pending trades: %d (%d delayed)\n", len(pending), delayed)

	if len(advice) == 0 {
		b.WriteString("Allocation within bands, no action needed\n")
	} else {
		b.WriteString("Rebalancing advice:\n")
		for _, a := range advice {
			fmt.Fprintf(&b, "- %s %s %s (weight %s%% vs target %s%%)\n",
				a.Action, a.AssetClass, a.Amount.StringFixed(2),
				a.ActualWeight.Mul(decimal.NewFromInt(100)).StringFixed(1),
				a.TargetWeight.Mul(decimal.NewFromInt(100)).StringFixed(1))
		}
	}

	return b.String()
}
