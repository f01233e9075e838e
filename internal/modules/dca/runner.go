package dca

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/trading"
)

// TradeCreator creates pending trades for due plan occurrences
type TradeCreator interface {
	Create(input trading.CreateTradeInput) (*trading.Trade, error)
}

// TradeChecker answers whether a fund already traded on a day
type TradeChecker interface {
	HasTradeOn(fundCode, day string) (bool, error)
}

// Runner generates the pending trades of active plans. Any existing
// trade on the execution day blocks regeneration: a skipped or
// cancelled occurrence is a decision, not a gap to refill.
type Runner struct {
	plans   *Repository
	matcher *Matcher
	creator TradeCreator
	checker TradeChecker
	log     zerolog.Logger
}

// NewRunner creates a new DCA runner
func NewRunner(plans *Repository, matcher *Matcher, creator TradeCreator, checker TradeChecker, log zerolog.Logger) *Runner {
	return &Runner{
		plans:   plans,
		matcher: matcher,
		creator: creator,
		checker: checker,
		log:     log.With().Str("service", "dca_runner").Logger(),
	}
}

// RunDaily creates a pending buy for every active plan that executes
// today and has no trade yet. Per-plan failures never abort the run.
func (r *Runner) RunDaily(today time.Time) (*RunResult, error) {
	plans, err := r.plans.ListActive()
	if err != nil {
		return nil, err
	}

	todayStr := domain.FormatDate(today)
	result := &RunResult{}

	for i := range plans {
		plan := &plans[i]

		due, err := r.matcher.IsExecutionDay(plan, today)
		if err != nil {
			r.log.Error().Err(err).Str("plan", plan.PlanKey).Msg("Failed to evaluate schedule")
			result.Failed++
			continue
		}
		if !due {
			continue
		}
		result.Due++

		exists, err := r.checker.HasTradeOn(plan.FundCode, todayStr)
		if err != nil {
			r.log.Error().Err(err).Str("plan", plan.PlanKey).Msg("Failed to check existing trades")
			result.Failed++
			continue
		}
		if exists {
			result.Existed++
			continue
		}

		trade, err := r.creator.Create(trading.CreateTradeInput{
			FundCode:   plan.FundCode,
			TradeType:  trading.TradeTypeBuy,
			Amount:     plan.Amount,
			TradeDate:  todayStr,
			DcaPlanKey: plan.PlanKey,
		})
		if err != nil {
			r.log.Error().Err(err).Str("plan", plan.PlanKey).Msg("Failed to create plan trade")
			result.Failed++
			continue
		}

		result.Created++
		r.log.Info().
			Str("plan", plan.PlanKey).
			Int64("trade_id", trade.ID).
			Str("amount", plan.Amount.String()).
			Msg("Plan trade created")
	}

	r.log.Info().
		Int("due", result.Due).
		Int("created", result.Created).
		Int("existed", result.Existed).
		Int("failed", result.Failed).
		Msg("Daily plan run completed")

	return result, nil
}
