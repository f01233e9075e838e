package dca

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/trading"
)

// Calendar is the calendar dependency of the matcher
type Calendar interface {
	IsOpen(market string, date time.Time) (bool, error)
	NextOpenOnOrAfter(market string, date time.Time) (time.Time, error)
}

// TradeStore is the slice of the trade repository the matcher needs
type TradeStore interface {
	ListBackfillCandidates(fundCode, fromDay, toDay string) ([]trading.Trade, error)
	ListPlanTrades(planKey, fromDay, toDay string) ([]trading.Trade, error)
	AssignPlanKey(ids []int64, planKey string) error
}

// Matcher links historical trades to a plan's schedule.
//
// The date is the only gate: a trade sitting on a scheduled day matches
// no matter how far its amount strays from the plan amount. The plan
// amount breaks ties between several same-day trades, and the relative
// deviation of each match is recorded as a fact in the result.
type Matcher struct {
	plans  *Repository
	trades TradeStore
	cal    Calendar
	log    zerolog.Logger
}

// NewMatcher creates a new backfill matcher
func NewMatcher(plans *Repository, trades TradeStore, cal Calendar, log zerolog.Logger) *Matcher {
	return &Matcher{
		plans:  plans,
		trades: trades,
		cal:    cal,
		log:    log.With().Str("service", "dca_matcher").Logger(),
	}
}

// ScheduledDays enumerates the nominal schedule of a plan in [from, to].
// Weekly and monthly days come straight from the rule (weekday equality,
// day-of-month with the short-month clamp) with no open-day resolution:
// a scheduled day that falls on a holiday is still the scheduled day.
// Daily plans schedule every open market day, looked up strictly.
func (m *Matcher) ScheduledDays(plan *Plan, from, to time.Time) ([]string, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s after %s", domain.FormatDate(from), domain.FormatDate(to))
	}

	var days []string

	switch plan.Frequency {
	case FrequencyDaily:
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			open, err := m.cal.IsOpen(plan.Market, d)
			if err != nil {
				return nil, err
			}
			if open {
				days = append(days, domain.FormatDate(d))
			}
		}

	case FrequencyWeekly:
		if plan.Rule < 1 || plan.Rule > 5 {
			return nil, fmt.Errorf("weekly plan %s has invalid weekday rule %d", plan.PlanKey, plan.Rule)
		}
		d := from
		for int(d.Weekday()) != plan.Rule {
			d = d.AddDate(0, 0, 1)
		}
		for ; !d.After(to); d = d.AddDate(0, 0, 7) {
			days = append(days, domain.FormatDate(d))
		}

	case FrequencyMonthly:
		if plan.Rule < 1 || plan.Rule > 31 {
			return nil, fmt.Errorf("monthly plan %s has invalid day-of-month rule %d", plan.PlanKey, plan.Rule)
		}
		cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
		for !cursor.After(to) {
			scheduled := monthlyScheduledDay(cursor.Year(), cursor.Month(), plan.Rule)
			if !scheduled.Before(from) && !scheduled.After(to) {
				days = append(days, domain.FormatDate(scheduled))
			}
			cursor = cursor.AddDate(0, 1, 0)
		}

	default:
		return nil, fmt.Errorf("plan %s has invalid frequency %q", plan.PlanKey, plan.Frequency)
	}

	return days, nil
}

// monthlyScheduledDay resolves a day-of-month rule within one month.
// A month shorter than the rule clamps the occurrence to the month's
// last day, so rule 31 fires on Feb 29 in a leap year.
func monthlyScheduledDay(year int, month time.Month, rule int) time.Time {
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if rule > daysInMonth {
		rule = daysInMonth
	}
	return time.Date(year, month, rule, 0, 0, 0, 0, time.UTC)
}

// IsExecutionDay reports whether date is a day the plan places an
// order. Unlike the backfill match, generation resolves a closed
// scheduled day forward to the next open day: the buy that could not
// go out on the holiday goes out when the market reopens.
func (m *Matcher) IsExecutionDay(plan *Plan, date time.Time) (bool, error) {
	// Daily plans need no window: every open day executes
	if plan.Frequency == FrequencyDaily {
		return m.cal.IsOpen(plan.Market, date)
	}

	// Look back far enough to catch a scheduled day whose execution
	// rolled forward onto date
	var from time.Time
	switch plan.Frequency {
	case FrequencyWeekly:
		from = date.AddDate(0, 0, -14)
	default:
		from = date.AddDate(0, 0, -45)
	}
	scheduled, err := m.ScheduledDays(plan, from, date)
	if err != nil {
		return false, err
	}

	target := domain.FormatDate(date)
	for _, dayStr := range scheduled {
		day, err := domain.ParseDate(dayStr)
		if err != nil {
			return false, err
		}
		exec, err := m.cal.NextOpenOnOrAfter(plan.Market, day)
		if err != nil {
			// Calendar gaps on earlier occurrences in the lookback are
			// skipped; only the occurrence on date itself is strict.
			if dayStr == target {
				return false, err
			}
			continue
		}
		if domain.FormatDate(exec) == target {
			return true, nil
		}
	}
	return false, nil
}

// Backfill matches unlinked historical buys of the plan's fund against
// the schedule in [fromDay, toDay]. With apply=false it is a dry run.
// Applying is idempotent: linked trades stop being candidates.
func (m *Matcher) Backfill(planKey, fromDay, toDay string, apply bool) (*BackfillResult, error) {
	plan, err := m.plans.Get(planKey)
	if err != nil {
		return nil, err
	}

	from, err := domain.ParseDate(fromDay)
	if err != nil {
		return nil, err
	}
	to, err := domain.ParseDate(toDay)
	if err != nil {
		return nil, err
	}

	schedDays, err := m.ScheduledDays(plan, from, to)
	if err != nil {
		return nil, err
	}

	candidates, err := m.trades.ListBackfillCandidates(plan.FundCode, fromDay, toDay)
	if err != nil {
		return nil, err
	}

	// Days already satisfied by a previous apply are settled: they are
	// neither missed nor re-matched, which keeps re-runs no-ops.
	linked, err := m.trades.ListPlanTrades(planKey, fromDay, toDay)
	if err != nil {
		return nil, err
	}
	linkedDays := make(map[string]bool, len(linked))
	for _, t := range linked {
		linkedDays[t.TradeDate] = true
	}

	byDay := make(map[string][]trading.Trade)
	for _, t := range candidates {
		byDay[t.TradeDate] = append(byDay[t.TradeDate], t)
	}

	result := &BackfillResult{PlanKey: planKey}
	matched := make(map[int64]bool)

	for _, day := range schedDays {
		if linkedDays[day] {
			continue
		}
		dayTrades := byDay[day]
		if len(dayTrades) == 0 {
			result.Missed = append(result.Missed, day)
			continue
		}

		// Same-day tie-break: only the trade whose amount sits closest
		// to the plan amount is eligible. Exact ties go to the lowest id;
		// candidates arrive ordered by date then id.
		best := dayTrades[0]
		bestDist := best.Amount.Sub(plan.Amount).Abs()
		for _, t := range dayTrades[1:] {
			dist := t.Amount.Sub(plan.Amount).Abs()
			if dist.LessThan(bestDist) {
				best = t
				bestDist = dist
			}
		}

		matched[best.ID] = true
		result.Matches = append(result.Matches, Match{
			TradeID:         best.ID,
			ScheduledDay:    day,
			TradeDate:       best.TradeDate,
			Amount:          best.Amount,
			AmountDeviation: best.Amount.Sub(plan.Amount).Div(plan.Amount),
		})
	}

	for _, t := range candidates {
		if !matched[t.ID] {
			result.Unmatched = append(result.Unmatched, t.ID)
		}
	}

	if apply && len(result.Matches) > 0 {
		ids := make([]int64, 0, len(result.Matches))
		for _, match := range result.Matches {
			ids = append(ids, match.TradeID)
		}
		if err := m.trades.AssignPlanKey(ids, planKey); err != nil {
			return nil, err
		}
		result.Applied = true
	}

	m.log.Info().
		Str("plan", planKey).
		Int("matched", len(result.Matches)).
		Int("missed", len(result.Missed)).
		Int("unmatched", len(result.Unmatched)).
		Bool("applied", result.Applied).
		Msg("Backfill completed")

	return result, nil
}
