package dca

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuanmu/fundtrack/internal/domain"
	"github.com/yuanmu/fundtrack/internal/modules/trading"
)

// fakeCreator records every trade the runner asks for
type fakeCreator struct {
	created []trading.CreateTradeInput
	nextID  int64
}

func (f *fakeCreator) Create(input trading.CreateTradeInput) (*trading.Trade, error) {
	f.created = append(f.created, input)
	f.nextID++
	return &trading.Trade{
		ID:         f.nextID,
		FundCode:   input.FundCode,
		TradeType:  input.TradeType,
		Amount:     input.Amount,
		TradeDate:  input.TradeDate,
		Status:     trading.StatusPending,
		DcaPlanKey: input.DcaPlanKey,
	}, nil
}

// fakeChecker reports existing trades by "fund|day"
type fakeChecker struct {
	existing map[string]bool
}

func (f *fakeChecker) HasTradeOn(fundCode, day string) (bool, error) {
	return f.existing[fundCode+"|"+day], nil
}

func newTestRunner(t *testing.T) (*Runner, *Repository, *fakeCreator, *fakeChecker) {
	t.Helper()
	plans := NewRepository(setupTestDB(t), zerolog.Nop())
	matcher := NewMatcher(plans, &fakeTradeStore{}, &fakeCal{}, zerolog.Nop())
	creator := &fakeCreator{}
	checker := &fakeChecker{existing: map[string]bool{}}
	runner := NewRunner(plans, matcher, creator, checker, zerolog.Nop())
	return runner, plans, creator, checker
}

func runDay(t *testing.T, runner *Runner, day string) *RunResult {
	t.Helper()
	d, err := domain.ParseDate(day)
	require.NoError(t, err)
	result, err := runner.RunDaily(d)
	require.NoError(t, err)
	return result
}

func TestRunDaily_WeeklyPlanDueOnScheduledDay(t *testing.T) {
	runner, plans, creator, _ := newTestRunner(t)
	weeklyPlan(t, plans)

	result := runDay(t, runner, "2024-01-15") // Monday, open

	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Created)
	require.Len(t, creator.created, 1)
	input := creator.created[0]
	assert.Equal(t, "000001", input.FundCode)
	assert.Equal(t, trading.TradeTypeBuy, input.TradeType)
	assert.Equal(t, "1000", input.Amount.String())
	assert.Equal(t, "2024-01-15", input.TradeDate)
	assert.Equal(t, "000001", input.DcaPlanKey)
}

func TestRunDaily_ClosedScheduledDayRollsForward(t *testing.T) {
	runner, plans, creator, _ := newTestRunner(t)
	weeklyPlan(t, plans)

	// The scheduled Monday 2024-01-08 is a holiday; the occurrence
	// executes on the next open day instead.
	holiday := runDay(t, runner, "2024-01-08")
	assert.Equal(t, 0, holiday.Due)
	assert.Empty(t, creator.created)

	rolled := runDay(t, runner, "2024-01-09")
	assert.Equal(t, 1, rolled.Due)
	assert.Equal(t, 1, rolled.Created)
	require.Len(t, creator.created, 1)
	assert.Equal(t, "2024-01-09", creator.created[0].TradeDate)
}

func TestRunDaily_MonthlyShortMonthClampsToLastDay(t *testing.T) {
	runner, plans, creator, _ := newTestRunner(t)
	plan := &Plan{
		PlanKey:   "monthly",
		FundCode:  "110011",
		Amount:    decimal.RequireFromString("2000"),
		Frequency: FrequencyMonthly,
		Rule:      31,
		Market:    domain.MarketCNA,
		Status:    PlanStatusActive,
	}
	require.NoError(t, plans.Upsert(plan))

	// February 2024 has no 31st, so the occurrence clamps to the 29th.
	result := runDay(t, runner, "2024-02-29")

	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Created)
	require.Len(t, creator.created, 1)
	assert.Equal(t, "2024-02-29", creator.created[0].TradeDate)
}

func TestRunDaily_ExistingTradeBlocksRegeneration(t *testing.T) {
	runner, plans, creator, checker := newTestRunner(t)
	weeklyPlan(t, plans)
	checker.existing["000001|2024-01-15"] = true

	result := runDay(t, runner, "2024-01-15")

	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Existed)
	assert.Equal(t, 0, result.Created)
	assert.Empty(t, creator.created)
}

func TestRunDaily_PausedPlanIgnored(t *testing.T) {
	runner, plans, creator, _ := newTestRunner(t)
	plan := weeklyPlan(t, plans)
	require.NoError(t, plans.SetStatus(plan.PlanKey, PlanStatusPaused))

	result := runDay(t, runner, "2024-01-15")

	assert.Equal(t, 0, result.Due)
	assert.Empty(t, creator.created)
}

func TestRunDaily_DailyPlanNotDueOnClosedDay(t *testing.T) {
	runner, plans, creator, _ := newTestRunner(t)
	plan := &Plan{
		PlanKey:   "daily",
		FundCode:  "000001",
		Amount:    decimal.RequireFromString("100"),
		Frequency: FrequencyDaily,
		Market:    domain.MarketCNA,
		Status:    PlanStatusActive,
	}
	require.NoError(t, plans.Upsert(plan))

	saturday := runDay(t, runner, "2024-01-06")
	assert.Equal(t, 0, saturday.Due)

	weekday := runDay(t, runner, "2024-01-05")
	assert.Equal(t, 1, weekday.Due)
	require.Len(t, creator.created, 1)
}
