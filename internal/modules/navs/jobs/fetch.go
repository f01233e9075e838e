package jobs

import (
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/yuanmu/fundtrack/internal/clients/eastmoney"
)

// NavStore persists fetched NAV points
type NavStore interface {
	Upsert(fundCode, day string, nav decimal.Decimal) error
}

// HistorySource fetches published NAV points for a fund
type HistorySource interface {
	FetchNavHistory(fundCode string, pageSize int) ([]eastmoney.NavPoint, error)
}

// PendingTradeFunds lists funds that have trades awaiting confirmation
type PendingTradeFunds interface {
	ListPendingFundCodes() ([]string, error)
}

// ActivePlanFunds lists funds with an active investment plan
type ActivePlanFunds interface {
	ListActiveFundCodes() ([]string, error)
}

// FetchJob refreshes the NAV store for every fund that needs pricing:
// funds with pending trades and funds with active plans. Other funds
// keep whatever history they already have.
type FetchJob struct {
	repo     NavStore
	source   HistorySource
	pending  PendingTradeFunds
	plans    ActivePlanFunds
	pageSize int
	log      zerolog.Logger
}

// NewFetchJob creates a new NAV fetch job
func NewFetchJob(repo NavStore, source HistorySource, pending PendingTradeFunds, plans ActivePlanFunds, log zerolog.Logger) *FetchJob {
	return &FetchJob{
		repo:     repo,
		source:   source,
		pending:  pending,
		plans:    plans,
		pageSize: 30,
		log:      log.With().Str("job", "nav_fetch").Logger(),
	}
}

// Name implements scheduler.Job
func (j *FetchJob) Name() string {
	return "nav_fetch"
}

// Run fetches and upserts NAV history for every fund in scope.
// Per-fund failures never abort the run.
func (j *FetchJob) Run() error {
	codes, err := j.fundsInScope()
	if err != nil {
		return err
	}

	fetched, failed := j.refresh(codes)

	j.log.Info().
		Int("funds", len(codes)).
		Int("fetched", fetched).
		Int("failed", failed).
		Msg("NAV fetch completed")
	return nil
}

// refresh fetches and stores each fund's history. A fund counts as
// fetched only when every point landed in the store.
func (j *FetchJob) refresh(codes []string) (fetched, failed int) {
	for _, code := range codes {
		points, err := j.source.FetchNavHistory(code, j.pageSize)
		if err != nil {
			j.log.Error().Err(err).Str("fund", code).Msg("Failed to fetch NAV history")
			failed++
			continue
		}
		stored := true
		for _, p := range points {
			if err := j.repo.Upsert(code, p.Day, p.Nav); err != nil {
				j.log.Error().Err(err).Str("fund", code).Str("day", p.Day).Msg("Failed to store NAV")
				failed++
				stored = false
				break
			}
		}
		if stored {
			fetched++
		}
	}
	return fetched, failed
}

func (j *FetchJob) fundsInScope() ([]string, error) {
	pending, err := j.pending.ListPendingFundCodes()
	if err != nil {
		return nil, err
	}
	planned, err := j.plans.ListActiveFundCodes()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var codes []string
	for _, code := range append(pending, planned...) {
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}
