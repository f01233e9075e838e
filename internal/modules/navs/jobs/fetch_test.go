package jobs

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuanmu/fundtrack/internal/clients/eastmoney"
)

type fakeSource struct {
	history map[string][]eastmoney.NavPoint
	failing map[string]bool
}

func (f *fakeSource) FetchNavHistory(fundCode string, pageSize int) ([]eastmoney.NavPoint, error) {
	if f.failing[fundCode] {
		return nil, fmt.Errorf("upstream unavailable")
	}
	return f.history[fundCode], nil
}

type fakeStore struct {
	stored     []string // "fund|day"
	failOnFund string
}

func (f *fakeStore) Upsert(fundCode, day string, nav decimal.Decimal) error {
	if fundCode == f.failOnFund {
		return fmt.Errorf("store unavailable")
	}
	f.stored = append(f.stored, fundCode+"|"+day)
	return nil
}

type fakeCodes struct {
	codes []string
}

func (f *fakeCodes) ListPendingFundCodes() ([]string, error) { return f.codes, nil }
func (f *fakeCodes) ListActiveFundCodes() ([]string, error)  { return f.codes, nil }

func points(days ...string) []eastmoney.NavPoint {
	var pts []eastmoney.NavPoint
	for _, d := range days {
		pts = append(pts, eastmoney.NavPoint{Day: d, Nav: decimal.RequireFromString("1.5")})
	}
	return pts
}

func TestFetchJob_StoresHistoryForFundsInScope(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{history: map[string][]eastmoney.NavPoint{
		"000001": points("2024-01-09", "2024-01-10"),
		"110011": points("2024-01-10"),
	}}
	job := NewFetchJob(store, source,
		&fakeCodes{codes: []string{"000001"}},
		&fakeCodes{codes: []string{"110011", "000001"}},
		zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, []string{
		"000001|2024-01-09", "000001|2024-01-10", "110011|2024-01-10",
	}, store.stored)
}

func TestFetchJob_FundCountsFetchedOnlyWhenFullyStored(t *testing.T) {
	store := &fakeStore{failOnFund: "110011"}
	source := &fakeSource{history: map[string][]eastmoney.NavPoint{
		"000001": points("2024-01-10"),
		"110011": points("2024-01-10"),
	}}
	job := NewFetchJob(store, source, &fakeCodes{}, &fakeCodes{}, zerolog.Nop())

	fetched, failed := job.refresh([]string{"000001", "110011"})
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 1, failed)
}

func TestFetchJob_FetchFailureDoesNotAbortTheRun(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{
		history: map[string][]eastmoney.NavPoint{"110011": points("2024-01-10")},
		failing: map[string]bool{"000001": true},
	}
	job := NewFetchJob(store, source, &fakeCodes{}, &fakeCodes{}, zerolog.Nop())

	fetched, failed := job.refresh([]string{"000001", "110011"})
	assert.Equal(t, 1, fetched)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []string{"110011|2024-01-10"}, store.stored)
}
