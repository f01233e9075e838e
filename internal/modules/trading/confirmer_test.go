package trading

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// fakeNavs serves NAVs from a fund -> day -> value map
type fakeNavs struct {
	points map[string]map[string]decimal.Decimal
}

func (f *fakeNavs) Get(fundCode, day string) (decimal.Decimal, bool, error) {
	nav, ok := f.points[fundCode][day]
	if !ok {
		return decimal.Zero, false, nil
	}
	return nav, true, nil
}

func (f *fakeNavs) set(fundCode, day, nav string) {
	if f.points == nil {
		f.points = map[string]map[string]decimal.Decimal{}
	}
	if f.points[fundCode] == nil {
		f.points[fundCode] = map[string]decimal.Decimal{}
	}
	f.points[fundCode][day] = decimal.RequireFromString(nav)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestConfirmer_ConfirmsDueBuy(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	navs.set("000001", "2024-01-02", "1.2500")
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	// Trade date Jan 2: pricing Jan 2, confirm Jan 4
	trade, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)

	result, err := confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Checked)
	assert.Equal(t, 1, result.Confirmed)
	assert.Equal(t, 0, result.Delayed)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, ConfirmationNormal, got.ConfirmationStatus)
	require.NotNil(t, got.Shares)
	require.NotNil(t, got.Nav)
	// 1000 / 1.25 = 800.0000
	assert.Equal(t, "800", got.Shares.String())
	assert.Equal(t, "1.25", got.Nav.String())
}

func TestConfirmer_SharesRoundHalfUp(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	navs.set("000001", "2024-01-02", "1.2310")
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	trade, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)

	_, err = confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Shares)
	// 1000 / 1.2310 = 812.34768... -> 812.3477
	assert.Equal(t, "812.3477", got.Shares.String())
}

func TestConfirmer_NotDueYet(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	navs.set("000001", "2024-01-02", "1.2500")
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	trade, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)

	// One day before the confirm date: nothing is touched
	result, err := confirmer.Run(day(t, "2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestConfirmer_MissingNavDelays(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	trade, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)

	result, err := confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delayed)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, ConfirmationDelayed, got.ConfirmationStatus)
	assert.Equal(t, DelayReasonNavMissing, got.DelayedReason)
	assert.Equal(t, "2024-01-04", got.DelayedSince)
}

func TestConfirmer_ZeroNavCountsAsMissing(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	navs.set("000001", "2024-01-02", "0")
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	trade, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)

	result, err := confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delayed)
	assert.Equal(t, 0, result.Confirmed)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, ConfirmationDelayed, got.ConfirmationStatus)
}

func TestConfirmer_DelayedSinceKeepsFirstDetection(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	trade, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)

	_, err = confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)
	_, err = confirmer.Run(day(t, "2024-01-08"))
	require.NoError(t, err)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-04", got.DelayedSince)
}

func TestConfirmer_DelayedTradeRecoversWhenNavAppears(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	trade, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)

	_, err = confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)

	// The late NAV arrives, the next pass settles the trade unaided
	navs.set("000001", "2024-01-02", "1.2500")
	result, err := confirmer.Run(day(t, "2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Confirmed)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, ConfirmationNormal, got.ConfirmationStatus)
	assert.Empty(t, got.DelayedReason)
	assert.Empty(t, got.DelayedSince)
}

func TestConfirmer_PassIsIdempotent(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	navs.set("000001", "2024-01-02", "1.2500")
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	_, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)

	first, err := confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Confirmed)

	// Confirmed trades are no longer due
	second, err := confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Checked)
}

func TestConfirmer_SellSettlesProceeds(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	navs.set("000001", "2024-01-02", "1.3000")
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	shares := decimal.RequireFromString("500")
	trade, err := svc.Create(CreateTradeInput{
		FundCode:  "000001",
		TradeType: TradeTypeSell,
		Amount:    decimal.Zero,
		TradeDate: "2024-01-02",
		Shares:    &shares,
	})
	require.NoError(t, err)

	_, err = confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)

	got, err := svc.Get(trade.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	// 500 * 1.30 = 650.00 proceeds
	assert.Equal(t, "650", got.Amount.String())
}

func TestConfirmer_SkippedAndCancelledAreIgnored(t *testing.T) {
	svc, repo := newTestService(t)
	navs := &fakeNavs{}
	navs.set("000001", "2024-01-02", "1.2500")
	confirmer := NewConfirmer(repo, navs, zerolog.Nop())

	trade, err := svc.Create(buyInput("1000", "2024-01-02"))
	require.NoError(t, err)
	_, err = svc.Cancel(trade.ID)
	require.NoError(t, err)

	result, err := confirmer.Run(day(t, "2024-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Checked)
}
