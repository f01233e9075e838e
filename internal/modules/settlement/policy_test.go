package settlement

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuanmu/fundtrack/internal/domain"
)

// mapCalendar is a fixture calendar: every listed day is known, listed
// under "open" means open, anything absent is missing data.
type mapCalendar struct {
	days map[string]map[string]bool // market -> day -> open
}

func (c *mapCalendar) status(market string, date time.Time) (bool, error) {
	open, ok := c.days[market][domain.FormatDate(date)]
	if !ok {
		return false, fmt.Errorf("no data for %s %s", market, domain.FormatDate(date))
	}
	return open, nil
}

func (c *mapCalendar) NextOpenOnOrAfter(market string, date time.Time) (time.Time, error) {
	d := date
	for i := 0; i < 30; i++ {
		open, err := c.status(market, d)
		if err != nil {
			return time.Time{}, err
		}
		if open {
			return d, nil
		}
		d = d.AddDate(0, 0, 1)
	}
	return time.Time{}, fmt.Errorf("ran off fixture")
}

func (c *mapCalendar) Shift(market string, date time.Time, n int) (time.Time, error) {
	if n == 0 {
		return date, nil
	}
	d := date
	for i := 0; i < 60; i++ {
		d = d.AddDate(0, 0, 1)
		open, err := c.status(market, d)
		if err != nil {
			return time.Time{}, err
		}
		if open {
			n--
			if n == 0 {
				return d, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("ran off fixture")
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

// Jan 2024: 1st is Monday. CN_A closed on Wed the 3rd, US_NYSE closed
// Mon the 1st, both closed on weekends.
func fixtureCalendar() *mapCalendar {
	cn := map[string]bool{}
	us := map[string]bool{}
	for day := 1; day <= 14; day++ {
		d := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
		weekday := d.Weekday()
		open := weekday != time.Saturday && weekday != time.Sunday
		key := domain.FormatDate(d)
		cn[key] = open && day != 3
		us[key] = open && day != 1
	}
	return &mapCalendar{days: map[string]map[string]bool{
		domain.MarketCNA:    cn,
		domain.MarketUSNYSE: us,
	}}
}

func TestComputeDates_DomesticTPlusOne(t *testing.T) {
	cal := fixtureCalendar()
	policy, err := PolicyFor(domain.MarketCNA)
	require.NoError(t, err)

	tests := []struct {
		name        string
		tradeDate   string
		wantPricing string
		wantConfirm string
	}{
		{"open day prices same day", "2024-01-02", "2024-01-02", "2024-01-04"},
		{"holiday rolls pricing forward", "2024-01-03", "2024-01-04", "2024-01-05"},
		{"weekend order prices monday", "2024-01-06", "2024-01-08", "2024-01-09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pricing, confirm, err := ComputeDates(cal, policy, date(t, tt.tradeDate))
			require.NoError(t, err)
			assert.Equal(t, tt.wantPricing, domain.FormatDate(pricing))
			assert.Equal(t, tt.wantConfirm, domain.FormatDate(confirm))
		})
	}
}

func TestComputeDates_GuardedOverseas(t *testing.T) {
	cal := fixtureCalendar()
	policy, err := PolicyFor(domain.MarketUSNYSE)
	require.NoError(t, err)

	// Jan 3 is a CN_A holiday: the guard pushes the base to Jan 4,
	// US_NYSE is open that day, confirm lands two US sessions later.
	pricing, confirm, err := ComputeDates(cal, policy, date(t, "2024-01-03"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-04", domain.FormatDate(pricing))
	assert.Equal(t, "2024-01-08", domain.FormatDate(confirm))

	// Jan 1: CN_A open but US_NYSE closed, pricing slides to Jan 2.
	pricing, confirm, err = ComputeDates(cal, policy, date(t, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02", domain.FormatDate(pricing))
	assert.Equal(t, "2024-01-04", domain.FormatDate(confirm))
}

func TestComputeDates_GuardSameAsPricingMatchesUnguarded(t *testing.T) {
	cal := fixtureCalendar()

	unguarded := Policy{
		Market:        domain.MarketCNA,
		PricingMarket: domain.MarketCNA,
		CountMarket:   domain.MarketCNA,
		SettlementLag: 1,
	}
	guarded := unguarded
	guarded.GuardMarket = domain.MarketCNA

	for day := 1; day <= 4; day++ {
		tradeDate := date(t, fmt.Sprintf("2024-01-%02d", day))

		p1, c1, err := ComputeDates(cal, unguarded, tradeDate)
		require.NoError(t, err)
		p2, c2, err := ComputeDates(cal, guarded, tradeDate)
		require.NoError(t, err)

		assert.Equal(t, p1, p2, "pricing date diverged on day %d", day)
		assert.Equal(t, c1, c2, "confirm date diverged on day %d", day)
	}
}

func TestComputeDates_CalendarGapAborts(t *testing.T) {
	cal := &mapCalendar{days: map[string]map[string]bool{}}
	policy, err := PolicyFor(domain.MarketCNA)
	require.NoError(t, err)

	_, _, err = ComputeDates(cal, policy, date(t, "2024-01-02"))
	assert.Error(t, err)
}

func TestComputeDates_ZeroLagConfirmsOnPricingDate(t *testing.T) {
	cal := fixtureCalendar()
	policy := Policy{
		Market:        domain.MarketCNA,
		PricingMarket: domain.MarketCNA,
		CountMarket:   domain.MarketCNA,
		SettlementLag: 0,
	}

	pricing, confirm, err := ComputeDates(cal, policy, date(t, "2024-01-02"))
	require.NoError(t, err)
	assert.Equal(t, pricing, confirm)
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"valid", Policy{Market: "CN_A", PricingMarket: "CN_A", CountMarket: "CN_A", SettlementLag: 1}, false},
		{"missing pricing market", Policy{Market: "CN_A", CountMarket: "CN_A"}, true},
		{"missing count market", Policy{Market: "CN_A", PricingMarket: "CN_A"}, true},
		{"negative lag", Policy{Market: "CN_A", PricingMarket: "CN_A", CountMarket: "CN_A", SettlementLag: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyFor_UnknownMarket(t *testing.T) {
	_, err := PolicyFor("XETRA")
	assert.Error(t, err)
}
