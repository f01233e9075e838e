package calendar

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/yuanmu/fundtrack/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	require.NoError(t, InitSchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo := NewRepository(setupTestDB(t), zerolog.Nop())
	return NewService(repo, zerolog.Nop())
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := domain.ParseDate(s)
	require.NoError(t, err)
	return d
}

// seedWeek loads 2024-01-01 (Mon) through 2024-01-07 (Sun) for CN_A:
// Mon-Fri open except Wed (holiday), weekend closed.
func seedWeek(t *testing.T, svc *Service) {
	t.Helper()
	err := svc.UpsertDays("CN_A", []DayStatus{
		{Day: "2024-01-01", IsOpen: true},
		{Day: "2024-01-02", IsOpen: true},
		{Day: "2024-01-03", IsOpen: false},
		{Day: "2024-01-04", IsOpen: true},
		{Day: "2024-01-05", IsOpen: true},
		{Day: "2024-01-06", IsOpen: false},
		{Day: "2024-01-07", IsOpen: false},
	})
	require.NoError(t, err)
}

func TestIsOpen(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	open, err := svc.IsOpen("CN_A", mustDate(t, "2024-01-02"))
	require.NoError(t, err)
	assert.True(t, open)

	open, err = svc.IsOpen("CN_A", mustDate(t, "2024-01-03"))
	require.NoError(t, err)
	assert.False(t, open)
}

func TestIsOpen_MissingDayIsAnError(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	// 2024-01-08 is a Monday, but a weekday is never assumed open
	_, err := svc.IsOpen("CN_A", mustDate(t, "2024-01-08"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalendarDataMissing)

	// Unknown market has no rows at all
	_, err = svc.IsOpen("US_NYSE", mustDate(t, "2024-01-02"))
	assert.ErrorIs(t, err, ErrCalendarDataMissing)
}

func TestNextOpenOnOrAfter(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	tests := []struct {
		name string
		from string
		want string
	}{
		{"already open", "2024-01-02", "2024-01-02"},
		{"holiday rolls forward", "2024-01-03", "2024-01-04"},
		{"open friday stays put", "2024-01-05", "2024-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.NextOpenOnOrAfter("CN_A", mustDate(t, tt.from))
			require.NoError(t, err)
			assert.Equal(t, tt.want, domain.FormatDate(got))
		})
	}
}

func TestNextOpenOnOrAfter_RunsOffCoverage(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	// Saturday: the walk hits Sunday (closed) then Monday (no row)
	_, err := svc.NextOpenOnOrAfter("CN_A", mustDate(t, "2024-01-06"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalendarDataMissing)
}

func TestShift(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	tests := []struct {
		name string
		from string
		n    int
		want string
	}{
		{"one open day", "2024-01-01", 1, "2024-01-02"},
		{"skips holiday", "2024-01-02", 1, "2024-01-04"},
		{"two open days over holiday", "2024-01-01", 2, "2024-01-04"},
		{"start day itself not counted", "2024-01-04", 1, "2024-01-05"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Shift("CN_A", mustDate(t, tt.from), tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, domain.FormatDate(got))
		})
	}
}

func TestShift_ZeroRequiresOpenDay(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	d := mustDate(t, "2024-01-02")
	got, err := svc.Shift("CN_A", d, 0)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	// The Wednesday holiday cannot be its own zero-shift result
	_, err = svc.Shift("CN_A", mustDate(t, "2024-01-03"), 0)
	assert.Error(t, err)

	// A day with no calendar row at all fails strictly
	_, err = svc.Shift("CN_A", mustDate(t, "2024-02-01"), 0)
	assert.ErrorIs(t, err, ErrCalendarDataMissing)
}

func TestShift_NegativeRejected(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Shift("CN_A", mustDate(t, "2024-01-02"), -1)
	assert.Error(t, err)
}

func TestShift_RunsOffCoverage(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	_, err := svc.Shift("CN_A", mustDate(t, "2024-01-05"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCalendarDataMissing)
}

func TestUpsertDays_OverwritesExisting(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	// Patch the Wednesday holiday into an open day
	require.NoError(t, svc.UpsertDays("CN_A", []DayStatus{
		{Day: "2024-01-03", IsOpen: true},
	}))

	open, err := svc.IsOpen("CN_A", mustDate(t, "2024-01-03"))
	require.NoError(t, err)
	assert.True(t, open)
}

func TestUpsertDays_RejectsBadDate(t *testing.T) {
	svc := newTestService(t)
	err := svc.UpsertDays("CN_A", []DayStatus{{Day: "01/03/2024", IsOpen: true}})
	assert.Error(t, err)
}

func TestCoverage(t *testing.T) {
	svc := newTestService(t)
	seedWeek(t, svc)

	cov, err := svc.Coverage("CN_A")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", cov.FirstDay)
	assert.Equal(t, "2024-01-07", cov.LastDay)
	assert.Equal(t, 7, cov.Days)

	empty, err := svc.Coverage("US_NYSE")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Days)
	assert.Empty(t, empty.FirstDay)
}
