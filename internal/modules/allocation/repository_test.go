package allocation

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
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

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(setupTestDB(t), zerolog.Nop())
}

func TestUpsertAndGet(t *testing.T) {
	repo := newTestRepo(t)

	target := &Target{
		AssetClass:   "equity",
		TargetWeight: decimal.RequireFromString("0.6"),
		MaxDeviation: decimal.RequireFromString("0.08"),
	}
	require.NoError(t, repo.Upsert(target))

	got, err := repo.Get("equity")
	require.NoError(t, err)
	assert.Equal(t, "0.6", got.TargetWeight.String())
	assert.Equal(t, "0.08", got.MaxDeviation.String())
	assert.NotEmpty(t, got.UpdatedAt)
}

func TestUpsertOverwrites(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Upsert(&Target{
		AssetClass:   "bond",
		TargetWeight: decimal.RequireFromString("0.3"),
	}))
	require.NoError(t, repo.Upsert(&Target{
		AssetClass:   "bond",
		TargetWeight: decimal.RequireFromString("0.25"),
	}))

	got, err := repo.Get("bond")
	require.NoError(t, err)
	assert.Equal(t, "0.25", got.TargetWeight.String())

	list, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpsertRejectsBadWeights(t *testing.T) {
	repo := newTestRepo(t)

	tests := []struct {
		name   string
		target Target
	}{
		{"missing asset class", Target{TargetWeight: decimal.RequireFromString("0.5")}},
		{"zero weight", Target{AssetClass: "equity", TargetWeight: decimal.Zero}},
		{"negative weight", Target{AssetClass: "equity", TargetWeight: decimal.RequireFromString("-0.1")}},
		{"weight above one", Target{AssetClass: "equity", TargetWeight: decimal.RequireFromString("1.01")}},
		{"negative deviation", Target{
			AssetClass:   "equity",
			TargetWeight: decimal.RequireFromString("0.5"),
			MaxDeviation: decimal.RequireFromString("-0.05"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, repo.Upsert(&tt.target))
		})
	}
}

func TestBandFallsBackToDefault(t *testing.T) {
	explicit := Target{MaxDeviation: decimal.RequireFromString("0.1")}
	assert.Equal(t, "0.1", explicit.Band().String())

	unset := Target{}
	assert.Equal(t, "0.05", unset.Band().String())
}

func TestGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get("equity")
	assert.ErrorIs(t, err, ErrTargetNotFound)

	assert.ErrorIs(t, repo.Delete("equity"), ErrTargetNotFound)
}
