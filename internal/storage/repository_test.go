package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
	"finboard/internal/forecast"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "finboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleSnapshot(version int64) core.Snapshot {
	return core.Snapshot{
		Version: version,
		Incomes: []core.Income{{
			ID: "i1", Source: "Salary",
			ExpectedAmount: core.Units(3000), CreditedAmount: core.Cents(299950),
			Date: core.NewDate(2025, 3, 1), Status: core.Credited,
		}},
		CreditCards: []core.CreditCard{{
			ID: "c1", Name: "Visa", CreditLimit: core.Units(1000),
			Transactions: []core.CreditCardTransaction{{
				ID: "t1", Amount: core.Cents(2950), Description: "Books",
				Date: core.NewDate(2025, 3, 4), MasterExpenseID: "m1",
			}},
		}},
		Categories:      []string{"Food"},
		NetWorthHistory: core.NetWorthHistory{{Month: "2025-03", Value: core.Units(370000)}},
	}
}

func TestSQLiteRepository_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.LoadSnapshot(ctx, DefaultProfile)
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	want := sampleSnapshot(1)
	require.NoError(t, repo.SaveSnapshot(ctx, DefaultProfile, want))

	got, err := repo.LoadSnapshot(ctx, DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, want.Version, got.Version)
	assert.Equal(t, want.Incomes[0].CreditedAmount, got.Incomes[0].CreditedAmount)
	assert.True(t, want.Incomes[0].Date.Equal(got.Incomes[0].Date.Time))
	assert.Equal(t, "m1", got.CreditCards[0].Transactions[0].MasterExpenseID)
	assert.Equal(t, want.NetWorthHistory, got.NetWorthHistory)
}

func TestSQLiteRepository_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.SaveSnapshot(ctx, "home", sampleSnapshot(1)))
	require.NoError(t, repo.SaveSnapshot(ctx, "home", sampleSnapshot(2)))
	require.NoError(t, repo.SaveSnapshot(ctx, "work", sampleSnapshot(9)))

	got, err := repo.LoadSnapshot(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)

	profiles, err := repo.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "work"}, profiles)

	versions, err := repo.HistoryVersions(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, versions)
}

func TestSQLiteRepository_Forecasts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 1500 * time.Millisecond)
	}

	window := []core.MonthTriple{{Month: "2025-03", Income: core.Units(10), OverspendingCategories: []string{"Dining"}}}
	for i := int64(1); i <= 3; i++ {
		_, err := repo.SaveForecast(ctx, "home", forecast.Result{
			ForecastedSavings: core.Units(i * 100),
			Explanation:       "steady",
			Source:            forecast.SourceFallback,
			Window:            window,
		})
		require.NoError(t, err)
	}

	recs, err := repo.ListForecasts(ctx, "home", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, core.Units(300), recs[0].Forecast.ForecastedSavings)
	assert.Equal(t, core.Units(200), recs[1].Forecast.ForecastedSavings)
	assert.Equal(t, forecast.SourceFallback, recs[0].Forecast.Source)
	assert.Equal(t, window, recs[0].Forecast.Window)
	assert.True(t, recs[0].CreatedAt.After(recs[1].CreatedAt))

	none, err := repo.ListForecasts(ctx, "other", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path))

	v, dirty, err := SchemaVersion(path)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), v)
}
