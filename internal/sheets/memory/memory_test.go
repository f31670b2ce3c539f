package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func overview(month core.MonthKey, income int64) core.MonthOverview {
	return core.MonthOverview{
		Rollup: core.MonthlyRollup{
			Month:       month,
			TotalIncome: core.Cents(income),
			Savings:     core.Cents(income),
		},
	}
}

func TestExporterUpsertsByMonth(t *testing.T) {
	ctx := context.Background()
	e := New()

	require.NoError(t, e.ExportOverview(ctx, "default", overview("2025-02", 100)))
	require.NoError(t, e.ExportOverview(ctx, "default", overview("2025-01", 50)))
	require.NoError(t, e.ExportOverview(ctx, "default", overview("2025-02", 300)))
	require.NoError(t, e.ExportOverview(ctx, "other", overview("2025-02", 7)))

	rows, err := e.ExportedRows(ctx, "default", 2025)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.MonthKey("2025-01"), rows[0].Month)
	assert.Equal(t, core.MonthKey("2025-02"), rows[1].Month)
	assert.Equal(t, int64(300), rows[1].Income.Cents, "second export overwrites the month")
	assert.Equal(t, 4, e.Exports())
}

func TestExporterRejectsInvalidMonth(t *testing.T) {
	e := New()
	assert.Error(t, e.ExportOverview(context.Background(), "default", overview("", 1)))
}
