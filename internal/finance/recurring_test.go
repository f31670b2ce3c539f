package finance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func TestDueRecurring(t *testing.T) {
	s := core.Snapshot{
		Incomes: []core.Income{
			{ID: "i1", Source: "Salary", ExpectedAmount: core.Units(3000), CreditedAmount: core.Units(3000),
				Date: core.NewDate(2025, 1, 31), Status: core.Credited, IsRecurring: true},
			{ID: "i2", Source: "Bonus", ExpectedAmount: core.Units(500), CreditedAmount: core.Units(500),
				Date: core.NewDate(2025, 1, 15), Status: core.Credited},
		},
		Expenses: []core.Expense{
			{ID: "e1", Category: "Housing", Description: "Rent", Amount: core.Units(800),
				DueDate: core.NewDate(2025, 1, 5), Status: core.Paid, IsRecurring: true, PaidViaCard: "visa"},
			{ID: "e2", Category: "Utilities", Description: "Internet", Amount: core.Units(30),
				DueDate: core.NewDate(2025, 1, 10), Status: core.Paid, IsRecurring: true},
			{ID: "e3", Category: "utilities", Description: "internet ", Amount: core.Units(30),
				DueDate: core.NewDate(2025, 2, 10), Status: core.NotPaid, IsRecurring: true},
		},
	}

	incomes, expenses := DueRecurring(s, NewPeriod(2025, 2, time.UTC))

	require.Len(t, incomes, 1)
	assert.Equal(t, "Salary", incomes[0].Source)
	assert.Equal(t, core.NotCredited, incomes[0].Status)
	assert.True(t, incomes[0].CreditedAmount.IsZero())
	assert.Equal(t, core.NewDate(2025, 2, 28), incomes[0].Date, "day clamps to end of February")
	assert.Empty(t, incomes[0].ID)

	require.Len(t, expenses, 1, "internet already exists in February")
	assert.Equal(t, "Rent", expenses[0].Description)
	assert.Equal(t, core.NotPaid, expenses[0].Status)
	assert.Empty(t, expenses[0].PaidViaCard)
	assert.Equal(t, core.NewDate(2025, 2, 5), expenses[0].DueDate)
	for _, e := range expenses {
		require.NoError(t, e.Validate())
	}
}

func TestDueRecurring_YearBoundaryAndIdempotence(t *testing.T) {
	s := core.Snapshot{
		Expenses: []core.Expense{
			{ID: "e1", Category: "Housing", Description: "Rent", Amount: core.Units(800),
				DueDate: core.NewDate(2024, 12, 5), Status: core.Paid, IsRecurring: true},
		},
	}
	jan := NewPeriod(2025, 1, time.UTC)

	_, expenses := DueRecurring(s, jan)
	require.Len(t, expenses, 1)
	assert.Equal(t, core.NewDate(2025, 1, 5), expenses[0].DueDate)

	s.Expenses = append(s.Expenses, expenses[0])
	_, again := DueRecurring(s, jan)
	assert.Empty(t, again)
}
