package finance

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func date(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func marchSnapshot() core.Snapshot {
	return core.Snapshot{
		Incomes: []core.Income{
			{ID: "i1", Source: "Salary", ExpectedAmount: core.Units(75000), CreditedAmount: core.Units(75000), Date: date(2025, 3, 1), Status: core.Credited},
		},
		Expenses: []core.Expense{
			{ID: "e1", Category: "Housing", Description: "Rent", Amount: core.Units(20000), DueDate: date(2025, 3, 5), Status: core.Paid},
			{ID: "e2", Category: "Utilities", Description: "Power", Amount: core.Units(800), DueDate: date(2025, 3, 20), Status: core.NotPaid},
		},
		CreditCards: []core.CreditCard{
			{ID: "c1", Name: "Visa", CreditLimit: core.Units(10000), Transactions: []core.CreditCardTransaction{
				{ID: "t1", Amount: core.Units(2500), Description: "Groceries", Date: date(2025, 3, 10)},
				{ID: "t2", Amount: core.Units(450), Description: "Fuel", Date: date(2025, 3, 11)},
			}},
		},
	}
}

func TestComputeRollup_Scenario(t *testing.T) {
	r := ComputeRollup(marchSnapshot(), NewPeriod(2025, 3, nil))

	assert.Equal(t, core.MonthKey("2025-03"), r.Month)
	assert.Equal(t, core.Units(75000), r.TotalIncome)
	assert.Equal(t, core.Units(20000), r.PaidExpenses)
	assert.Equal(t, core.Units(800), r.UnpaidExpenses)
	assert.Equal(t, core.Units(2950), r.CreditCardSpending)
	assert.Equal(t, core.Units(23750), r.TotalExpenses)
	assert.Equal(t, core.Units(51250), r.Savings)
}

func TestComputeRollup_EmptyMonthIsZero(t *testing.T) {
	r := ComputeRollup(marchSnapshot(), NewPeriod(2025, 4, nil))

	assert.Equal(t, core.MonthlyRollup{Month: "2025-04"}, r)
}

func TestComputeRollup_StatusRules(t *testing.T) {
	s := core.Snapshot{
		Incomes: []core.Income{
			{Source: "Bonus", ExpectedAmount: core.Units(500), CreditedAmount: core.Units(0), Date: date(2025, 3, 2), Status: core.NotCredited},
			{Source: "Side", ExpectedAmount: core.Units(300), CreditedAmount: core.Units(250), Date: date(2025, 3, 2), Status: core.Credited},
		},
		Expenses: []core.Expense{
			{Category: "Shopping", Description: "Shoes", Amount: core.Units(90), DueDate: date(2025, 3, 3), Status: core.PaidByCard, PaidViaCard: "c1"},
			{Category: "Trip", Description: "Hotel", Amount: core.Units(400), DueDate: date(2025, 3, 3), Status: core.Paid, MasterExpenseID: "m1"},
		},
		MasterExpenses: []core.MasterExpense{
			{ID: "m1", Name: "Trip", Transactions: []core.MasterExpenseTransaction{
				{Amount: core.Units(400), Description: "Hotel", Date: date(2025, 3, 3), Status: core.Paid},
			}},
		},
	}

	r := ComputeRollup(s, NewPeriod(2025, 3, nil))

	assert.Equal(t, core.Units(250), r.TotalIncome)
	assert.Equal(t, core.Units(800), r.ExpectedIncome)
	assert.Equal(t, core.Units(400), r.PaidExpenses, "linked expense still counted")
	assert.True(t, r.UnpaidExpenses.IsZero(), "paid-by-card is neither paid nor unpaid")
	assert.Equal(t, core.Units(400), r.MasterExpenseSpending)
	assert.Equal(t, core.Units(400), r.TotalExpenses, "master spending stays out of total")
}

func TestComputeRollup_TotalIdentity(t *testing.T) {
	s := marchSnapshot()
	for m := 1; m <= 12; m++ {
		r := ComputeRollup(s, NewPeriod(2025, m, nil))
		assert.Equal(t, core.Sum(r.PaidExpenses, r.UnpaidExpenses, r.CreditCardSpending), r.TotalExpenses, "month %d", m)
	}
}

func TestComputeRollup_DoesNotMutateInput(t *testing.T) {
	s := marchSnapshot()
	before := s.Clone()

	_ = ComputeRollup(s, NewPeriod(2025, 3, nil))
	_ = Overview(s, NewPeriod(2025, 3, nil))

	assert.Equal(t, before, s)
}

func TestPeriod_Location(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 2025-04-01 02:00 UTC is still March 31st five hours west.
	ts := time.Date(2025, 4, 1, 2, 0, 0, 0, time.UTC)

	assert.True(t, NewPeriod(2025, 3, loc).Contains(ts))
	assert.False(t, NewPeriod(2025, 3, nil).Contains(ts))
	assert.False(t, NewPeriod(2025, 3, nil).Contains(time.Time{}))
}

func TestComputeRollup_CalendarDatesWestOfUTC(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	var s core.Snapshot
	require.NoError(t, json.Unmarshal([]byte(`{
		"expenses": [
			{"id": "e1", "category": "Housing", "description": "Rent", "amount": 1000, "dueDate": "2024-03-01", "status": "Paid"},
			{"id": "e2", "category": "Dining", "description": "Late dinner", "amount": 40, "dueDate": "2024-03-01T02:00:00Z", "status": "Paid"}
		],
		"creditCards": [
			{"id": "c1", "name": "Visa", "creditLimit": 5000, "transactions": [
				{"id": "t1", "amount": 25, "description": "Coffee", "date": "2024-03-01T07:30:00"}
			]}
		]
	}`), &s))

	march := ComputeRollup(s, NewPeriod(2024, 3, ny))
	assert.Equal(t, core.Units(1000), march.PaidExpenses)
	assert.Equal(t, core.Units(25), march.CreditCardSpending)

	feb := ComputeRollup(s, NewPeriod(2024, 2, ny))
	assert.Equal(t, core.Units(40), feb.PaidExpenses, "an instant is still read in the period's zone")
	assert.True(t, feb.CreditCardSpending.IsZero())
}

func TestPeriod_ContainsDate(t *testing.T) {
	east := time.FixedZone("UTC+9", 9*3600)
	west := time.FixedZone("UTC-8", -8*3600)
	d := core.NewDate(2025, 3, 31)

	assert.True(t, NewPeriod(2025, 3, east).ContainsDate(d))
	assert.True(t, NewPeriod(2025, 3, west).ContainsDate(d))
	assert.False(t, NewPeriod(2025, 4, east).ContainsDate(d))
	assert.False(t, NewPeriod(2025, 3, nil).ContainsDate(core.Date{}))
}

func TestPeriod_Add(t *testing.T) {
	p := NewPeriod(2025, 1, nil)

	assert.Equal(t, core.MonthKey("2024-12"), p.Prev().Key())
	assert.Equal(t, core.MonthKey("2024-11"), p.Add(-2).Key())
	assert.Equal(t, core.MonthKey("2026-01"), p.Add(12).Key())
	require.Error(t, NewPeriod(2025, 13, nil).Validate())
}

func TestCategoryBreakdown(t *testing.T) {
	s := marchSnapshot()
	s.Expenses = append(s.Expenses, core.Expense{Category: "Utilities", Description: "Water", Amount: core.Units(200), DueDate: date(2025, 3, 21), Status: core.Paid})

	got := CategoryBreakdown(s, NewPeriod(2025, 3, nil))

	require.Len(t, got, 2)
	assert.Equal(t, core.CategoryAmount{Name: "Housing", Amount: core.Units(20000)}, got[0])
	assert.Equal(t, core.CategoryAmount{Name: "Utilities", Amount: core.Units(1000)}, got[1])
}

func TestCardSummaries(t *testing.T) {
	s := marchSnapshot()
	s.CreditCards[0].Transactions = append(s.CreditCards[0].Transactions,
		core.CreditCardTransaction{Amount: core.Units(1050), Description: "Old", Date: date(2025, 2, 1)})

	got := CardSummaries(s, NewPeriod(2025, 3, nil))

	require.Len(t, got, 1)
	assert.Equal(t, core.Units(2950), got[0].PeriodSpending)
	assert.Equal(t, core.Units(4000), got[0].Balance)
	assert.Equal(t, core.Units(6000), got[0].AvailableCredit)
	assert.Equal(t, 40, got[0].UtilizationPercent)
}

func TestMasterExpenseSummaries(t *testing.T) {
	s := core.Snapshot{
		MasterExpenses: []core.MasterExpense{{ID: "m1", Name: "Trip", Transactions: []core.MasterExpenseTransaction{
			{Amount: core.Units(300), Date: date(2025, 2, 10), Status: core.Paid},
			{Amount: core.Units(700), Date: date(2025, 3, 10), Status: core.Paid, PaidViaCard: "c1"},
		}}},
		Expenses: []core.Expense{{ID: "e1", MasterExpenseID: "m1"}, {ID: "e2", MasterExpenseID: "other"}},
	}

	got := MasterExpenseSummaries(s, NewPeriod(2025, 3, nil))

	require.Len(t, got, 1)
	assert.Equal(t, core.Units(1000), got[0].Total)
	assert.Equal(t, core.Units(700), got[0].PeriodTotal)
	assert.Equal(t, core.Units(700), got[0].PaidViaCard)
	assert.Equal(t, 1, got[0].LinkedExpenses)
}

func TestYearlyReport(t *testing.T) {
	rep := YearlyReport(marchSnapshot(), 2025, nil)

	require.Len(t, rep.Months, 12)
	assert.Equal(t, core.MonthKey("2025-01"), rep.Months[0].Month)
	assert.Equal(t, core.Units(23750), rep.Months[2].TotalExpenses)
	assert.Equal(t, core.Units(23750), rep.Totals.TotalExpenses)
	assert.Equal(t, core.Units(51250), rep.Totals.Savings)
}
