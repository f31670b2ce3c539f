package finance

import (
	"time"

	"finboard/internal/core"
)

// Overview assembles the dashboard view for one month.
func Overview(s core.Snapshot, p Period) core.MonthOverview {
	return core.MonthOverview{
		Rollup:         ComputeRollup(s, p),
		ByCategory:     CategoryBreakdown(s, p),
		Cards:          CardSummaries(s, p),
		MasterExpenses: MasterExpenseSummaries(s, p),
		NetWorth:       NetWorth(s.Assets, s.Liabilities),
	}
}

// YearlyReport computes the twelve rollups of a calendar year.
func YearlyReport(s core.Snapshot, year int, loc *time.Location) core.YearReport {
	rep := core.YearReport{Year: year, Months: make([]core.MonthlyRollup, 0, 12)}
	for m := 1; m <= 12; m++ {
		r := ComputeRollup(s, NewPeriod(year, m, loc))
		rep.Months = append(rep.Months, r)

		t := &rep.Totals
		t.TotalIncome = t.TotalIncome.Add(r.TotalIncome)
		t.ExpectedIncome = t.ExpectedIncome.Add(r.ExpectedIncome)
		t.PaidExpenses = t.PaidExpenses.Add(r.PaidExpenses)
		t.UnpaidExpenses = t.UnpaidExpenses.Add(r.UnpaidExpenses)
		t.CreditCardSpending = t.CreditCardSpending.Add(r.CreditCardSpending)
		t.MasterExpenseSpending = t.MasterExpenseSpending.Add(r.MasterExpenseSpending)
	}
	t := &rep.Totals
	t.TotalExpenses = core.Sum(t.PaidExpenses, t.UnpaidExpenses, t.CreditCardSpending)
	t.Savings = t.TotalIncome.Sub(t.TotalExpenses)
	return rep
}
