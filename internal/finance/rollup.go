package finance

import (
	"sort"
	"strings"

	"finboard/internal/core"
)

// ComputeRollup sums the four record streams for one month.
//
// Standalone expenses linked to a master expense or paid by card are still
// counted in the expense stream, so a purchase recorded both as an expense
// and as a card transaction shows up twice. PaidByCard expenses count as
// neither paid nor unpaid.
func ComputeRollup(s core.Snapshot, p Period) core.MonthlyRollup {
	r := core.MonthlyRollup{Month: p.Key()}

	for _, in := range IncomesIn(s, p) {
		r.ExpectedIncome = r.ExpectedIncome.Add(in.ExpectedAmount)
		if in.Status == core.Credited {
			r.TotalIncome = r.TotalIncome.Add(in.CreditedAmount)
		}
	}

	for _, e := range ExpensesIn(s, p) {
		switch e.Status {
		case core.Paid:
			r.PaidExpenses = r.PaidExpenses.Add(e.Amount)
		case core.NotPaid:
			r.UnpaidExpenses = r.UnpaidExpenses.Add(e.Amount)
		}
	}

	for _, tx := range CardTransactionsIn(s, p) {
		r.CreditCardSpending = r.CreditCardSpending.Add(tx.Amount)
	}

	for _, tx := range MasterTransactionsIn(s, p) {
		r.MasterExpenseSpending = r.MasterExpenseSpending.Add(tx.Amount)
	}

	r.TotalExpenses = core.Sum(r.PaidExpenses, r.UnpaidExpenses, r.CreditCardSpending)
	r.Savings = r.TotalIncome.Sub(r.TotalExpenses)
	return r
}

// categoryTotals sums standalone expenses of every status by category.
func categoryTotals(s core.Snapshot, p Period) map[string]core.Money {
	totals := make(map[string]core.Money)
	for _, e := range ExpensesIn(s, p) {
		name := strings.TrimSpace(e.Category)
		totals[name] = totals[name].Add(e.Amount)
	}
	return totals
}

// CategoryBreakdown lists per-category spending, largest first.
func CategoryBreakdown(s core.Snapshot, p Period) []core.CategoryAmount {
	totals := categoryTotals(s, p)
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amount := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CardSummaries reports period spending and all-time utilization per card.
func CardSummaries(s core.Snapshot, p Period) []core.CardSummary {
	out := make([]core.CardSummary, 0, len(s.CreditCards))
	for _, c := range s.CreditCards {
		sum := core.CardSummary{
			CardID:          c.ID,
			Name:            c.Name,
			UpcomingBillDue: c.UpcomingBillDueDate,
		}
		for _, tx := range c.Transactions {
			sum.Balance = sum.Balance.Add(tx.Amount)
			if p.ContainsDate(tx.Date) {
				sum.PeriodSpending = sum.PeriodSpending.Add(tx.Amount)
			}
		}
		sum.AvailableCredit = c.CreditLimit.Sub(sum.Balance)
		if sum.AvailableCredit.IsNegative() {
			sum.AvailableCredit = core.Money{}
		}
		if c.CreditLimit.Cents > 0 {
			sum.UtilizationPercent = int(sum.Balance.Cents * 100 / c.CreditLimit.Cents)
		}
		out = append(out, sum)
	}
	return out
}

// MasterExpenseSummaries reports totals per master expense.
func MasterExpenseSummaries(s core.Snapshot, p Period) []core.MasterExpenseSummary {
	out := make([]core.MasterExpenseSummary, 0, len(s.MasterExpenses))
	for _, m := range s.MasterExpenses {
		sum := core.MasterExpenseSummary{
			MasterExpenseID: m.ID,
			Name:            m.Name,
			LinkedExpenses:  len(s.LinkedExpenses(m.ID)),
		}
		for _, tx := range m.Transactions {
			sum.Total = sum.Total.Add(tx.Amount)
			if p.ContainsDate(tx.Date) {
				sum.PeriodTotal = sum.PeriodTotal.Add(tx.Amount)
			}
			if tx.PaidViaCard != "" || tx.Status == core.PaidByCard {
				sum.PaidViaCard = sum.PaidViaCard.Add(tx.Amount)
			}
		}
		out = append(out, sum)
	}
	return out
}
