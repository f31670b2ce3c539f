package finance

import (
	"strings"
	"time"

	"finboard/internal/core"
)

// DueRecurring returns copies of the previous month's recurring incomes and
// expenses that have no counterpart in p yet. Incomes match on source and
// expenses on category plus description, ignoring case. Copies keep the day
// of month, clamped to the length of p, carry no ID and start out not
// credited or not paid.
func DueRecurring(s core.Snapshot, p Period) ([]core.Income, []core.Expense) {
	prev := p.Prev()

	haveIncome := make(map[string]bool)
	for _, in := range IncomesIn(s, p) {
		haveIncome[normalize(in.Source)] = true
	}
	var incomes []core.Income
	for _, in := range IncomesIn(s, prev) {
		key := normalize(in.Source)
		if !in.IsRecurring || haveIncome[key] {
			continue
		}
		haveIncome[key] = true
		incomes = append(incomes, core.Income{
			Source:         in.Source,
			ExpectedAmount: in.ExpectedAmount,
			Date:           shiftInto(in.Date, p),
			Status:         core.NotCredited,
			IsRecurring:    true,
		})
	}

	haveExpense := make(map[string]bool)
	for _, e := range ExpensesIn(s, p) {
		haveExpense[expenseKey(e)] = true
	}
	var expenses []core.Expense
	for _, e := range ExpensesIn(s, prev) {
		key := expenseKey(e)
		if !e.IsRecurring || haveExpense[key] {
			continue
		}
		haveExpense[key] = true
		expenses = append(expenses, core.Expense{
			Category:    e.Category,
			Description: e.Description,
			Amount:      e.Amount,
			DueDate:     shiftInto(e.DueDate, p),
			Status:      core.NotPaid,
			IsRecurring: true,
		})
	}
	return incomes, expenses
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func expenseKey(e core.Expense) string {
	return normalize(e.Category) + "\x00" + normalize(e.Description)
}

// shiftInto moves d to the same day and clock time in p, using the last
// day of the month when p is shorter.
func shiftInto(d core.Date, p Period) core.Date {
	loc := p.location()
	t := d.WallIn(loc)
	day := t.Day()
	if last := time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, loc).Day(); day > last {
		day = last
	}
	shifted := time.Date(p.Year, p.Month, day, t.Hour(), t.Minute(), t.Second(), 0, loc)
	if d.IsCalendar() {
		return core.CalendarDate(shifted)
	}
	return core.Date{Time: shifted}
}
