// Package finance derives monthly rollups, net-worth history and forecast
// windows from a core.Snapshot. Every function is pure: inputs are never
// modified and results are fresh values.
package finance

import (
	"fmt"
	"time"

	"finboard/internal/core"
)

// Period is a calendar month evaluated in a single location. A nil
// Location means UTC. Callers must use one clock source consistently.
type Period struct {
	Year     int
	Month    time.Month
	Location *time.Location
}

// NewPeriod builds a Period from a year and a 1-12 month.
func NewPeriod(year, month int, loc *time.Location) Period {
	return Period{Year: year, Month: time.Month(month), Location: loc}
}

// PeriodOf returns the month t falls in when viewed from loc.
func PeriodOf(t time.Time, loc *time.Location) Period {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return Period{Year: lt.Year(), Month: lt.Month(), Location: loc}
}

func (p Period) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Validate rejects months outside 1-12.
func (p Period) Validate() error {
	if p.Month < time.January || p.Month > time.December {
		return fmt.Errorf("invalid month %d", p.Month)
	}
	return nil
}

// Contains reports whether t falls in the period's calendar month.
// Zero times never match.
func (p Period) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	lt := t.In(p.location())
	return lt.Year() == p.Year && lt.Month() == p.Month
}

// ContainsDate is Contains for a core.Date. Calendar dates are matched on
// their own year and month regardless of the period's location.
func (p Period) ContainsDate(d core.Date) bool {
	if d.IsZero() {
		return false
	}
	return p.Contains(d.WallIn(p.location()))
}

// Add moves the period by n months (negative goes back).
func (p Period) Add(n int) Period {
	t := time.Date(p.Year, p.Month+time.Month(n), 1, 0, 0, 0, 0, p.location())
	return Period{Year: t.Year(), Month: t.Month(), Location: p.Location}
}

// Prev is the month before p.
func (p Period) Prev() Period {
	return p.Add(-1)
}

// Key returns the "YYYY-MM" key for the period.
func (p Period) Key() core.MonthKey {
	return core.NewMonthKey(p.Year, int(p.Month))
}

// FilterByPeriod returns the records whose date falls in p.
func FilterByPeriod[T any](records []T, p Period, date func(T) core.Date) []T {
	var out []T
	for _, r := range records {
		if p.ContainsDate(date(r)) {
			out = append(out, r)
		}
	}
	return out
}

func incomeDate(i core.Income) core.Date { return i.Date }
func expenseDate(e core.Expense) core.Date { return e.DueDate }
func cardTxDate(t core.CreditCardTransaction) core.Date { return t.Date }
func masterTxDate(t core.MasterExpenseTransaction) core.Date { return t.Date }

// IncomesIn returns the incomes dated in p.
func IncomesIn(s core.Snapshot, p Period) []core.Income {
	return FilterByPeriod(s.Incomes, p, incomeDate)
}

// ExpensesIn returns the standalone expenses due in p.
func ExpensesIn(s core.Snapshot, p Period) []core.Expense {
	return FilterByPeriod(s.Expenses, p, expenseDate)
}

// CardTransactionsIn flattens every card's transactions dated in p.
func CardTransactionsIn(s core.Snapshot, p Period) []core.CreditCardTransaction {
	var out []core.CreditCardTransaction
	for _, c := range s.CreditCards {
		out = append(out, FilterByPeriod(c.Transactions, p, cardTxDate)...)
	}
	return out
}

// MasterTransactionsIn flattens every master expense's transactions dated in p.
func MasterTransactionsIn(s core.Snapshot, p Period) []core.MasterExpenseTransaction {
	var out []core.MasterExpenseTransaction
	for _, m := range s.MasterExpenses {
		out = append(out, FilterByPeriod(m.Transactions, p, masterTxDate)...)
	}
	return out
}
