package finance

import (
	"sort"
	"time"

	"finboard/internal/core"
)

// DefaultWindow is the number of months the forecast collaborator expects.
const DefaultWindow = 3

// A category is overspent in a month when it exceeds its window mean by
// more than overspendNum/overspendDen.
const (
	overspendNum = 5
	overspendDen = 4
)

// BuildWindow returns n monthly triples ending with the month of now,
// oldest first. Months without records yield zeros; n <= 0 yields an empty
// slice.
func BuildWindow(s core.Snapshot, now time.Time, n int, loc *time.Location) []core.MonthTriple {
	if n <= 0 {
		return []core.MonthTriple{}
	}

	current := PeriodOf(now, loc)
	out := make([]core.MonthTriple, n)
	byMonth := make([]map[string]core.Money, n)

	for i := 0; i < n; i++ {
		p := current.Add(i - (n - 1))
		r := ComputeRollup(s, p)
		out[i] = core.MonthTriple{
			Month:              p.Key(),
			Income:             r.TotalIncome,
			Expenses:           r.TotalExpenses,
			CreditCardSpending: r.CreditCardSpending,
		}
		byMonth[i] = categoryTotals(s, p)
	}

	markOverspending(out, byMonth)
	return out
}

func markOverspending(window []core.MonthTriple, byMonth []map[string]core.Money) {
	totals := make(map[string]int64)
	active := make(map[string]int)
	for _, m := range byMonth {
		for name, amount := range m {
			totals[name] += amount.Cents
			if amount.Cents > 0 {
				active[name]++
			}
		}
	}

	n := int64(len(window))
	for i, m := range byMonth {
		var over []string
		for name, amount := range m {
			if active[name] < 2 {
				continue
			}
			// amount > 1.25 * (total / n), kept in integers
			if amount.Cents*n*overspendDen > totals[name]*overspendNum {
				over = append(over, name)
			}
		}
		sort.Strings(over)
		window[i].OverspendingCategories = over
	}
}

// MonthsWithData counts triples carrying at least one non-zero figure.
func MonthsWithData(window []core.MonthTriple) int {
	n := 0
	for _, t := range window {
		if t.HasData() {
			n++
		}
	}
	return n
}
