package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthlyRollup is the set of sums derived for one calendar month.
//
// TotalExpenses is always PaidExpenses + UnpaidExpenses + CreditCardSpending.
// MasterExpenseSpending is informational and not part of TotalExpenses.
type MonthlyRollup struct {
	Month                 MonthKey `json:"month"`
	TotalIncome           Money    `json:"totalIncome"`
	ExpectedIncome        Money    `json:"expectedIncome"`
	PaidExpenses          Money    `json:"paidExpenses"`
	UnpaidExpenses        Money    `json:"unpaidExpenses"`
	CreditCardSpending    Money    `json:"creditCardSpending"`
	TotalExpenses         Money    `json:"totalExpenses"`
	MasterExpenseSpending Money    `json:"masterExpenseSpending"`
	Savings               Money    `json:"savings"`
}

// MonthTriple is one month of forecast input.
type MonthTriple struct {
	Month                  MonthKey `json:"month"`
	Income                 Money    `json:"income"`
	Expenses               Money    `json:"expenses"`
	CreditCardSpending     Money    `json:"creditCardSpending"`
	OverspendingCategories []string `json:"overspendingCategories,omitempty"`
}

// HasData reports whether any of the three figures is non-zero.
func (t MonthTriple) HasData() bool {
	return !t.Income.IsZero() || !t.Expenses.IsZero() || !t.CreditCardSpending.IsZero()
}

// Savings is income minus expenses for the month.
func (t MonthTriple) Savings() Money {
	return t.Income.Sub(t.Expenses)
}

// CardSummary describes one credit card for a period.
type CardSummary struct {
	CardID             string `json:"cardId"`
	Name               string `json:"name"`
	PeriodSpending     Money  `json:"periodSpending"`
	Balance            Money  `json:"balance"`
	AvailableCredit    Money  `json:"availableCredit"`
	UtilizationPercent int    `json:"utilizationPercent"`
	UpcomingBillDue    Date   `json:"upcomingBillDueDate"`
}

// MasterExpenseSummary describes one master expense.
type MasterExpenseSummary struct {
	MasterExpenseID string `json:"masterExpenseId"`
	Name            string `json:"name"`
	Total           Money  `json:"total"`
	PeriodTotal     Money  `json:"periodTotal"`
	PaidViaCard     Money  `json:"paidViaCard"`
	LinkedExpenses  int    `json:"linkedExpenses"`
}

// MonthOverview is the dashboard view of a month.
type MonthOverview struct {
	Rollup         MonthlyRollup          `json:"rollup"`
	ByCategory     []CategoryAmount       `json:"byCategory"`
	Cards          []CardSummary          `json:"cards"`
	MasterExpenses []MasterExpenseSummary `json:"masterExpenses"`
	NetWorth       Money                  `json:"netWorth"`
}

// YearReport holds twelve monthly rollups and their totals.
type YearReport struct {
	Year   int             `json:"year"`
	Months []MonthlyRollup `json:"months"`
	Totals MonthlyRollup   `json:"totals"`
}
