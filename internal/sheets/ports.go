// Package sheets publishes monthly rollups to an external spreadsheet.
package sheets

import (
	"context"

	"finboard/internal/core"
)

// ReportExporter writes the rollup of one month for a profile. Exporting the
// same profile and month twice overwrites the earlier row.
type ReportExporter interface {
	ExportOverview(ctx context.Context, profile string, ov core.MonthOverview) error
}

// ReportReader returns previously exported rows for a year.
type ReportReader interface {
	ExportedRows(ctx context.Context, profile string, year int) ([]Row, error)
}

// Row is the flat form of an exported month.
type Row struct {
	Profile        string
	Month          core.MonthKey
	Income         core.Money
	ExpectedIncome core.Money
	Paid           core.Money
	Unpaid         core.Money
	CreditCard     core.Money
	TotalExpenses  core.Money
	MasterExpenses core.Money
	Savings        core.Money
	NetWorth       core.Money
}

// RowFromOverview flattens ov for profile.
func RowFromOverview(profile string, ov core.MonthOverview) Row {
	r := ov.Rollup
	return Row{
		Profile:        profile,
		Month:          r.Month,
		Income:         r.TotalIncome,
		ExpectedIncome: r.ExpectedIncome,
		Paid:           r.PaidExpenses,
		Unpaid:         r.UnpaidExpenses,
		CreditCard:     r.CreditCardSpending,
		TotalExpenses:  r.TotalExpenses,
		MasterExpenses: r.MasterExpenseSpending,
		Savings:        r.Savings,
		NetWorth:       ov.NetWorth,
	}
}

// Header is the first row of every export sheet.
var Header = []string{
	"Profile", "Month", "Income", "Expected income", "Paid", "Unpaid",
	"Credit card", "Total expenses", "Master expenses", "Savings", "Net worth",
}
