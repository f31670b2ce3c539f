package services

import (
	"context"
	"fmt"

	"finboard/internal/core"
	"finboard/internal/finance"
	applog "finboard/internal/log"
	"finboard/internal/state"
)

// RecurringProcessor copies last month's recurring incomes and expenses
// into the current month once per month.
type RecurringProcessor struct {
	ledger *LedgerService
	logger *applog.Logger
}

func NewRecurringProcessor(ledger *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{
		ledger: ledger,
		logger: ledger.logger.WithComponent(applog.ComponentLedger),
	}
}

// ProcessProfile applies the due copies for profile in one commit and
// returns how many entries were created. The due entries are computed
// under the ledger's write lock.
func (p *RecurringProcessor) ProcessProfile(ctx context.Context, profile string) (int, error) {
	period := finance.PeriodOf(p.ledger.now(), p.ledger.location)

	var incomes, expenses int
	_, applied, err := p.ledger.applyWith(ctx, profile, func(snap core.Snapshot) []state.Action {
		dueIncomes, dueExpenses := finance.DueRecurring(snap, period)
		incomes, expenses = len(dueIncomes), len(dueExpenses)

		actions := make([]state.Action, 0, incomes+expenses)
		for _, in := range dueIncomes {
			actions = append(actions, state.AddIncome(in))
		}
		for _, e := range dueExpenses {
			actions = append(actions, state.AddExpense(e))
		}
		return actions
	})
	if err != nil {
		return 0, fmt.Errorf("apply recurring entries: %w", err)
	}
	if len(applied) == 0 {
		return 0, nil
	}

	p.logger.InfoContext(ctx, "Created recurring entries",
		applog.FieldProfile, profile,
		applog.FieldMonth, period.Key(),
		"incomes", incomes,
		"expenses", expenses)
	return len(applied), nil
}

// ProcessAll runs ProcessProfile for every stored profile. A failing
// profile is logged and skipped.
func (p *RecurringProcessor) ProcessAll(ctx context.Context) (int, error) {
	profiles, err := p.ledger.Profiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}

	total := 0
	for _, profile := range profiles {
		n, err := p.ProcessProfile(ctx, profile)
		if err != nil {
			p.logger.ErrorContext(ctx, "Recurring processing failed",
				applog.FieldProfile, profile, applog.FieldError, err)
			continue
		}
		total += n
	}
	return total, nil
}
