package state

import (
	"fmt"
	"slices"
	"strings"

	"finboard/internal/core"
)

// Kind names an action on the wire.
type Kind string

const (
	KindIncomeAdd               Kind = "income.add"
	KindIncomeUpdate            Kind = "income.update"
	KindIncomeDelete            Kind = "income.delete"
	KindExpenseAdd              Kind = "expense.add"
	KindExpenseUpdate           Kind = "expense.update"
	KindExpenseDelete           Kind = "expense.delete"
	KindCardAdd                 Kind = "card.add"
	KindCardDelete              Kind = "card.delete"
	KindCardTransactionAdd      Kind = "card.transaction.add"
	KindCardTransactionDelete   Kind = "card.transaction.delete"
	KindMasterAdd               Kind = "master.add"
	KindMasterDelete            Kind = "master.delete"
	KindMasterTransactionAdd    Kind = "master.transaction.add"
	KindMasterTransactionDelete Kind = "master.transaction.delete"
	KindAssetUpsert             Kind = "asset.upsert"
	KindAssetDelete             Kind = "asset.delete"
	KindLiabilityUpsert         Kind = "liability.upsert"
	KindLiabilityDelete         Kind = "liability.delete"
	KindNoteAdd                 Kind = "note.add"
	KindNoteDelete              Kind = "note.delete"
	KindCategoryAdd             Kind = "category.add"
)

// Action is a single snapshot transition.
type Action interface {
	Kind() Kind
	apply(s *core.Snapshot, e *env) error
}

type (
	AddIncome    core.Income
	UpdateIncome core.Income
	DeleteIncome struct {
		ID string `json:"id"`
	}

	AddExpense    core.Expense
	UpdateExpense core.Expense
	DeleteExpense struct {
		ID string `json:"id"`
	}

	AddCard    core.CreditCard
	DeleteCard struct {
		ID string `json:"id"`
	}
	AddCardTransaction struct {
		CardID      string                     `json:"cardId"`
		Transaction core.CreditCardTransaction `json:"transaction"`
	}
	DeleteCardTransaction struct {
		CardID        string `json:"cardId"`
		TransactionID string `json:"transactionId"`
	}

	AddMasterExpense    core.MasterExpense
	DeleteMasterExpense struct {
		ID string `json:"id"`
	}
	AddMasterTransaction struct {
		MasterExpenseID string                        `json:"masterExpenseId"`
		Transaction     core.MasterExpenseTransaction `json:"transaction"`
	}
	DeleteMasterTransaction struct {
		MasterExpenseID string `json:"masterExpenseId"`
		TransactionID   string `json:"transactionId"`
	}

	UpsertAsset core.Asset
	DeleteAsset struct {
		ID string `json:"id"`
	}
	UpsertLiability core.Liability
	DeleteLiability struct {
		ID string `json:"id"`
	}

	AddNote    core.Note
	DeleteNote struct {
		ID string `json:"id"`
	}

	AddCategory struct {
		Name string `json:"name"`
	}
)

func incomeID(i core.Income) string { return i.ID }
func expenseID(e core.Expense) string { return e.ID }
func cardID(c core.CreditCard) string { return c.ID }
func cardTxID(t core.CreditCardTransaction) string { return t.ID }
func masterID(m core.MasterExpense) string { return m.ID }
func masterTxID(t core.MasterExpenseTransaction) string { return t.ID }
func assetID(a core.Asset) string { return a.ID }
func liabilityID(l core.Liability) string { return l.ID }
func noteID(n core.Note) string { return n.ID }

// Incomes

func (AddIncome) Kind() Kind { return KindIncomeAdd }

func (a AddIncome) apply(s *core.Snapshot, e *env) error {
	in := core.Income(a)
	in.ID = e.id(in.ID)
	if err := in.Validate(); err != nil {
		return err
	}
	s.Incomes = append(s.Incomes, in)
	return nil
}

func (UpdateIncome) Kind() Kind { return KindIncomeUpdate }

func (a UpdateIncome) apply(s *core.Snapshot, _ *env) error {
	in := core.Income(a)
	i := indexByID(s.Incomes, in.ID, incomeID)
	if i < 0 {
		return fmt.Errorf("income %q: %w", in.ID, ErrNotFound)
	}
	if err := in.Validate(); err != nil {
		return err
	}
	s.Incomes[i] = in
	return nil
}

func (DeleteIncome) Kind() Kind { return KindIncomeDelete }

func (a DeleteIncome) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.Incomes, a.ID, incomeID)
	if i < 0 {
		return fmt.Errorf("income %q: %w", a.ID, ErrNotFound)
	}
	s.Incomes = removeAt(s.Incomes, i)
	return nil
}

// Expenses

func (AddExpense) Kind() Kind { return KindExpenseAdd }

func (a AddExpense) apply(s *core.Snapshot, e *env) error {
	exp := core.Expense(a)
	exp.ID = e.id(exp.ID)
	if err := exp.Validate(); err != nil {
		return err
	}
	warnDangling(s, e, exp)
	s.Expenses = append(s.Expenses, exp)
	return nil
}

func (UpdateExpense) Kind() Kind { return KindExpenseUpdate }

func (a UpdateExpense) apply(s *core.Snapshot, e *env) error {
	exp := core.Expense(a)
	i := indexByID(s.Expenses, exp.ID, expenseID)
	if i < 0 {
		return fmt.Errorf("expense %q: %w", exp.ID, ErrNotFound)
	}
	if err := exp.Validate(); err != nil {
		return err
	}
	warnDangling(s, e, exp)
	s.Expenses[i] = exp
	return nil
}

func (DeleteExpense) Kind() Kind { return KindExpenseDelete }

func (a DeleteExpense) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.Expenses, a.ID, expenseID)
	if i < 0 {
		return fmt.Errorf("expense %q: %w", a.ID, ErrNotFound)
	}
	s.Expenses = removeAt(s.Expenses, i)
	return nil
}

func warnDangling(s *core.Snapshot, e *env, exp core.Expense) {
	if exp.MasterExpenseID != "" {
		if _, ok := s.FindMasterExpense(exp.MasterExpenseID); !ok {
			e.logger.Warn("Expense references unknown master expense",
				"expense_id", exp.ID, "master_expense_id", exp.MasterExpenseID)
		}
	}
	if exp.PaidViaCard != "" {
		if _, ok := s.FindCard(exp.PaidViaCard); !ok {
			e.logger.Warn("Expense references unknown card",
				"expense_id", exp.ID, "card_id", exp.PaidViaCard)
		}
	}
}

// Credit cards

func (AddCard) Kind() Kind { return KindCardAdd }

func (a AddCard) apply(s *core.Snapshot, e *env) error {
	c := core.CreditCard(a)
	c.ID = e.id(c.ID)
	c.Transactions = append([]core.CreditCardTransaction(nil), c.Transactions...)
	for i := range c.Transactions {
		c.Transactions[i].ID = e.id(c.Transactions[i].ID)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	s.CreditCards = append(s.CreditCards, c)
	return nil
}

func (DeleteCard) Kind() Kind { return KindCardDelete }

func (a DeleteCard) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.CreditCards, a.ID, cardID)
	if i < 0 {
		return fmt.Errorf("card %q: %w", a.ID, ErrNotFound)
	}
	s.CreditCards = removeAt(s.CreditCards, i)
	return nil
}

func (AddCardTransaction) Kind() Kind { return KindCardTransactionAdd }

func (a AddCardTransaction) apply(s *core.Snapshot, e *env) error {
	i := indexByID(s.CreditCards, a.CardID, cardID)
	if i < 0 {
		return fmt.Errorf("card %q: %w", a.CardID, ErrNotFound)
	}
	tx := a.Transaction
	tx.ID = e.id(tx.ID)
	tx.Date = e.date(tx.Date)
	if err := tx.Validate(); err != nil {
		return err
	}
	s.CreditCards[i].Transactions = append(s.CreditCards[i].Transactions, tx)
	return nil
}

func (DeleteCardTransaction) Kind() Kind { return KindCardTransactionDelete }

func (a DeleteCardTransaction) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.CreditCards, a.CardID, cardID)
	if i < 0 {
		return fmt.Errorf("card %q: %w", a.CardID, ErrNotFound)
	}
	txs := s.CreditCards[i].Transactions
	j := indexByID(txs, a.TransactionID, cardTxID)
	if j < 0 {
		return fmt.Errorf("card transaction %q: %w", a.TransactionID, ErrNotFound)
	}
	s.CreditCards[i].Transactions = removeAt(txs, j)
	return nil
}

// Master expenses

func (AddMasterExpense) Kind() Kind { return KindMasterAdd }

func (a AddMasterExpense) apply(s *core.Snapshot, e *env) error {
	m := core.MasterExpense(a)
	m.ID = e.id(m.ID)
	m.Transactions = append([]core.MasterExpenseTransaction(nil), m.Transactions...)
	for i := range m.Transactions {
		m.Transactions[i].ID = e.id(m.Transactions[i].ID)
	}
	if err := m.Validate(); err != nil {
		return err
	}
	s.MasterExpenses = append(s.MasterExpenses, m)
	return nil
}

func (DeleteMasterExpense) Kind() Kind { return KindMasterDelete }

// Linked expenses and card transactions keep their now dangling IDs.
func (a DeleteMasterExpense) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.MasterExpenses, a.ID, masterID)
	if i < 0 {
		return fmt.Errorf("master expense %q: %w", a.ID, ErrNotFound)
	}
	s.MasterExpenses = removeAt(s.MasterExpenses, i)
	return nil
}

func (AddMasterTransaction) Kind() Kind { return KindMasterTransactionAdd }

// A transaction paid through a known card is mirrored on that card so the
// card's balance reflects it. Unknown cards are skipped.
func (a AddMasterTransaction) apply(s *core.Snapshot, e *env) error {
	i := indexByID(s.MasterExpenses, a.MasterExpenseID, masterID)
	if i < 0 {
		return fmt.Errorf("master expense %q: %w", a.MasterExpenseID, ErrNotFound)
	}
	tx := a.Transaction
	tx.ID = e.id(tx.ID)
	tx.Date = e.date(tx.Date)
	if tx.Status == "" {
		tx.Status = core.Paid
	}
	if tx.PaidViaCard != "" && tx.Status != core.PaidByCard {
		tx.Status = core.PaidByCard
	}
	if err := tx.Validate(); err != nil {
		return err
	}
	s.MasterExpenses[i].Transactions = append(s.MasterExpenses[i].Transactions, tx)

	if tx.PaidViaCard == "" {
		return nil
	}
	c := indexByID(s.CreditCards, tx.PaidViaCard, cardID)
	if c < 0 {
		e.logger.Warn("Master expense transaction references unknown card",
			"master_expense_id", a.MasterExpenseID, "card_id", tx.PaidViaCard)
		return nil
	}
	s.CreditCards[c].Transactions = append(s.CreditCards[c].Transactions, core.CreditCardTransaction{
		ID:              e.newID(),
		Amount:          tx.Amount,
		Description:     tx.Description,
		Date:            tx.Date,
		MasterExpenseID: a.MasterExpenseID,

		SourceTransactionID: tx.ID,
	})
	return nil
}

func (DeleteMasterTransaction) Kind() Kind { return KindMasterTransactionDelete }

// The card copy made when the transaction was added goes with it.
func (a DeleteMasterTransaction) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.MasterExpenses, a.MasterExpenseID, masterID)
	if i < 0 {
		return fmt.Errorf("master expense %q: %w", a.MasterExpenseID, ErrNotFound)
	}
	txs := s.MasterExpenses[i].Transactions
	j := indexByID(txs, a.TransactionID, masterTxID)
	if j < 0 {
		return fmt.Errorf("master transaction %q: %w", a.TransactionID, ErrNotFound)
	}
	s.MasterExpenses[i].Transactions = removeAt(txs, j)

	for c := range s.CreditCards {
		s.CreditCards[c].Transactions = slices.DeleteFunc(s.CreditCards[c].Transactions, func(tx core.CreditCardTransaction) bool {
			return tx.SourceTransactionID == a.TransactionID
		})
	}
	return nil
}

// Assets and liabilities

func (UpsertAsset) Kind() Kind { return KindAssetUpsert }

func (a UpsertAsset) apply(s *core.Snapshot, e *env) error {
	asset := core.Asset(a)
	asset.ID = e.id(asset.ID)
	asset.LastUpdated = e.date(asset.LastUpdated)
	if err := asset.Validate(); err != nil {
		return err
	}
	if i := indexByID(s.Assets, asset.ID, assetID); i >= 0 {
		s.Assets[i] = asset
		return nil
	}
	s.Assets = append(s.Assets, asset)
	return nil
}

func (DeleteAsset) Kind() Kind { return KindAssetDelete }

func (a DeleteAsset) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.Assets, a.ID, assetID)
	if i < 0 {
		return fmt.Errorf("asset %q: %w", a.ID, ErrNotFound)
	}
	s.Assets = removeAt(s.Assets, i)
	return nil
}

func (UpsertLiability) Kind() Kind { return KindLiabilityUpsert }

func (a UpsertLiability) apply(s *core.Snapshot, e *env) error {
	l := core.Liability(a)
	l.ID = e.id(l.ID)
	l.LastUpdated = e.date(l.LastUpdated)
	if err := l.Validate(); err != nil {
		return err
	}
	if i := indexByID(s.Liabilities, l.ID, liabilityID); i >= 0 {
		s.Liabilities[i] = l
		return nil
	}
	s.Liabilities = append(s.Liabilities, l)
	return nil
}

func (DeleteLiability) Kind() Kind { return KindLiabilityDelete }

func (a DeleteLiability) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.Liabilities, a.ID, liabilityID)
	if i < 0 {
		return fmt.Errorf("liability %q: %w", a.ID, ErrNotFound)
	}
	s.Liabilities = removeAt(s.Liabilities, i)
	return nil
}

// Notes and categories

func (AddNote) Kind() Kind { return KindNoteAdd }

// Notes are kept newest first.
func (a AddNote) apply(s *core.Snapshot, e *env) error {
	n := core.Note(a)
	n.ID = e.id(n.ID)
	n.CreatedAt = e.date(n.CreatedAt)
	if err := n.Validate(); err != nil {
		return err
	}
	s.Notes = append([]core.Note{n}, s.Notes...)
	return nil
}

func (DeleteNote) Kind() Kind { return KindNoteDelete }

func (a DeleteNote) apply(s *core.Snapshot, _ *env) error {
	i := indexByID(s.Notes, a.ID, noteID)
	if i < 0 {
		return fmt.Errorf("note %q: %w", a.ID, ErrNotFound)
	}
	s.Notes = removeAt(s.Notes, i)
	return nil
}

func (AddCategory) Kind() Kind { return KindCategoryAdd }

func (a AddCategory) apply(s *core.Snapshot, _ *env) error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	if s.HasCategory(name) {
		return nil
	}
	s.Categories = append(s.Categories, name)
	return nil
}
