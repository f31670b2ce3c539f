package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MonthKey identifies a calendar month as "YYYY-MM".
type MonthKey string

// NewMonthKey formats a year and month (1-12).
func NewMonthKey(year, month int) MonthKey {
	return MonthKey(fmt.Sprintf("%04d-%02d", year, month))
}

// MonthKeyOf returns the key of the calendar month t falls in.
func MonthKeyOf(t time.Time) MonthKey {
	return NewMonthKey(t.Year(), int(t.Month()))
}

// Parse splits the key into year and month.
func (k MonthKey) Parse() (year, month int, err error) {
	if _, err := fmt.Sscanf(string(k), "%d-%d", &year, &month); err != nil {
		return 0, 0, fmt.Errorf("invalid month key %q: %w", k, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month key %q: month out of range", k)
	}
	return year, month, nil
}

// Before reports whether k is chronologically earlier than o. Keys that do
// not parse sort lexically after the valid ones.
func (k MonthKey) Before(o MonthKey) bool {
	ky, km, kerr := k.Parse()
	oy, om, oerr := o.Parse()
	switch {
	case kerr != nil && oerr != nil:
		return k < o
	case kerr != nil:
		return false
	case oerr != nil:
		return true
	}
	if ky != oy {
		return ky < oy
	}
	return km < om
}

// NetWorthEntry is the net worth recorded for one month.
type NetWorthEntry struct {
	Month MonthKey `json:"month"`
	Value Money    `json:"value"`
}

// NetWorthHistory is ordered oldest first, with unique month keys.
type NetWorthHistory []NetWorthEntry

// Equal reports value equality.
func (h NetWorthHistory) Equal(o NetWorthHistory) bool {
	if len(h) != len(o) {
		return false
	}
	for i := range h {
		if h[i] != o[i] {
			return false
		}
	}
	return true
}

// Lookup returns the entry for month.
func (h NetWorthHistory) Lookup(month MonthKey) (NetWorthEntry, bool) {
	for _, e := range h {
		if e.Month == month {
			return e, true
		}
	}
	return NetWorthEntry{}, false
}

// Sorted returns a chronologically ordered copy.
func (h NetWorthHistory) Sorted() NetWorthHistory {
	out := append(NetWorthHistory(nil), h...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// Snapshot is the complete data set of one profile. Values are treated as
// immutable: producers return new snapshots instead of editing in place.
type Snapshot struct {
	Version         int64           `json:"version"`
	Incomes         []Income        `json:"incomes"`
	Expenses        []Expense       `json:"expenses"`
	CreditCards     []CreditCard    `json:"creditCards"`
	MasterExpenses  []MasterExpense `json:"masterExpenses"`
	Assets          []Asset         `json:"assets"`
	Liabilities     []Liability     `json:"liabilities"`
	Notes           []Note          `json:"notes"`
	Categories      []string        `json:"categories"`
	NetWorthHistory NetWorthHistory `json:"netWorthHistory"`
}

// Clone returns a deep copy, including nested transaction lists.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Incomes = append([]Income(nil), s.Incomes...)
	out.Expenses = append([]Expense(nil), s.Expenses...)
	out.Assets = append([]Asset(nil), s.Assets...)
	out.Liabilities = append([]Liability(nil), s.Liabilities...)
	out.Notes = append([]Note(nil), s.Notes...)
	out.Categories = append([]string(nil), s.Categories...)
	out.NetWorthHistory = append(NetWorthHistory(nil), s.NetWorthHistory...)

	out.CreditCards = nil
	for _, c := range s.CreditCards {
		c.Transactions = append([]CreditCardTransaction(nil), c.Transactions...)
		out.CreditCards = append(out.CreditCards, c)
	}
	out.MasterExpenses = nil
	for _, m := range s.MasterExpenses {
		m.Transactions = append([]MasterExpenseTransaction(nil), m.Transactions...)
		out.MasterExpenses = append(out.MasterExpenses, m)
	}
	return out
}

// Validate checks every entity. Dangling soft links are not errors.
func (s Snapshot) Validate() error {
	for _, i := range s.Incomes {
		if err := i.Validate(); err != nil {
			return fmt.Errorf("income %s: %w", i.ID, err)
		}
	}
	for _, e := range s.Expenses {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("expense %s: %w", e.ID, err)
		}
	}
	for _, c := range s.CreditCards {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("credit card %s: %w", c.ID, err)
		}
	}
	for _, m := range s.MasterExpenses {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("master expense %s: %w", m.ID, err)
		}
	}
	for _, a := range s.Assets {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("asset %s: %w", a.ID, err)
		}
	}
	for _, l := range s.Liabilities {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("liability %s: %w", l.ID, err)
		}
	}
	seen := make(map[MonthKey]struct{}, len(s.NetWorthHistory))
	for _, e := range s.NetWorthHistory {
		if _, dup := seen[e.Month]; dup {
			return fmt.Errorf("net worth history: duplicate month %s", e.Month)
		}
		seen[e.Month] = struct{}{}
	}
	return nil
}

// FindMasterExpense resolves a soft link. A missing ID is not an error.
func (s Snapshot) FindMasterExpense(id string) (MasterExpense, bool) {
	if id == "" {
		return MasterExpense{}, false
	}
	for _, m := range s.MasterExpenses {
		if m.ID == id {
			return m, true
		}
	}
	return MasterExpense{}, false
}

// FindCard resolves a card ID.
func (s Snapshot) FindCard(id string) (CreditCard, bool) {
	if id == "" {
		return CreditCard{}, false
	}
	for _, c := range s.CreditCards {
		if c.ID == id {
			return c, true
		}
	}
	return CreditCard{}, false
}

// LinkedExpenses returns standalone expenses pointing at a master expense.
func (s Snapshot) LinkedExpenses(masterID string) []Expense {
	var out []Expense
	for _, e := range s.Expenses {
		if masterID != "" && e.MasterExpenseID == masterID {
			out = append(out, e)
		}
	}
	return out
}

// HasCategory reports whether name is known, ignoring case.
func (s Snapshot) HasCategory(name string) bool {
	for _, c := range s.Categories {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}
