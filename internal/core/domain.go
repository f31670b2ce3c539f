package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Credited    IncomeStatus = "Credited"
	NotCredited IncomeStatus = "Not Credited"

	Paid       ExpenseStatus = "Paid"
	NotPaid    ExpenseStatus = "Not Paid"
	PaidByCard ExpenseStatus = "Paid by Card"
)

type (
	IncomeStatus  string
	ExpenseStatus string

	// Date is either a calendar date given without a zone or a full ISO
	// timestamp. Calendar dates fall in the same month in every location.
	Date struct {
		time.Time
	}

	Income struct {
		ID             string       `json:"id"`
		Source         string       `json:"source"`
		ExpectedAmount Money        `json:"expectedAmount"`
		CreditedAmount Money        `json:"creditedAmount"`
		Date           Date         `json:"date"`
		Status         IncomeStatus `json:"status"`
		IsRecurring    bool         `json:"isRecurring"`
	}

	Expense struct {
		ID              string        `json:"id"`
		Category        string        `json:"category"`
		Description     string        `json:"description"`
		Amount          Money         `json:"amount"`
		DueDate         Date          `json:"dueDate"`
		Status          ExpenseStatus `json:"status"`
		IsRecurring     bool          `json:"isRecurring"`
		MasterExpenseID string        `json:"masterExpenseId,omitempty"` // soft link, may dangle
		PaidViaCard     string        `json:"paidViaCard,omitempty"`     // card ID, may dangle
	}

	CreditCardTransaction struct {
		ID              string `json:"id"`
		Amount          Money  `json:"amount"`
		Description     string `json:"description"`
		Date            Date   `json:"date"`
		MasterExpenseID string `json:"masterExpenseId,omitempty"`

		// SourceTransactionID links a copy made from a card-paid master
		// transaction back to it.
		SourceTransactionID string `json:"sourceTransactionId,omitempty"`
	}

	CreditCard struct {
		ID                  string                  `json:"id"`
		Name                string                  `json:"name"`
		CreditLimit         Money                   `json:"creditLimit"`
		UpcomingBillDueDate Date                    `json:"upcomingBillDueDate"`
		Transactions        []CreditCardTransaction `json:"transactions"`
	}

	MasterExpenseTransaction struct {
		ID          string        `json:"id"`
		Amount      Money         `json:"amount"`
		Description string        `json:"description"`
		Date        Date          `json:"date"`
		Status      ExpenseStatus `json:"status"`
		PaidViaCard string        `json:"paidViaCard,omitempty"`
	}

	// MasterExpense groups transactions (a trip, a renovation) that may have
	// been paid through different methods.
	MasterExpense struct {
		ID           string                     `json:"id"`
		Name         string                     `json:"name"`
		Transactions []MasterExpenseTransaction `json:"transactions"`
	}

	Asset struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Category    string `json:"category"`
		Value       Money  `json:"value"`
		LastUpdated Date   `json:"lastUpdated"`
	}

	Liability struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Category    string `json:"category"`
		Value       Money  `json:"value"`
		LastUpdated Date   `json:"lastUpdated"`
	}

	Note struct {
		ID        string `json:"id"`
		Content   string `json:"content"`
		CreatedAt Date   `json:"createdAt"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrEmptySource      = errors.New("empty income source")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyContent     = errors.New("empty note content")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrTextTooLong      = errors.New("text too long")
)

// IsValidationError reports whether err stems from entity validation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrNegativeAmount, ErrZeroDate, ErrEmptySource,
		ErrEmptyDescription, ErrEmptyCategory, ErrEmptyName, ErrEmptyContent,
		ErrInvalidStatus, ErrTextTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

const maxTextLength = 200

// calendarZone tags dates that were given without a zone. Their wall
// clock is kept as-is in every location they are viewed from.
var calendarZone = time.FixedZone("calendar", 0)

const (
	dateLayout      = "2006-01-02"
	localTimeLayout = "2006-01-02T15:04:05"
)

// NewDate creates a calendar Date at midnight with no zone attached.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, calendarZone)}
}

// CalendarDate keeps the wall clock of t and drops its zone.
func CalendarDate(t time.Time) Date {
	return Date{Time: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), calendarZone)}
}

// IsCalendar reports whether d was given without a zone.
func (d Date) IsCalendar() bool {
	return !d.IsZero() && d.Location() == calendarZone
}

// WallIn returns d as seen from loc. Calendar dates keep their wall
// clock; timestamps are converted.
func (d Date) WallIn(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if d.IsCalendar() {
		return time.Date(d.Year(), d.Month(), d.Day(), d.Hour(), d.Minute(), d.Second(), d.Nanosecond(), loc)
	}
	return d.In(loc)
}

// Validate rejects the zero date.
func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// MarshalJSON writes calendar dates back in the form they were given and
// timestamps as RFC 3339 UTC.
func (d Date) MarshalJSON() ([]byte, error) {
	switch {
	case d.IsZero():
		return []byte(`""`), nil
	case d.IsCalendar():
		layout := localTimeLayout
		if d.Hour() == 0 && d.Minute() == 0 && d.Second() == 0 {
			layout = dateLayout
		}
		return []byte(`"` + d.Format(layout) + `"`), nil
	}
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON accepts "2006-01-02", RFC 3339 timestamps and empty strings.
// Values without an offset become calendar dates.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		d.Time = t
		return nil
	}
	for _, layout := range []string{localTimeLayout, dateLayout} {
		if t, err := time.ParseInLocation(layout, s, calendarZone); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// Valid reports whether s is a known income status.
func (s IncomeStatus) Valid() bool {
	return s == Credited || s == NotCredited
}

// Valid reports whether s is a known expense status.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case Paid, NotPaid, PaidByCard:
		return true
	}
	return false
}

func validateText(s string, empty error) error {
	if strings.TrimSpace(s) == "" {
		return empty
	}
	if len(s) > maxTextLength {
		return fmt.Errorf("%w (max %d characters)", ErrTextTooLong, maxTextLength)
	}
	return nil
}

// Validate checks the income before it enters a snapshot.
func (i Income) Validate() error {
	if err := validateText(i.Source, ErrEmptySource); err != nil {
		return err
	}
	if err := i.ExpectedAmount.Validate(); err != nil {
		return fmt.Errorf("expected amount: %w", err)
	}
	if err := i.CreditedAmount.Validate(); err != nil {
		return fmt.Errorf("credited amount: %w", err)
	}
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if !i.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, i.Status)
	}
	return nil
}

// Validate checks the expense fields and its status.
func (e Expense) Validate() error {
	if err := validateText(e.Category, ErrEmptyCategory); err != nil {
		return err
	}
	if err := validateText(e.Description, ErrEmptyDescription); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.DueDate.Validate(); err != nil {
		return err
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, e.Status)
	}
	return nil
}

// Validate checks the card and every transaction on it.
func (c CreditCard) Validate() error {
	if err := validateText(c.Name, ErrEmptyName); err != nil {
		return err
	}
	if err := c.CreditLimit.Validate(); err != nil {
		return fmt.Errorf("credit limit: %w", err)
	}
	for _, tx := range c.Transactions {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single card charge.
func (t CreditCardTransaction) Validate() error {
	if err := validateText(t.Description, ErrEmptyDescription); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return t.Date.Validate()
}

// Validate checks the group name and its transactions.
func (m MasterExpense) Validate() error {
	if err := validateText(m.Name, ErrEmptyName); err != nil {
		return err
	}
	for _, tx := range m.Transactions {
		if err := tx.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks a single grouped transaction.
func (t MasterExpenseTransaction) Validate() error {
	if err := validateText(t.Description, ErrEmptyDescription); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	return nil
}

// Validate requires a name and a non-negative value.
func (a Asset) Validate() error {
	if err := validateText(a.Name, ErrEmptyName); err != nil {
		return err
	}
	return a.Value.Validate()
}

// Validate requires a name and a non-negative value.
func (l Liability) Validate() error {
	if err := validateText(l.Name, ErrEmptyName); err != nil {
		return err
	}
	return l.Value.Validate()
}

// Validate rejects blank notes.
func (n Note) Validate() error {
	if strings.TrimSpace(n.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}
