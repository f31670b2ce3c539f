// Package core provides money parsing and handling utilities.
//
// Amounts are held as integer cents. Conversion from user input and JSON
// goes through shopspring/decimal so that values like "12.345" round
// half-up to 1235 cents instead of drifting through float64.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in cents. Stored entities are never negative,
// derived values (savings, net worth) can be.
type Money struct {
	Cents int64
}

// Cents builds a Money value from an integer number of cents.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// Units builds a Money value from whole currency units.
func Units(u int64) Money {
	return Money{Cents: u * 100}
}

var maxCents = decimal.NewFromInt(math.MaxInt64)

// MoneyFromDecimal rounds d to two decimal places, half away from zero.
// Values whose cents do not fit in an int64 return ErrInvalidAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	c := d.Shift(2).Round(0)
	if c.Abs().GreaterThan(maxCents) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: c.IntPart()}, nil
}

// ParseAmount converts a decimal string to Money.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rejects negative values. Zero is allowed: an income that was not credited
// carries a zero credited amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,345") -> 1235 cents
//	ParseAmount("-1")     -> ErrNegativeAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return MoneyFromDecimal(d)
}

// Validate rejects negative amounts.
func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Add returns m+o.
func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// Sub returns m-o.
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// IsZero reports whether m is exactly zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// IsNegative reports whether m is below zero.
func (m Money) IsNegative() bool { return m.Cents < 0 }

// Decimal returns the exact decimal value in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the value as float64 for display and for collaborators that
// only speak JSON numbers. Use cents for arithmetic.
func (m Money) Float() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

// String formats the amount with two decimals, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number in currency units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	v, err := MoneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Sum adds up a list of amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
