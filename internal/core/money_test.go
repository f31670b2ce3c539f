package core

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		err  error
	}{
		{"1", 100, nil},
		{"1.0", 100, nil},
		{"1.23", 123, nil},
		{"1,23", 123, nil},
		{"0.01", 1, nil},
		{"1.005", 101, nil}, // half-up rounding
		{"12.344", 1234, nil},
		{" 2.50 ", 250, nil},
		{"0", 0, nil},
		{"92233720368547758.07", 9223372036854775807, nil},
		{"92233720368547758.08", 0, ErrInvalidAmount},
		{"1e30", 0, ErrInvalidAmount},
		{"-1", 0, ErrNegativeAmount},
		{"abc", 0, ErrInvalidAmount},
		{"1.2.3", 0, ErrInvalidAmount},
		{"", 0, ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Cents)
		})
	}
}

func TestMoneyFromDecimal_Overflow(t *testing.T) {
	_, err := MoneyFromDecimal(decimal.RequireFromString("-92233720368547758.09"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	m, err := MoneyFromDecimal(decimal.RequireFromString("-92233720368547758.07"))
	require.NoError(t, err)
	assert.Equal(t, int64(-9223372036854775807), m.Cents)
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
		C Money `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 75000, "b": "12.5", "c": 0.015}`), &v))
	assert.Equal(t, int64(7500000), v.A.Cents)
	assert.Equal(t, int64(1250), v.B.Cents)
	assert.Equal(t, int64(2), v.C.Cents)

	out, err := json.Marshal(Cents(2950))
	require.NoError(t, err)
	assert.Equal(t, "29.5", string(out))
}

func TestMoneyJSON_RejectsOverflow(t *testing.T) {
	for _, in := range []string{
		`{"amount": 100000000000000000}`,
		`{"amount": "92233720368547758.08"}`,
		`{"amount": -1e40}`,
	} {
		var v struct {
			Amount Money `json:"amount"`
		}
		err := json.Unmarshal([]byte(in), &v)
		assert.ErrorIs(t, err, ErrInvalidAmount, in)
		assert.True(t, v.Amount.IsZero(), in)
	}
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "-12.34", Cents(-1234).String())
	assert.Equal(t, "1.05", Sum(Units(1), Cents(5)).String())
}
