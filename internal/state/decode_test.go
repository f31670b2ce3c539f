package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func TestDecodeAction(t *testing.T) {
	raw := `{"type":"expense.add","payload":{"category":"Food","description":"Groceries","amount":"42.10","dueDate":"2025-03-02","status":"Paid"}}`

	a, err := DecodeAction([]byte(raw))
	require.NoError(t, err)
	require.Equal(t, KindExpenseAdd, a.Kind())

	exp, ok := a.(*AddExpense)
	require.True(t, ok)
	assert.Equal(t, core.Cents(4210), exp.Amount)
	assert.Equal(t, core.Paid, exp.Status)
}

func TestDecodeAction_Nested(t *testing.T) {
	raw := `{"type":"card.transaction.add","payload":{"cardId":"visa","transaction":{"amount":19.99,"description":"Book","date":"2025-03-04"}}}`

	a, err := DecodeAction([]byte(raw))
	require.NoError(t, err)

	tx := a.(*AddCardTransaction)
	assert.Equal(t, "visa", tx.CardID)
	assert.Equal(t, core.Cents(1999), tx.Transaction.Amount)
}

func TestDecodeAction_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{`},
		{"unknown type", `{"type":"budget.add","payload":{}}`},
		{"missing payload", `{"type":"note.add"}`},
		{"bad payload", `{"type":"income.add","payload":{"expectedAmount":"abc"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeAction([]byte(tt.raw))
			assert.Error(t, err)
		})
	}

	_, err := DecodeAction([]byte(`{"type":"budget.add","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestEncodeRoundTrip(t *testing.T) {
	env, err := Encode(DeleteNote{ID: "n1"})
	require.NoError(t, err)
	assert.Equal(t, KindNoteDelete, env.Type)

	a, err := env.Action()
	require.NoError(t, err)
	assert.Equal(t, &DeleteNote{ID: "n1"}, a)
}

func TestKindsCoversEveryAction(t *testing.T) {
	assert.Len(t, Kinds(), 21)
}
