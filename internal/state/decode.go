package state

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire form of an action: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var factories = map[Kind]func() Action{
	KindIncomeAdd:               func() Action { return new(AddIncome) },
	KindIncomeUpdate:            func() Action { return new(UpdateIncome) },
	KindIncomeDelete:            func() Action { return new(DeleteIncome) },
	KindExpenseAdd:              func() Action { return new(AddExpense) },
	KindExpenseUpdate:           func() Action { return new(UpdateExpense) },
	KindExpenseDelete:           func() Action { return new(DeleteExpense) },
	KindCardAdd:                 func() Action { return new(AddCard) },
	KindCardDelete:              func() Action { return new(DeleteCard) },
	KindCardTransactionAdd:      func() Action { return new(AddCardTransaction) },
	KindCardTransactionDelete:   func() Action { return new(DeleteCardTransaction) },
	KindMasterAdd:               func() Action { return new(AddMasterExpense) },
	KindMasterDelete:            func() Action { return new(DeleteMasterExpense) },
	KindMasterTransactionAdd:    func() Action { return new(AddMasterTransaction) },
	KindMasterTransactionDelete: func() Action { return new(DeleteMasterTransaction) },
	KindAssetUpsert:             func() Action { return new(UpsertAsset) },
	KindAssetDelete:             func() Action { return new(DeleteAsset) },
	KindLiabilityUpsert:         func() Action { return new(UpsertLiability) },
	KindLiabilityDelete:         func() Action { return new(DeleteLiability) },
	KindNoteAdd:                 func() Action { return new(AddNote) },
	KindNoteDelete:              func() Action { return new(DeleteNote) },
	KindCategoryAdd:             func() Action { return new(AddCategory) },
}

// DecodeAction parses an action envelope.
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}
	return env.Action()
}

// Action decodes the payload according to Type.
func (e Envelope) Action() (Action, error) {
	factory, ok := factories[e.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, e.Type)
	}
	a := factory()
	if len(e.Payload) == 0 {
		return nil, fmt.Errorf("decode %s: missing payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, a); err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Type, err)
	}
	return a, nil
}

// Encode wraps a in an envelope.
func Encode(a Action) (Envelope, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", a.Kind(), err)
	}
	return Envelope{Type: a.Kind(), Payload: payload}, nil
}

// Kinds lists every supported action type.
func Kinds() []Kind {
	out := make([]Kind, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	return out
}
