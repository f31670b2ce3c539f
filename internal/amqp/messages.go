package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType selects the worker handler.
type MessageType string

const (
	// TypeSnapshotChanged is published after a profile snapshot is saved.
	TypeSnapshotChanged MessageType = "snapshot.changed"
	// TypeForecastRequested asks the worker to compute and store a forecast.
	TypeForecastRequested MessageType = "forecast.requested"
)

// Message is a lightweight notification. It carries the profile and
// version only; consumers load the snapshot from storage.
type Message struct {
	Type      MessageType `json:"type"`
	Profile   string      `json:"profile"`
	Version   int64       `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewSnapshotChanged(profile string, version int64) *Message {
	return &Message{
		Type:      TypeSnapshotChanged,
		Profile:   profile,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func NewForecastRequested(profile string) *Message {
	return &Message{
		Type:      TypeForecastRequested,
		Profile:   profile,
		Timestamp: time.Now(),
	}
}

func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON decodes and validates a message body.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case TypeSnapshotChanged, TypeForecastRequested:
	default:
		return nil, fmt.Errorf("unknown message type %q", msg.Type)
	}
	if msg.Profile == "" {
		return nil, fmt.Errorf("message without profile")
	}
	return &msg, nil
}
