package amqp

import (
	"encoding/json"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/models"
)

// EventMessage is the body published for every recorded activity event.
type EventMessage struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewEventMessage builds a message from a stored event.
func NewEventMessage(event models.Event) *EventMessage {
	return &EventMessage{
		ID:        event.ID,
		UserID:    event.UserID,
		Type:      event.Type,
		Level:     event.Level,
		Message:   event.Message,
		CreatedAt: event.CreatedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON creates a message from JSON bytes
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
