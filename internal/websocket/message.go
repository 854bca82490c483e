package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Actions understood by clients.
const (
	ActionPing  = "ping"
	ActionPong  = "pong"
	ActionError = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewMessage encodes an action and its payload for sending.
func NewMessage(action string, payload interface{}) []byte {
	data, err := json.Marshal(Message{Action: action, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("action", action).Msg("Failed to encode websocket message")
		return NewErrorMessage("failed to encode message")
	}
	return data
}

// NewErrorMessage encodes an error notice for a single client.
func NewErrorMessage(message string) []byte {
	data, _ := json.Marshal(Message{Action: ActionError, Payload: map[string]string{"message": message}})
	return data
}
