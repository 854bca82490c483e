package models

import "time"

// Event represents an entry in a user's activity log.
type Event struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`  // e.g., "expense.add", "auth.login"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}
