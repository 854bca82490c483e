package models

import "time"

// RecurringEntry is a user-owned rule that adds an expense every time its
// cron expression fires.
type RecurringEntry struct {
	ID             string     `json:"id"`
	UserID         int64      `json:"userId"`
	Name           string     `json:"name"`
	CronExpression string     `json:"cronExpression"` // e.g., "0 9 1 * *" for the 1st of every month
	Amount         Cents      `json:"amount"`
	Category       string     `json:"category"`
	Description    string     `json:"description,omitempty"`
	IsActive       bool       `json:"isActive"`
	LastRunAt      *time.Time `json:"lastRunAt"`
	NextRunAt      *time.Time `json:"nextRunAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}
