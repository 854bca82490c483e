package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/models"
	"github.com/robfig/cron/v3"
)

// RecurringInput is the payload for creating a recurring entry.
type RecurringInput struct {
	Name           string  `json:"name" validate:"required,max=100"`
	CronExpression string  `json:"cronExpression" validate:"required"`
	Amount         float64 `json:"amount" validate:"gt=0,lte=1000000000"`
	Category       string  `json:"category" validate:"required,oneof=Income Expense"`
	Description    string  `json:"description" validate:"max=255"`
	IsActive       *bool   `json:"isActive"`
}

// RecurringServiceProvider defines the interface for recurring entry services.
type RecurringServiceProvider interface {
	CreateRecurring(ctx context.Context, userID int64, input RecurringInput) (models.RecurringEntry, error)
	GetRecurringForUser(ctx context.Context, userID int64) ([]models.RecurringEntry, error)
	DeleteRecurring(ctx context.Context, userID int64, id string) error
	GetDueRecurring(ctx context.Context, now time.Time) ([]models.RecurringEntry, error)
	UpdateRecurringRunTimes(ctx context.Context, id string, lastRun, nextRun time.Time) error
}

// RecurringService provides business logic for recurring entries.
type RecurringService struct {
	db     *sql.DB
	events EventServiceProvider
	now    func() time.Time
}

// NewRecurringService creates a new RecurringService.
func NewRecurringService(db *sql.DB, events EventServiceProvider) *RecurringService {
	return &RecurringService{db: db, events: events, now: time.Now}
}

// ParseCron parses a standard five-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	return cron.ParseStandard(expr)
}

const recurringColumns = `id, user_id, name, cron_expression, amount_cents, category, description,
	is_active, last_run_at, next_run_at, created_at`

// CreateRecurring validates and stores a new recurring entry for userID.
func (s *RecurringService) CreateRecurring(ctx context.Context, userID int64, input RecurringInput) (models.RecurringEntry, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.CronExpression = strings.TrimSpace(input.CronExpression)
	input.Description = strings.TrimSpace(input.Description)
	if err := validateInput(input); err != nil {
		return models.RecurringEntry{}, err
	}
	amount := models.CentsFromFloat(input.Amount)
	if amount <= 0 {
		return models.RecurringEntry{}, apperr.Validation("amount must be at least 0.01.")
	}

	schedule, err := ParseCron(input.CronExpression)
	if err != nil {
		return models.RecurringEntry{}, apperr.Validation(fmt.Sprintf("invalid cron expression: %v", err))
	}

	now := s.now().UTC()
	nextRun := schedule.Next(now).UTC()
	entry := models.RecurringEntry{
		ID:             uuid.New().String(),
		UserID:         userID,
		Name:           input.Name,
		CronExpression: input.CronExpression,
		Amount:         amount,
		Category:       input.Category,
		Description:    input.Description,
		IsActive:       input.IsActive == nil || *input.IsActive,
		NextRunAt:      &nextRun,
		CreatedAt:      now,
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO recurring_entries (id, user_id, name, cron_expression, amount_cents, category, description, is_active, next_run_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Name, entry.CronExpression, int64(entry.Amount), entry.Category,
		nullString(entry.Description), entry.IsActive, nextRun, entry.CreatedAt,
	)
	if err != nil {
		return models.RecurringEntry{}, apperr.Internal(err)
	}

	recordEvent(ctx, s.events, userID, "recurring.create", LevelInfo, fmt.Sprintf("Recurring entry '%s' created.", entry.Name))
	return entry, nil
}

// GetRecurringForUser retrieves all recurring entries owned by userID, newest first.
func (s *RecurringService) GetRecurringForUser(ctx context.Context, userID int64) ([]models.RecurringEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recurringColumns+" FROM recurring_entries WHERE user_id = ? ORDER BY created_at DESC, rowid DESC", userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()
	return scanRecurringEntries(rows)
}

// DeleteRecurring removes one of the user's recurring entries.
func (s *RecurringService) DeleteRecurring(ctx context.Context, userID int64, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM recurring_entries WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("Recurring entry not found.")
	}

	recordEvent(ctx, s.events, userID, "recurring.delete", LevelWarn, "Recurring entry deleted.")
	return nil
}

// GetDueRecurring returns every active entry whose next run is at or before now.
func (s *RecurringService) GetDueRecurring(ctx context.Context, now time.Time) ([]models.RecurringEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+recurringColumns+" FROM recurring_entries WHERE is_active = 1 AND next_run_at IS NOT NULL")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	active, err := scanRecurringEntries(rows)
	if err != nil {
		return nil, err
	}
	due := active[:0]
	for _, entry := range active {
		if !entry.NextRunAt.After(now) {
			due = append(due, entry)
		}
	}
	return due, nil
}

// UpdateRecurringRunTimes records a run and schedules the next one.
func (s *RecurringService) UpdateRecurringRunTimes(ctx context.Context, id string, lastRun, nextRun time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE recurring_entries SET last_run_at = ?, next_run_at = ? WHERE id = ?",
		lastRun.UTC(), nextRun.UTC(), id,
	)
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// scanRecurringEntries is a helper function to scan multiple rows into a slice of entries.
func scanRecurringEntries(rows *sql.Rows) ([]models.RecurringEntry, error) {
	entries := []models.RecurringEntry{}
	for rows.Next() {
		entry, err := scanRecurringEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return entries, nil
}

// scanRecurringEntry is a helper function to scan a single row into a RecurringEntry.
func scanRecurringEntry(scanner interface{ Scan(...interface{}) error }) (models.RecurringEntry, error) {
	var entry models.RecurringEntry
	var amount int64
	var description sql.NullString
	var lastRun, nextRun sql.NullTime
	err := scanner.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Name,
		&entry.CronExpression,
		&amount,
		&entry.Category,
		&description,
		&entry.IsActive,
		&lastRun,
		&nextRun,
		&entry.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.RecurringEntry{}, apperr.NotFound("Recurring entry not found.")
		}
		return models.RecurringEntry{}, apperr.Internal(err)
	}
	entry.Amount = models.Cents(amount)
	entry.Description = description.String
	if lastRun.Valid {
		t := lastRun.Time
		entry.LastRunAt = &t
	}
	if nextRun.Valid {
		t := nextRun.Time
		entry.NextRunAt = &t
	}
	return entry, nil
}
