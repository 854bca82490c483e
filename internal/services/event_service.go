package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/models"
	"github.com/rs/zerolog/log"
)

// Event levels.
const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

const (
	defaultEventLimit = 20
	maxEventLimit     = 100
)

// EventPublisher mirrors recorded events to an external consumer.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event models.Event) error
}

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(ctx context.Context, userID int64, eventType, level, message string) error
	GetRecentEvents(ctx context.Context, userID int64, limit int) ([]models.Event, error)
}

// EventService provides business logic for the per-user activity log.
type EventService struct {
	db        *sql.DB
	publisher EventPublisher
	now       func() time.Time
}

// NewEventService creates a new EventService. publisher may be nil.
func NewEventService(db *sql.DB, publisher EventPublisher) *EventService {
	return &EventService{db: db, publisher: publisher, now: time.Now}
}

// CreateEvent logs a new event for the user to the database.
func (s *EventService) CreateEvent(ctx context.Context, userID int64, eventType, level, message string) error {
	event := models.Event{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      eventType,
		Level:     level,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (id, user_id, type, level, message, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		event.ID, event.UserID, event.Type, event.Level, event.Message, event.CreatedAt,
	)
	if err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			log.Warn().Err(err).Str("event_type", event.Type).Msg("Failed to publish event")
		}
	}
	return nil
}

// GetRecentEvents retrieves the user's most recent events, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, userID int64, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, type, level, message, created_at FROM events WHERE user_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		userID, limit,
	)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.UserID, &event.Type, &event.Level, &event.Message, &event.CreatedAt); err != nil {
			return nil, apperr.Internal(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Internal(err)
	}
	return events, nil
}

// recordEvent writes an activity event; a failure is logged and otherwise ignored.
func recordEvent(ctx context.Context, events EventServiceProvider, userID int64, eventType, level, message string) {
	if events == nil {
		return
	}
	if err := events.CreateEvent(ctx, userID, eventType, level, message); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("event_type", eventType).Msg("Failed to record event")
	}
}
