package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/models"
	"github.com/isdelr/expense-tracker-be/internal/services"
	"github.com/rs/zerolog/log"
)

// Scheduler turns due recurring entries into expenses.
type Scheduler struct {
	recurringSvc services.RecurringServiceProvider
	expenseSvc   services.ExpenseServiceProvider
	eventSvc     services.EventServiceProvider
	interval     time.Duration
	now          func() time.Time
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(recurringSvc services.RecurringServiceProvider, expenseSvc services.ExpenseServiceProvider, eventSvc services.EventServiceProvider, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		recurringSvc: recurringSvc,
		expenseSvc:   expenseSvc,
		eventSvc:     eventSvc,
		interval:     interval,
		now:          time.Now,
	}
}

// Run starts the scheduler's ticking loop and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("Starting background scheduler...")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run once immediately on start
	s.RunDue(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping background scheduler.")
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue adds an expense for every active entry whose next run has passed
// and reschedules it. It returns the number of expenses created.
func (s *Scheduler) RunDue(ctx context.Context) int {
	now := s.now().UTC()
	entries, err := s.recurringSvc.GetDueRecurring(ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to retrieve due recurring entries")
		return 0
	}

	created := 0
	for _, entry := range entries {
		if ctx.Err() != nil {
			return created
		}
		if s.runEntry(ctx, entry, now) {
			created++
		}
	}
	return created
}

func (s *Scheduler) runEntry(ctx context.Context, entry models.RecurringEntry, now time.Time) bool {
	schedule, err := services.ParseCron(entry.CronExpression)
	if err != nil {
		s.fail(ctx, entry, fmt.Errorf("invalid cron expression: %w", err))
		return false
	}

	// Advance the schedule first so a failing entry is not retried every tick.
	if err := s.recurringSvc.UpdateRecurringRunTimes(ctx, entry.ID, now, schedule.Next(now)); err != nil {
		log.Error().Err(err).Str("recurring_id", entry.ID).Msg("Scheduler: failed to update run times")
		return false
	}

	_, err = s.expenseSvc.AddExpense(ctx, entry.UserID, services.ExpenseInput{
		Amount:      entry.Amount.Float(),
		Category:    entry.Category,
		Description: entry.Description,
	})
	if err != nil {
		s.fail(ctx, entry, err)
		return false
	}

	log.Info().Str("recurring_id", entry.ID).Int64("user_id", entry.UserID).Msg("Scheduler: recurring entry applied")
	return true
}

func (s *Scheduler) fail(ctx context.Context, entry models.RecurringEntry, err error) {
	log.Error().Err(err).Str("recurring_id", entry.ID).Int64("user_id", entry.UserID).Msg("Scheduler: recurring entry failed")
	msg := fmt.Sprintf("Recurring entry '%s' failed: %v", entry.Name, err)
	if err := s.eventSvc.CreateEvent(ctx, entry.UserID, "recurring.execute.fail", services.LevelError, msg); err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to record failure event")
	}
}
