package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/database"
	"github.com/isdelr/expense-tracker-be/internal/models"
	"github.com/isdelr/expense-tracker-be/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schedulerFixture struct {
	scheduler *Scheduler
	users     *services.UserService
	expenses  *services.ExpenseService
	recurring *services.RecurringService
	events    *services.EventService
}

func newSchedulerFixture(t *testing.T) schedulerFixture {
	t.Helper()
	db, err := database.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	events := services.NewEventService(db, nil)
	expenses := services.NewExpenseService(db, events, nil)
	recurring := services.NewRecurringService(db, events)
	return schedulerFixture{
		scheduler: NewScheduler(recurring, expenses, events, time.Minute),
		users:     services.NewUserService(db, events),
		expenses:  expenses,
		recurring: recurring,
		events:    events,
	}
}

func TestSchedulerRunsDueEntriesOnce(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	user, err := f.users.Register(ctx, services.RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "secret123"})
	require.NoError(t, err)

	entry, err := f.recurring.CreateRecurring(ctx, user.ID, services.RecurringInput{
		Name: "Gym", CronExpression: "@hourly", Amount: 12.34, Category: models.CategoryExpense, Description: "membership",
	})
	require.NoError(t, err)

	// Nothing is due yet.
	assert.Zero(t, f.scheduler.RunDue(ctx))

	f.scheduler.now = func() time.Time { return entry.NextRunAt.Add(time.Second) }
	assert.Equal(t, 1, f.scheduler.RunDue(ctx))
	assert.Zero(t, f.scheduler.RunDue(ctx), "entry was rescheduled")

	expenses, summary, err := f.expenses.ListExpenses(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, models.Cents(1234), expenses[0].Amount)
	assert.Equal(t, "membership", expenses[0].Description)
	assert.Equal(t, models.Cents(1234), summary.TotalExpenses)

	list, err := f.recurring.GetRecurringForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastRunAt)
	require.NotNil(t, list[0].NextRunAt)
	assert.True(t, list[0].NextRunAt.After(*list[0].LastRunAt))
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.scheduler.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestStatSampler(t *testing.T) {
	sampler := NewStatSampler(":memory:", time.Minute)
	_, ok := sampler.Latest()
	assert.False(t, ok)

	sampler.Sample(context.Background())
	stats, ok := sampler.Latest()
	if !ok {
		t.Skip("host stats unavailable in this environment")
	}
	assert.Zero(t, stats.DatabaseBytes)
	assert.GreaterOrEqual(t, stats.MemoryUsedPercent, 0.0)
	assert.False(t, stats.SampledAt.IsZero())
}
