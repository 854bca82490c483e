package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/database"
	"github.com/isdelr/expense-tracker-be/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type notification struct {
	userID  int64
	action  string
	payload interface{}
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *fakeNotifier) NotifyUser(userID int64, action string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{userID: userID, action: action, payload: payload})
}

func (n *fakeNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type fakePublisher struct {
	mu        sync.Mutex
	published []models.Event
	err       error
}

func (p *fakePublisher) PublishEvent(_ context.Context, event models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return p.err
}

// ServiceTestSuite runs the services against a fresh in-memory database.
type ServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	db        *sql.DB
	publisher *fakePublisher
	notifier  *fakeNotifier
	events    *EventService
	users     *UserService
	expenses  *ExpenseService
	reports   *ReportService
	recurring *RecurringService
}

func (s *ServiceTestSuite) SetupTest() {
	db, err := database.New(":memory:")
	require.NoError(s.T(), err, "failed to create test database")
	s.ctx = context.Background()
	s.db = db
	s.publisher = &fakePublisher{}
	s.notifier = &fakeNotifier{}
	s.events = NewEventService(db, s.publisher)
	s.users = NewUserService(db, s.events)
	s.expenses = NewExpenseService(db, s.events, s.notifier)
	s.reports = NewReportService(s.expenses, s.users, s.events)
	s.recurring = NewRecurringService(db, s.events)
}

func (s *ServiceTestSuite) TearDownTest() {
	if s.db != nil {
		s.db.Close()
	}
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) register(name, email string) models.User {
	user, err := s.users.Register(s.ctx, RegisterInput{Name: name, Email: email, Password: "secret123"})
	require.NoError(s.T(), err)
	return user
}

func (s *ServiceTestSuite) add(userID int64, amount float64, category, description string) models.Expense {
	expense, err := s.expenses.AddExpense(s.ctx, userID, ExpenseInput{Amount: amount, Category: category, Description: description})
	require.NoError(s.T(), err)
	return expense
}

func (s *ServiceTestSuite) count(query string, args ...interface{}) int {
	var n int
	require.NoError(s.T(), s.db.QueryRow(query, args...).Scan(&n))
	return n
}

func (s *ServiceTestSuite) TestRegisterAndAuthenticate() {
	user := s.register("Alice", "  Alice@Example.com ")
	assert.Positive(s.T(), user.ID)
	assert.Equal(s.T(), "alice@example.com", user.Email)
	assert.Empty(s.T(), user.PasswordHash)

	var stored string
	require.NoError(s.T(), s.db.QueryRow("SELECT password_hash FROM users WHERE id = ?", user.ID).Scan(&stored))
	assert.NotEqual(s.T(), "secret123", stored)
	assert.NotContains(s.T(), stored, "secret123")

	got, err := s.users.Authenticate(s.ctx, LoginInput{Email: "ALICE@example.com", Password: "secret123"})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), user.ID, got.ID)
	assert.Empty(s.T(), got.PasswordHash)
}

func (s *ServiceTestSuite) TestAuthenticateRejectsWrongPasswords() {
	s.register("Alice", "alice@example.com")

	for _, password := range []string{"secret12", "secret1234", "Secret123", "secret124", "", " secret123"} {
		_, err := s.users.Authenticate(s.ctx, LoginInput{Email: "alice@example.com", Password: password})
		require.Error(s.T(), err, "password %q", password)
		if password == "" {
			assert.True(s.T(), apperr.Is(err, apperr.KindValidation))
			continue
		}
		assert.True(s.T(), apperr.Is(err, apperr.KindUnauthenticated), "password %q", password)
		assert.Equal(s.T(), "Invalid email or password.", apperr.PublicMessage(err))
	}
}

func (s *ServiceTestSuite) TestAuthenticateUnknownEmailMatchesWrongPassword() {
	s.register("Alice", "alice@example.com")

	_, wrongPassword := s.users.Authenticate(s.ctx, LoginInput{Email: "alice@example.com", Password: "nope-nope"})
	_, unknownEmail := s.users.Authenticate(s.ctx, LoginInput{Email: "bob@example.com", Password: "nope-nope"})

	assert.Equal(s.T(), apperr.StatusCode(wrongPassword), apperr.StatusCode(unknownEmail))
	assert.Equal(s.T(), apperr.PublicMessage(wrongPassword), apperr.PublicMessage(unknownEmail))
}

func (s *ServiceTestSuite) TestRegisterDuplicateEmail() {
	s.register("Alice", "alice@example.com")

	_, err := s.users.Register(s.ctx, RegisterInput{Name: "Other", Email: "ALICE@example.com", Password: "another1"})
	require.Error(s.T(), err)
	assert.True(s.T(), apperr.Is(err, apperr.KindConflict))
	assert.Equal(s.T(), "User already exists.", apperr.PublicMessage(err))
	assert.Equal(s.T(), 1, s.count("SELECT COUNT(*) FROM users WHERE email = ?", "alice@example.com"))
}

func (s *ServiceTestSuite) TestRegisterValidation() {
	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@example.com", Password: "secret123"}},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "secret123"}},
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "12345"}},
		{"long password", RegisterInput{Name: "A", Email: "a@example.com", Password: string(make([]byte, 73))}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.users.Register(s.ctx, tt.input)
			require.Error(s.T(), err)
			assert.True(s.T(), apperr.Is(err, apperr.KindValidation))
		})
	}
	assert.Zero(s.T(), s.count("SELECT COUNT(*) FROM users"))
}

func (s *ServiceTestSuite) TestChangePassword() {
	user := s.register("Alice", "alice@example.com")

	err := s.users.ChangePassword(s.ctx, user.ID, ChangePasswordInput{CurrentPassword: "wrong-one", NewPassword: "newsecret"})
	require.Error(s.T(), err)
	assert.True(s.T(), apperr.Is(err, apperr.KindUnauthenticated))

	require.NoError(s.T(), s.users.ChangePassword(s.ctx, user.ID, ChangePasswordInput{CurrentPassword: "secret123", NewPassword: "newsecret"}))

	_, err = s.users.Authenticate(s.ctx, LoginInput{Email: "alice@example.com", Password: "secret123"})
	assert.Error(s.T(), err)
	_, err = s.users.Authenticate(s.ctx, LoginInput{Email: "alice@example.com", Password: "newsecret"})
	assert.NoError(s.T(), err)
}

func (s *ServiceTestSuite) TestAddAndListExpenses() {
	user := s.register("Alice", "alice@example.com")

	first := s.add(user.ID, 100, models.CategoryIncome, "  Salary ")
	second := s.add(user.ID, 40.25, models.CategoryExpense, "")
	assert.Equal(s.T(), "Salary", first.Description)
	assert.Equal(s.T(), models.Cents(4025), second.Amount)

	expenses, summary, err := s.expenses.ListExpenses(s.ctx, user.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), expenses, 2)
	assert.Equal(s.T(), second.ID, expenses[0].ID, "newest first")
	assert.Equal(s.T(), first.ID, expenses[1].ID)
	assert.Equal(s.T(), models.Cents(10000), summary.TotalIncome)
	assert.Equal(s.T(), models.Cents(4025), summary.TotalExpenses)
	assert.Equal(s.T(), models.Cents(5975), summary.NetBalance())

	sent := s.notifier.all()
	require.Len(s.T(), sent, 2)
	assert.Equal(s.T(), ActionExpenseCreated, sent[0].action)
	assert.Equal(s.T(), user.ID, sent[0].userID)
}

func (s *ServiceTestSuite) TestListExpensesEmpty() {
	user := s.register("Alice", "alice@example.com")

	expenses, summary, err := s.expenses.ListExpenses(s.ctx, user.ID)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), expenses)
	assert.Empty(s.T(), expenses)
	assert.Zero(s.T(), summary.TotalIncome)
	assert.Zero(s.T(), summary.TotalExpenses)
}

func (s *ServiceTestSuite) TestAddExpenseValidation() {
	user := s.register("Alice", "alice@example.com")

	tests := []struct {
		name  string
		input ExpenseInput
	}{
		{"zero amount", ExpenseInput{Amount: 0, Category: models.CategoryExpense}},
		{"negative amount", ExpenseInput{Amount: -5, Category: models.CategoryExpense}},
		{"rounds to zero", ExpenseInput{Amount: 0.001, Category: models.CategoryExpense}},
		{"unknown category", ExpenseInput{Amount: 5, Category: "Food"}},
		{"missing category", ExpenseInput{Amount: 5}},
		{"lowercase category", ExpenseInput{Amount: 5, Category: "income"}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.expenses.AddExpense(s.ctx, user.ID, tt.input)
			require.Error(s.T(), err)
			assert.True(s.T(), apperr.Is(err, apperr.KindValidation))
		})
	}
	assert.Zero(s.T(), s.count("SELECT COUNT(*) FROM expenses"))
}

func (s *ServiceTestSuite) TestExpensesAreIsolatedPerUser() {
	alice := s.register("Alice", "alice@example.com")
	bob := s.register("Bob", "bob@example.com")

	s.add(alice.ID, 10, models.CategoryIncome, "alice")
	s.add(bob.ID, 99, models.CategoryExpense, "bob")

	expenses, summary, err := s.expenses.ListExpenses(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), expenses, 1)
	assert.Equal(s.T(), alice.ID, expenses[0].UserID)
	assert.Zero(s.T(), summary.TotalExpenses)
}

func (s *ServiceTestSuite) TestDeleteForeignAndMissingLookTheSame() {
	alice := s.register("Alice", "alice@example.com")
	bob := s.register("Bob", "bob@example.com")
	bobs := s.add(bob.ID, 25, models.CategoryExpense, "bob's")

	foreign := s.expenses.DeleteExpense(s.ctx, alice.ID, bobs.ID)
	missing := s.expenses.DeleteExpense(s.ctx, alice.ID, 424242)

	require.Error(s.T(), foreign)
	require.Error(s.T(), missing)
	assert.Equal(s.T(), apperr.StatusCode(missing), apperr.StatusCode(foreign))
	assert.Equal(s.T(), "Expense not found.", apperr.PublicMessage(foreign))
	assert.Equal(s.T(), apperr.PublicMessage(missing), apperr.PublicMessage(foreign))
	assert.Equal(s.T(), 1, s.count("SELECT COUNT(*) FROM expenses WHERE id = ?", bobs.ID))
}

func (s *ServiceTestSuite) TestDeleteExpense() {
	user := s.register("Alice", "alice@example.com")
	expense := s.add(user.ID, 5, models.CategoryExpense, "")

	require.NoError(s.T(), s.expenses.DeleteExpense(s.ctx, user.ID, expense.ID))
	assert.Zero(s.T(), s.count("SELECT COUNT(*) FROM expenses"))

	err := s.expenses.DeleteExpense(s.ctx, user.ID, expense.ID)
	assert.True(s.T(), apperr.Is(err, apperr.KindNotFound))

	sent := s.notifier.all()
	require.Len(s.T(), sent, 2)
	assert.Equal(s.T(), ActionExpenseDeleted, sent[1].action)
}

func (s *ServiceTestSuite) TestDeleteUserCascades() {
	user := s.register("Alice", "alice@example.com")
	s.add(user.ID, 5, models.CategoryExpense, "")
	_, err := s.recurring.CreateRecurring(s.ctx, user.ID, RecurringInput{
		Name: "Rent", CronExpression: "0 9 1 * *", Amount: 800, Category: models.CategoryExpense,
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.users.DeleteUser(s.ctx, user.ID))
	assert.Zero(s.T(), s.count("SELECT COUNT(*) FROM expenses"))
	assert.Zero(s.T(), s.count("SELECT COUNT(*) FROM recurring_entries"))
	assert.Zero(s.T(), s.count("SELECT COUNT(*) FROM events"))

	assert.True(s.T(), apperr.Is(s.users.DeleteUser(s.ctx, user.ID), apperr.KindNotFound))
}

func (s *ServiceTestSuite) TestExportExpenses() {
	alice := s.register("Alice", "alice@example.com")
	bob := s.register("Bob", "bob@example.com")

	_, err := s.reports.ExportExpenses(s.ctx, alice.ID)
	require.Error(s.T(), err)
	assert.True(s.T(), apperr.Is(err, apperr.KindNotFound))
	assert.Equal(s.T(), "No expenses found for this user.", apperr.PublicMessage(err))

	s.add(alice.ID, 12.5, models.CategoryIncome, "alice-only")
	s.add(bob.ID, 7, models.CategoryExpense, "bob-secret")

	doc, err := s.reports.ExportExpenses(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "application/pdf", doc.ContentType)
	assert.Regexp(s.T(), `^expense_report_\d+\.pdf$`, doc.FileName)
	assert.Contains(s.T(), string(doc.Content), "alice-only")
	assert.NotContains(s.T(), string(doc.Content), "bob-secret")
}

func (s *ServiceTestSuite) TestEventsAreRecordedAndPublished() {
	user := s.register("Alice", "alice@example.com")
	s.add(user.ID, 5, models.CategoryExpense, "")

	events, err := s.events.GetRecentEvents(s.ctx, user.ID, 0)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 2)
	assert.Equal(s.T(), "expense.add", events[0].Type)
	assert.Equal(s.T(), "auth.register", events[1].Type)

	s.publisher.mu.Lock()
	assert.Len(s.T(), s.publisher.published, 2)
	s.publisher.mu.Unlock()

	other := s.register("Bob", "bob@example.com")
	events, err = s.events.GetRecentEvents(s.ctx, other.ID, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), events, 1)
	assert.Equal(s.T(), other.ID, events[0].UserID)
}

func (s *ServiceTestSuite) TestPublisherFailureDoesNotFailEvent() {
	s.publisher.err = errors.New("broker down")
	user := s.register("Alice", "alice@example.com")

	events, err := s.events.GetRecentEvents(s.ctx, user.ID, 5)
	require.NoError(s.T(), err)
	assert.Len(s.T(), events, 1)
}

func (s *ServiceTestSuite) TestRecurringEntries() {
	alice := s.register("Alice", "alice@example.com")
	bob := s.register("Bob", "bob@example.com")

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.recurring.now = func() time.Time { return now }

	entry, err := s.recurring.CreateRecurring(s.ctx, alice.ID, RecurringInput{
		Name: "Rent", CronExpression: "0 9 1 * *", Amount: 800, Category: models.CategoryExpense,
	})
	require.NoError(s.T(), err)
	assert.True(s.T(), entry.IsActive)
	require.NotNil(s.T(), entry.NextRunAt)
	assert.Equal(s.T(), time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), *entry.NextRunAt)

	inactive := false
	_, err = s.recurring.CreateRecurring(s.ctx, alice.ID, RecurringInput{
		Name: "Paused", CronExpression: "@daily", Amount: 1, Category: models.CategoryIncome, IsActive: &inactive,
	})
	require.NoError(s.T(), err)

	list, err := s.recurring.GetRecurringForUser(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), list, 2)

	list, err = s.recurring.GetRecurringForUser(s.ctx, bob.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), list)

	due, err := s.recurring.GetDueRecurring(s.ctx, now)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), due)

	due, err = s.recurring.GetDueRecurring(s.ctx, now.AddDate(0, 1, 0))
	require.NoError(s.T(), err)
	require.Len(s.T(), due, 1)
	assert.Equal(s.T(), entry.ID, due[0].ID)

	next := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(s.T(), s.recurring.UpdateRecurringRunTimes(s.ctx, entry.ID, *entry.NextRunAt, next))
	due, err = s.recurring.GetDueRecurring(s.ctx, now.AddDate(0, 1, 0))
	require.NoError(s.T(), err)
	assert.Empty(s.T(), due)

	err = s.recurring.DeleteRecurring(s.ctx, bob.ID, entry.ID)
	assert.True(s.T(), apperr.Is(err, apperr.KindNotFound))
	require.NoError(s.T(), s.recurring.DeleteRecurring(s.ctx, alice.ID, entry.ID))
}

func (s *ServiceTestSuite) TestRecurringRejectsBadCron() {
	user := s.register("Alice", "alice@example.com")

	_, err := s.recurring.CreateRecurring(s.ctx, user.ID, RecurringInput{
		Name: "Broken", CronExpression: "every tuesday", Amount: 5, Category: models.CategoryExpense,
	})
	require.Error(s.T(), err)
	assert.True(s.T(), apperr.Is(err, apperr.KindValidation))
	assert.Zero(s.T(), s.count("SELECT COUNT(*) FROM recurring_entries"))
}
