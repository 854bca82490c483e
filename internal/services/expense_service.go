package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/models"
)

// Live update actions sent to the owner's connected clients.
const (
	ActionExpenseCreated = "expense.created"
	ActionExpenseDeleted = "expense.deleted"
)

// ExpenseInput is the payload for adding an expense.
type ExpenseInput struct {
	Amount      float64 `json:"amount" validate:"gt=0,lte=1000000000"`
	Category    string  `json:"category" validate:"required,oneof=Income Expense"`
	Description string  `json:"description" validate:"max=255"`
}

// Notifier pushes a message to every live connection of one user.
type Notifier interface {
	NotifyUser(userID int64, action string, payload interface{})
}

// ExpenseServiceProvider defines the interface for expense services.
// Every method is scoped to the owning user's ID.
type ExpenseServiceProvider interface {
	AddExpense(ctx context.Context, userID int64, input ExpenseInput) (models.Expense, error)
	DeleteExpense(ctx context.Context, userID, expenseID int64) error
	ListExpenses(ctx context.Context, userID int64) ([]models.Expense, models.Summary, error)
}

// ExpenseService provides business logic for expense management.
type ExpenseService struct {
	db       *sql.DB
	events   EventServiceProvider
	notifier Notifier
	now      func() time.Time
}

// NewExpenseService creates a new ExpenseService. notifier may be nil.
func NewExpenseService(db *sql.DB, events EventServiceProvider, notifier Notifier) *ExpenseService {
	return &ExpenseService{db: db, events: events, notifier: notifier, now: time.Now}
}

// AddExpense validates the input and inserts a new expense owned by userID.
func (s *ExpenseService) AddExpense(ctx context.Context, userID int64, input ExpenseInput) (models.Expense, error) {
	input.Description = strings.TrimSpace(input.Description)
	if err := validateInput(input); err != nil {
		return models.Expense{}, err
	}
	amount := models.CentsFromFloat(input.Amount)
	if amount <= 0 {
		return models.Expense{}, apperr.Validation("amount must be at least 0.01.")
	}

	expense := models.Expense{
		UserID:      userID,
		Amount:      amount,
		Category:    input.Category,
		Description: input.Description,
		CreatedAt:   s.now().UTC(),
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO expenses (user_id, amount_cents, category, description, created_at) VALUES (?, ?, ?, ?, ?)",
		expense.UserID, int64(expense.Amount), expense.Category, nullString(expense.Description), expense.CreatedAt,
	)
	if err != nil {
		return models.Expense{}, apperr.Internal(err)
	}
	if expense.ID, err = result.LastInsertId(); err != nil {
		return models.Expense{}, apperr.Internal(err)
	}

	recordEvent(ctx, s.events, userID, "expense.add", LevelInfo,
		fmt.Sprintf("%s of %s added.", expense.Category, expense.Amount))
	s.notify(userID, ActionExpenseCreated, expense)
	return expense, nil
}

// DeleteExpense removes one expense. The delete is filtered by owner, so a
// missing ID and another user's ID both yield the same not-found error.
func (s *ExpenseService) DeleteExpense(ctx context.Context, userID, expenseID int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ? AND user_id = ?", expenseID, userID)
	if err != nil {
		return apperr.Internal(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperr.Internal(err)
	}
	if affected == 0 {
		return apperr.NotFound("Expense not found.")
	}

	recordEvent(ctx, s.events, userID, "expense.delete", LevelWarn, fmt.Sprintf("Expense #%d deleted.", expenseID))
	s.notify(userID, ActionExpenseDeleted, map[string]int64{"id": expenseID})
	return nil
}

// ListExpenses returns the user's expenses, newest first, with their totals.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, models.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, category, description, created_at
		FROM expenses WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, models.Summary{}, apperr.Internal(err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		var amount int64
		var description sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &amount, &e.Category, &description, &e.CreatedAt); err != nil {
			return nil, models.Summary{}, apperr.Internal(err)
		}
		e.Amount = models.Cents(amount)
		e.Description = description.String
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Summary{}, apperr.Internal(err)
	}
	return expenses, models.Summarize(expenses), nil
}

func (s *ExpenseService) notify(userID int64, action string, payload interface{}) {
	if s.notifier != nil {
		s.notifier.NotifyUser(userID, action, payload)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
