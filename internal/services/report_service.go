package services

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/report"
)

// Document is a rendered report ready to be served as a download.
type Document struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ReportServiceProvider defines the interface for report services.
type ReportServiceProvider interface {
	ExportExpenses(ctx context.Context, userID int64) (Document, error)
}

// ReportService renders a user's expenses into a downloadable document.
type ReportService struct {
	expenses ExpenseServiceProvider
	users    UserServiceProvider
	events   EventServiceProvider
	now      func() time.Time
}

// NewReportService creates a new ReportService.
func NewReportService(expenses ExpenseServiceProvider, users UserServiceProvider, events EventServiceProvider) *ReportService {
	return &ReportService{expenses: expenses, users: users, events: events, now: time.Now}
}

// ExportExpenses renders every expense owned by userID. A user with no
// expenses gets a not-found error rather than an empty report.
func (s *ReportService) ExportExpenses(ctx context.Context, userID int64) (Document, error) {
	expenses, summary, err := s.expenses.ListExpenses(ctx, userID)
	if err != nil {
		return Document{}, err
	}
	if len(expenses) == 0 {
		return Document{}, apperr.NotFound("No expenses found for this user.")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return Document{}, err
	}

	generatedAt := s.now()
	content, err := report.Render(report.Data{
		OwnerName:   user.Name,
		Expenses:    expenses,
		Summary:     summary,
		GeneratedAt: generatedAt,
	})
	if err != nil {
		return Document{}, apperr.Internal(err)
	}

	recordEvent(ctx, s.events, userID, "report.export", LevelInfo,
		fmt.Sprintf("Exported %d expenses to PDF.", len(expenses)))
	return Document{
		FileName:    report.FileName(generatedAt),
		ContentType: report.ContentType,
		Content:     content,
	}, nil
}
