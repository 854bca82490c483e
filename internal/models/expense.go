package models

import "time"

// Accepted expense categories.
const (
	CategoryIncome  = "Income"
	CategoryExpense = "Expense"
)

// Expense is a single income or outflow entry owned by exactly one user.
type Expense struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Amount      Cents     `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Summary holds the per-category totals of a set of expenses.
type Summary struct {
	TotalIncome   Cents `json:"totalIncome"`
	TotalExpenses Cents `json:"totalExpenses"`
}

// NetBalance is income minus expenses. It is never persisted.
func (s Summary) NetBalance() Cents {
	return s.TotalIncome - s.TotalExpenses
}

// Summarize totals the amounts of each category.
func Summarize(expenses []Expense) Summary {
	var s Summary
	for _, e := range expenses {
		switch e.Category {
		case CategoryIncome:
			s.TotalIncome += e.Amount
		case CategoryExpense:
			s.TotalExpenses += e.Amount
		}
	}
	return s
}
