package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/models"
	"github.com/isdelr/expense-tracker-be/internal/services"
)

// ExpenseHandler handles HTTP requests for the caller's expenses.
type ExpenseHandler struct {
	service services.ExpenseServiceProvider
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(service services.ExpenseServiceProvider) *ExpenseHandler {
	return &ExpenseHandler{service: service}
}

type expenseList struct {
	Expenses      []models.Expense `json:"expenses"`
	TotalIncome   models.Cents     `json:"totalIncome"`
	TotalExpenses models.Cents     `json:"totalExpenses"`
}

// Create adds an expense owned by the caller.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var input services.ExpenseInput
	if err := decodeJSON(w, r, &input); err != nil {
		WriteError(w, r, err)
		return
	}

	expense, err := h.service.AddExpense(r.Context(), id, input)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Expense added successfully.",
		"expense": expense,
	})
}

// List returns the caller's expenses with their totals.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	expenses, summary, err := h.service.ListExpenses(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, expenseList{
		Expenses:      expenses,
		TotalIncome:   summary.TotalIncome,
		TotalExpenses: summary.TotalExpenses,
	})
}

// Delete removes one of the caller's expenses.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	// A malformed ID cannot name any row, so it gets the same answer as a
	// missing or foreign one.
	expenseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || expenseID <= 0 {
		WriteError(w, r, apperr.NotFound("Expense not found."))
		return
	}

	if err := h.service.DeleteExpense(r.Context(), id, expenseID); err != nil {
		WriteError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Expense deleted successfully.")
}
