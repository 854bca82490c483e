package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/expense-tracker-be/internal/services"
)

// RecurringHandler handles HTTP requests for recurring entries.
type RecurringHandler struct {
	service services.RecurringServiceProvider
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(service services.RecurringServiceProvider) *RecurringHandler {
	return &RecurringHandler{service: service}
}

// List handles the request to get all of the caller's recurring entries.
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	entries, err := h.service.GetRecurringForUser(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Create handles the request to create a new recurring entry.
func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var input services.RecurringInput
	if err := decodeJSON(w, r, &input); err != nil {
		WriteError(w, r, err)
		return
	}

	entry, err := h.service.CreateRecurring(r.Context(), id, input)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Delete handles the request to delete a recurring entry.
func (h *RecurringHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	if err := h.service.DeleteRecurring(r.Context(), id, chi.URLParam(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
