package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/expense-tracker-be/internal/services"
)

// EventHandler handles HTTP requests for the caller's activity log.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get recent activity/events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	// The service applies the default and the cap.
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.service.GetRecentEvents(r.Context(), id, limit)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
