package handlers

import (
	"net/http"
	"strconv"

	"github.com/isdelr/expense-tracker-be/internal/services"
)

// ReportHandler serves downloadable expense reports.
type ReportHandler struct {
	service services.ReportServiceProvider
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(service services.ReportServiceProvider) *ReportHandler {
	return &ReportHandler{service: service}
}

// Export streams the caller's expenses as a PDF attachment.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	doc, err := h.service.ExportExpenses(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+doc.FileName)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Content)
}
