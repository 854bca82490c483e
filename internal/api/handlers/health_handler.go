package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/isdelr/expense-tracker-be/internal/database"
	"github.com/isdelr/expense-tracker-be/internal/monitoring"
	"github.com/rs/zerolog/hlog"
)

// StatsSource provides the latest host stats sample.
type StatsSource interface {
	Latest() (monitoring.HostStats, bool)
}

// HealthHandler reports liveness of the API and its database.
type HealthHandler struct {
	db    *sql.DB
	stats StatsSource
}

// NewHealthHandler creates a new HealthHandler. stats may be nil.
func NewHealthHandler(db *sql.DB, stats StatsSource) *HealthHandler {
	return &HealthHandler{db: db, stats: stats}
}

type healthResponse struct {
	Status            string   `json:"status"`
	Database          string   `json:"database"`
	UptimeSeconds     *uint64  `json:"uptimeSeconds,omitempty"`
	MemoryUsedPercent *float64 `json:"memoryUsedPercent,omitempty"`
	DatabaseBytes     *int64   `json:"databaseBytes,omitempty"`
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Database: "ok"}
	status := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := database.Ping(ctx, h.db); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Health check: database unreachable")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	}

	if h.stats != nil {
		if stats, ok := h.stats.Latest(); ok {
			resp.UptimeSeconds = &stats.UptimeSeconds
			resp.MemoryUsedPercent = &stats.MemoryUsedPercent
			resp.DatabaseBytes = &stats.DatabaseBytes
		}
	}

	writeJSON(w, status, resp)
}
