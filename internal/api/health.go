package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

// HealthHandler reports liveness and readiness.
type HealthHandler struct {
	DB *sql.DB
}

// Live handles GET /healthz.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz. It fails while the database is unreachable.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.PingContext(ctx); err != nil {
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": "database unreachable"})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ready"})
}
