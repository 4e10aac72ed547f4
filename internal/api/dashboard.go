package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/query"
)

// DashboardHandler serves read-only reports. A failing report is logged and
// answered with an empty section, never an error status.
type DashboardHandler struct {
	Reader *query.Reader
}

func (h *DashboardHandler) section(w http.ResponseWriter, r *http.Request, name string, v, empty any, err error) {
	if err != nil {
		slog.Warn("dashboard section failed",
			"section", name,
			"request_id", RequestID(r.Context()),
			"error", err,
		)
		w.Header().Set("X-Partial-Content", "true")
		v = empty
	}
	jsonResponse(w, http.StatusOK, v)
}

// Overview handles GET /api/dashboard.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.Reader.Overview(r.Context()))
}

// Stats handles GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	v, err := h.Reader.Stats(r.Context())
	h.section(w, r, "stats", v, &query.Stats{}, err)
}

// Trends handles GET /api/dashboard/trends?days=.
func (h *DashboardHandler) Trends(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Reader.Trends(r.Context(), days)
	h.section(w, r, "trends", v, []query.TrendPoint{}, err)
}

// PopularBooks handles GET /api/dashboard/popular-books?limit=.
func (h *DashboardHandler) PopularBooks(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Reader.PopularBooks(r.Context(), limit)
	h.section(w, r, "popular_books", v, []query.PopularBook{}, err)
}

// PatronActivity handles GET /api/dashboard/patron-activity?limit=.
func (h *DashboardHandler) PatronActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Reader.PatronActivity(r.Context(), limit)
	h.section(w, r, "patron_activity", v, []query.PatronActivity{}, err)
}

// RecentActivity handles GET /api/dashboard/recent-activity?limit=.
func (h *DashboardHandler) RecentActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.Reader.RecentActivity(r.Context(), limit)
	h.section(w, r, "recent_activity", v, []model.Borrowing{}, err)
}
