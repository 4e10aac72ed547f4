package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// PatronsHandler handles patron endpoints.
type PatronsHandler struct {
	DB      *sql.DB
	Service *circulation.Service
}

func (h *PatronsHandler) defaultLimit() int {
	return h.Service.Policy.DefaultBorrowingLimit
}

type patronRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Email  string `json:"email" validate:"required,email"`
	Phone  string `json:"phone" validate:"max=50"`
	PlanID *int64 `json:"plan_id" validate:"omitempty,gt=0"`
}

func (req *patronRequest) toModel() *model.Patron {
	return &model.Patron{Name: req.Name, Email: req.Email, Phone: req.Phone, PlanID: req.PlanID}
}

type patronStatusRequest struct {
	Action string `json:"action" validate:"required,oneof=activate freeze deactivate close"`
}

type deletePatronRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// List handles GET /api/patrons?status=&q=.
func (h *PatronsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	patrons, err := store.ListPatrons(r.Context(), h.DB, q.Get("status"), q.Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if patrons == nil {
		patrons = []model.Patron{}
	}
	for i := range patrons {
		patrons[i].DefaultLimit(h.defaultLimit())
	}
	jsonResponse(w, http.StatusOK, patrons)
}

// Create handles POST /api/patrons.
func (h *PatronsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req patronRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	patron, err := store.CreatePatron(r.Context(), h.DB, req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("patron created", "user", claims.Username, "patron", patron.ID, "email", patron.Email)
	patron.DefaultLimit(h.defaultLimit())
	jsonResponse(w, http.StatusCreated, patron)
}

// Get handles GET /api/patrons/{id}.
func (h *PatronsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	patron, err := store.GetPatron(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if patron == nil || patron.DeletedAt != nil {
		writeError(w, r, circulation.ErrPatronNotFound)
		return
	}

	patron.DefaultLimit(h.defaultLimit())
	jsonResponse(w, http.StatusOK, patron)
}

// Update handles PUT /api/patrons/{id}.
func (h *PatronsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req patronRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdatePatron(r.Context(), h.DB, id, req.toModel()); err != nil {
		writeError(w, r, err)
		return
	}

	patron, err := store.GetPatron(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("patron updated", "user", claims.Username, "patron", id)
	patron.DefaultLimit(h.defaultLimit())
	jsonResponse(w, http.StatusOK, patron)
}

// ChangeStatus handles PATCH /api/patrons/{id}/status.
func (h *PatronsHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req patronStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	patron, err := store.ChangePatronStatus(r.Context(), h.DB, id, req.Action)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("patron status changed", "user", claims.Username, "patron", id, "action", req.Action, "status", patron.Status)
	patron.DefaultLimit(h.defaultLimit())
	jsonResponse(w, http.StatusOK, patron)
}

// Delete handles DELETE /api/patrons/{id}. The body carries the reason.
func (h *PatronsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req deletePatronRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeletePatron(r.Context(), h.DB, id, req.Reason); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("patron deleted", "user", claims.Username, "patron", id, "reason", req.Reason)
	jsonMessage(w, "patron deleted")
}

// Borrowings handles GET /api/patrons/{id}/borrowings?status=.
func (h *PatronsHandler) Borrowings(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	loans, err := h.Service.ListForPatron(r.Context(), id, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, loans)
}
