package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// PlansHandler handles membership plan endpoints.
type PlansHandler struct {
	DB *sql.DB
}

type planRequest struct {
	Name           string `json:"name" validate:"required,max=100"`
	DurationMonths int    `json:"duration_months" validate:"gte=1,lte=120"`
	PriceCents     int64  `json:"price_cents" validate:"gte=0"`
	Description    string `json:"description" validate:"max=1000"`
	BorrowingLimit int    `json:"borrowing_limit" validate:"gte=0,lte=100"`
	IsActive       *bool  `json:"is_active"`
}

func (req *planRequest) toModel() *model.MembershipPlan {
	p := &model.MembershipPlan{
		Name:           req.Name,
		DurationMonths: req.DurationMonths,
		PriceCents:     req.PriceCents,
		Description:    req.Description,
		BorrowingLimit: req.BorrowingLimit,
		IsActive:       true,
	}
	if p.BorrowingLimit == 0 {
		p.BorrowingLimit = circulation.DefaultBorrowingLimit
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p
}

// List handles GET /api/plans. ?active=true hides retired plans.
func (h *PlansHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	plans, err := store.ListPlans(r.Context(), h.DB, activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []model.MembershipPlan{}
	}
	jsonResponse(w, http.StatusOK, plans)
}

// Create handles POST /api/plans.
func (h *PlansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	plan, err := store.CreatePlan(r.Context(), h.DB, req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("plan created", "user", claims.Username, "plan", plan.Name, "borrowing_limit", plan.BorrowingLimit)
	jsonResponse(w, http.StatusCreated, plan)
}

// Update handles PUT /api/plans/{id}.
func (h *PlansHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdatePlan(r.Context(), h.DB, id, req.toModel()); err != nil {
		writeError(w, r, err)
		return
	}

	plan, err := store.GetPlan(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("plan updated", "user", claims.Username, "plan", plan.Name)
	jsonResponse(w, http.StatusOK, plan)
}

// Delete handles DELETE /api/plans/{id}.
func (h *PlansHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeletePlan(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("plan deleted", "user", claims.Username, "plan_id", id)
	jsonMessage(w, "plan deleted")
}
