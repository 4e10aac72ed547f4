package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/model"
)

// BorrowingsHandler exposes the circulation service.
type BorrowingsHandler struct {
	Service *circulation.Service
}

type issueRequest struct {
	PatronID int64  `json:"patron_id" validate:"required,gt=0"`
	BookID   int64  `json:"book_id" validate:"required,gt=0"`
	Notes    string `json:"notes" validate:"max=1000"`
}

type renewResponse struct {
	Message           string           `json:"message"`
	Borrowing         *model.Borrowing `json:"borrowing"`
	RenewalsRemaining int              `json:"renewals_remaining"`
}

type returnResponse struct {
	Message   string           `json:"message"`
	Borrowing *model.Borrowing `json:"borrowing"`
}

// Issue handles POST /api/borrowings/issue.
func (h *BorrowingsHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	b, err := h.Service.Issue(r.Context(), circulation.IssueRequest{
		PatronID: req.PatronID,
		BookID:   req.BookID,
		Notes:    req.Notes,
		IssuedBy: &claims.UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("book issued", "user", claims.Username, "borrowing", b.ID, "patron", b.PatronID, "item", b.ItemID, "barcode", b.Barcode, "due", b.DueDate)
	jsonResponse(w, http.StatusCreated, b)
}

// Renew handles POST /api/borrowings/{id}/renew.
func (h *BorrowingsHandler) Renew(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.Service.Renew(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("borrowing renewed", "user", claims.Username, "borrowing", id, "due", res.Borrowing.DueDate, "renewals_remaining", res.RenewalsRemaining)
	jsonResponse(w, http.StatusOK, renewResponse{
		Message:           fmt.Sprintf("renewed until %s", res.Borrowing.DueDate.Format("2006-01-02")),
		Borrowing:         res.Borrowing,
		RenewalsRemaining: res.RenewalsRemaining,
	})
}

// Return handles POST /api/borrowings/{id}/return.
func (h *BorrowingsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	b, err := h.Service.Return(r.Context(), id, &claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("book returned", "user", claims.Username, "borrowing", id, "patron", b.PatronID, "barcode", b.Barcode)
	jsonResponse(w, http.StatusOK, returnResponse{Message: "book returned", Borrowing: b})
}

// Get handles GET /api/borrowings/{id}.
func (h *BorrowingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// Overdue handles GET /api/borrowings/overdue.
func (h *BorrowingsHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Service.Overdue(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, loans)
}

// Search handles GET /api/borrowings/search?type=&value=&status=&limit=.
func (h *BorrowingsHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	res, err := h.Service.Search(r.Context(), circulation.SearchRequest{
		Type:   q.Get("type"),
		Value:  q.Get("value"),
		Status: q.Get("status"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}
