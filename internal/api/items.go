package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// ItemsHandler handles endpoints for physical copies.
type ItemsHandler struct {
	DB *sql.DB
}

type createItemRequest struct {
	BookID        int64  `json:"book_id" validate:"required,gt=0"`
	Barcode       string `json:"barcode" validate:"required,max=64"`
	CallNumber    string `json:"call_number" validate:"max=64"`
	ShelfLocation string `json:"shelf_location" validate:"max=100"`
}

type updateItemRequest struct {
	CallNumber    string `json:"call_number" validate:"max=64"`
	ShelfLocation string `json:"shelf_location" validate:"max=100"`
}

type itemStatusRequest struct {
	Status string `json:"status" validate:"required,item_status"`
}

// List handles GET /api/items?book_id=&status=.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	var bookID int64
	if v := r.URL.Query().Get("book_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, r, badRequest("invalid book_id %q", v))
			return
		}
		bookID = id
	}

	items, err := store.ListItems(r.Context(), h.DB, bookID, r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.CreateItem(r.Context(), h.DB, req.BookID, req.Barcode, req.CallNumber, req.ShelfLocation)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item created", "user", claims.Username, "item", item.ID, "book", item.BookID, "barcode", item.Barcode)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonResponse(w, http.StatusNotFound, errorBody{Error: "item not found", Kind: "not_found"})
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Lookup handles GET /api/items/lookup?barcode=.
func (h *ItemsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		writeError(w, r, badRequest("barcode is required"))
		return
	}

	item, err := store.GetItemByBarcode(r.Context(), h.DB, barcode)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		jsonResponse(w, http.StatusNotFound, errorBody{Error: "item not found", Kind: "not_found"})
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdateItem(r.Context(), h.DB, id, req.CallNumber, req.ShelfLocation); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// ChangeStatus handles PATCH /api/items/{id}/status.
func (h *ItemsHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req itemStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.ChangeItemStatus(r.Context(), h.DB, id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item status changed", "user", claims.Username, "item", id, "barcode", item.Barcode, "status", item.CirculationStatus)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Username, "item", id)
	jsonMessage(w, "item deleted")
}

// History handles GET /api/items/{id}/history.
func (h *ItemsHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	history, err := store.GetItemHistory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []model.Borrowing{}
	}
	jsonResponse(w, http.StatusOK, history)
}
