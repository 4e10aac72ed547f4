package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/izposoja/internal/circulation"
	"github.com/erazemk/izposoja/internal/imaging"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// maxCoverUpload bounds the multipart body of a cover upload.
const maxCoverUpload = 5 << 20

// BooksHandler handles catalogue endpoints.
type BooksHandler struct {
	DB *sql.DB
}

type bookRequest struct {
	Title         string `json:"title" validate:"required,max=500"`
	Author        string `json:"author" validate:"max=300"`
	ISBN          string `json:"isbn" validate:"omitempty,isbn"`
	Collection    string `json:"collection" validate:"max=100"`
	Publisher     string `json:"publisher" validate:"max=300"`
	PublishedYear int    `json:"published_year" validate:"omitempty,gte=1000,lte=9999"`
}

func (req *bookRequest) toModel() *model.Book {
	return &model.Book{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Collection:    req.Collection,
		Publisher:     req.Publisher,
		PublishedYear: req.PublishedYear,
	}
}

// List handles GET /api/books?q=&collection=.
func (h *BooksHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	books, err := store.ListBooks(r.Context(), h.DB, q.Get("q"), q.Get("collection"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	jsonResponse(w, http.StatusOK, books)
}

// Create handles POST /api/books.
func (h *BooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	book, err := store.CreateBook(r.Context(), h.DB, req.toModel())
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("book created", "user", claims.Username, "book", book.ID, "title", book.Title)
	jsonResponse(w, http.StatusCreated, book)
}

// Get handles GET /api/books/{id}.
func (h *BooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if book == nil || book.DeletedAt != nil {
		writeError(w, r, circulation.ErrBookNotFound)
		return
	}

	jsonResponse(w, http.StatusOK, book)
}

// Update handles PUT /api/books/{id}.
func (h *BooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.UpdateBook(r.Context(), h.DB, id, req.toModel()); err != nil {
		writeError(w, r, err)
		return
	}

	book, err := store.GetBook(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("book updated", "user", claims.Username, "book", id)
	jsonResponse(w, http.StatusOK, book)
}

// Delete handles DELETE /api/books/{id}.
func (h *BooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.DeleteBook(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("book deleted", "user", claims.Username, "book", id)
	jsonMessage(w, "book deleted")
}

// UploadCover handles PUT /api/books/{id}/cover (multipart field "cover").
func (h *BooksHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverUpload)
	if err := r.ParseMultipartForm(maxCoverUpload); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("cover")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "cover file required")
		return
	}
	defer file.Close()

	cover, err := imaging.ProcessCover(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.SetBookCover(r.Context(), h.DB, id, cover.Data, cover.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("book cover uploaded", "user", claims.Username, "book", id, "bytes", len(cover.Data))
	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "cover uploaded",
		"width":   cover.Width,
		"height":  cover.Height,
	})
}

// GetCover handles GET /api/books/{id}/cover.
func (h *BooksHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, mime, err := store.GetBookCover(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no cover")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}
