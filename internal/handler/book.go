package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

type BookService interface {
	Create(ctx context.Context, ownerID string, req *model.CreateBookRequest) (*model.Book, error)
	List(ctx context.Context, query, cursor string, limit int) (*model.BookListResponse, error)
	GetByID(ctx context.Context, id string) (*model.Book, error)
	AddHistory(ctx context.Context, userID, bookID string, req *model.CreateHistoryRequest) (*model.BookHistoryEntry, error)
	ListHistory(ctx context.Context, bookID string) ([]model.BookHistoryEntry, error)
}

type BookHandler struct {
	bookService BookService
}

func NewBookHandler(bookService BookService) *BookHandler {
	return &BookHandler{bookService: bookService}
}

// Create handles POST /api/books
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateBookRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	book, err := h.bookService.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err, "create book")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, book)
}

// List handles GET /api/books?q=&cursor=&limit=
func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}

	q := r.URL.Query()
	resp, err := h.bookService.List(r.Context(), strings.TrimSpace(q.Get("q")), q.Get("cursor"), limit)
	if err != nil {
		writeServiceError(w, r, err, "list books")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/books/{id}
func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	book, err := h.bookService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "get book")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, book)
}

// AddHistory handles POST /api/books/{id}/history
func (h *BookHandler) AddHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateHistoryRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	entry, err := h.bookService.AddHistory(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, r, err, "add book history")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

// ListHistory handles GET /api/books/{id}/history
func (h *BookHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	entries, err := h.bookService.ListHistory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "list book history")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"history": entries})
}
