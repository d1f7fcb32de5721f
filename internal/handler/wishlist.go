package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

type WishlistService interface {
	Add(ctx context.Context, userID, bookID string) (*model.WishlistToggleResult, error)
	Remove(ctx context.Context, userID, bookID string) (*model.WishlistToggleResult, error)
	Toggle(ctx context.Context, userID, bookID string) (*model.WishlistToggleResult, error)
	List(ctx context.Context, userID string) ([]model.WishlistItem, error)
}

type WishlistHandler struct {
	wishlistService WishlistService
}

func NewWishlistHandler(wishlistService WishlistService) *WishlistHandler {
	return &WishlistHandler{wishlistService: wishlistService}
}

// Add handles POST /api/wishlist/{bookId}
// 201 when the book was added, 200 with already_logged when it was there.
func (h *WishlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.wishlistService.Add(r.Context(), userID, chi.URLParam(r, "bookId"))
	if err != nil {
		writeServiceError(w, r, err, "add to wishlist")
		return
	}

	status := http.StatusCreated
	if res.AlreadyLogged {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, res)
}

// Remove handles DELETE /api/wishlist/{bookId}
func (h *WishlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.wishlistService.Remove(r.Context(), userID, chi.URLParam(r, "bookId"))
	if err != nil {
		writeServiceError(w, r, err, "remove from wishlist")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Toggle handles POST /api/wishlist/{bookId}/toggle
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	res, err := h.wishlistService.Toggle(r.Context(), userID, chi.URLParam(r, "bookId"))
	if err != nil {
		writeServiceError(w, r, err, "toggle wishlist")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// List handles GET /api/wishlist
func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	items, err := h.wishlistService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "list wishlist")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
