package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

type ExchangeService interface {
	Create(ctx context.Context, requesterID string, req *model.CreateExchangeRequest) (*model.ExchangeRequest, error)
	Accept(ctx context.Context, ownerID, exchangeID string) (*model.ExchangeRequest, error)
	Decline(ctx context.Context, ownerID, exchangeID string) (*model.ExchangeRequest, error)
	List(ctx context.Context, userID string) (*model.ExchangeListResponse, error)
}

type ExchangeHandler struct {
	exchangeService ExchangeService
}

func NewExchangeHandler(exchangeService ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{exchangeService: exchangeService}
}

// Create handles POST /api/exchanges
func (h *ExchangeHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateExchangeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.BookID == "" {
		httputil.WriteBadRequest(w, "book_id is required")
		return
	}

	ex, err := h.exchangeService.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err, "create exchange request")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ex)
}

// Accept handles POST /api/exchanges/{id}/accept
func (h *ExchangeHandler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ex, err := h.exchangeService.Accept(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "accept exchange request")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ex)
}

// Decline handles POST /api/exchanges/{id}/decline
func (h *ExchangeHandler) Decline(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	ex, err := h.exchangeService.Decline(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "decline exchange request")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ex)
}

// List handles GET /api/exchanges
func (h *ExchangeHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := h.exchangeService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "list exchange requests")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
