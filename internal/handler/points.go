package handler

import (
	"context"
	"net/http"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

type PointsService interface {
	History(ctx context.Context, userID string, limit int) (*model.PointsHistoryResponse, error)
}

type PointsHandler struct {
	pointsService PointsService
}

func NewPointsHandler(pointsService PointsService) *PointsHandler {
	return &PointsHandler{pointsService: pointsService}
}

// History handles GET /api/points/history
func (h *PointsHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, ok := parseLimit(w, r, 50)
	if !ok {
		return
	}

	resp, err := h.pointsService.History(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, r, err, "get points history")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
