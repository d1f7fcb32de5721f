package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

// PushService sends an explicit push to a user's devices.
type PushService interface {
	SendToUser(ctx context.Context, req *model.SendPushRequest) (*model.PushOutcome, error)
}

type PushHandler struct {
	pushService PushService
}

func NewPushHandler(pushService PushService) *PushHandler {
	return &PushHandler{pushService: pushService}
}

// SendPush handles POST /api/send-push
// Responds with {success, sent, failed} or {success:false, error}.
func (h *PushHandler) SendPush(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req model.SendPushRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, model.SendPushResponse{Error: "Invalid request body"})
		return
	}

	outcome, err := h.pushService.SendToUser(r.Context(), &req)
	switch {
	case errors.Is(err, model.ErrNoDeviceTokens):
		httputil.WriteJSON(w, http.StatusBadRequest, model.SendPushResponse{Error: "No tokens found for user"})
		return
	case errors.Is(err, model.ErrPushTitleNeeded):
		httputil.WriteJSON(w, http.StatusBadRequest, model.SendPushResponse{Error: "title, body and targetUserId are required"})
		return
	case errors.Is(err, model.ErrPushTooLong):
		httputil.WriteJSON(w, http.StatusBadRequest, model.SendPushResponse{Error: err.Error()})
		return
	case errors.Is(err, model.ErrPushDisabled):
		httputil.WriteJSON(w, http.StatusServiceUnavailable, model.SendPushResponse{Error: err.Error()})
		return
	case err != nil:
		log.Printf("[ERROR] Send push: target=%s err=%v", req.TargetUserID, err)
		httputil.WriteJSON(w, http.StatusInternalServerError, model.SendPushResponse{Error: err.Error()})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.SendPushResponse{
		Success: true,
		Sent:    &outcome.Sent,
		Failed:  &outcome.Failed,
		Pruned:  &outcome.Pruned,
	})
}
