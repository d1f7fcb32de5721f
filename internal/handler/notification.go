package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
)

// NotificationService covers the inbox, badge and device token endpoints.
type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, limit int) (*model.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, userID string, notificationIDs []int64) error
	Dismiss(ctx context.Context, userID string, id int64) error
	GetUnreadCount(ctx context.Context, userID string) (int, error)
	BadgeCount(ctx context.Context, userID string) (int64, error)
	ClearBadge(ctx context.Context, userID string) error
	RegisterDeviceToken(ctx context.Context, userID, token, platform string) error
	RemoveDeviceToken(ctx context.Context, token string) error
}

type NotificationHandler struct {
	notifService NotificationService
}

func NewNotificationHandler(notifService NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notifService: notifService,
	}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, ok := parseLimit(w, r, 20)
	if !ok {
		return
	}

	notifications, err := h.notifService.GetNotifications(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, r, err, "get notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, notifications)
}

// MarkRead handles PATCH /api/notifications/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.MarkReadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if len(req.NotificationIDs) == 0 {
		httputil.WriteBadRequest(w, "notification_ids is required")
		return
	}

	if err := h.notifService.MarkAsRead(r.Context(), userID, req.NotificationIDs); err != nil {
		writeServiceError(w, r, err, "mark notifications as read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Notifications marked as read",
	})
}

// Dismiss handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteBadRequest(w, "Invalid notification id")
		return
	}

	if err := h.notifService.Dismiss(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, err, "dismiss notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.notifService.GetUnreadCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "get unread count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{
		"unread_count": count,
	})
}

// GetBadge handles GET /api/badge
func (h *NotificationHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, err := h.notifService.BadgeCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "get badge count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// ClearBadge handles DELETE /api/badge
// Called by clients when the app comes to the foreground.
func (h *NotificationHandler) ClearBadge(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.notifService.ClearBadge(r.Context(), userID); err != nil {
		writeServiceError(w, r, err, "clear badge")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"count": 0})
}

// RegisterToken handles POST /api/devices/token
func (h *NotificationHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.RegisterTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Token == "" {
		httputil.WriteBadRequest(w, "token is required")
		return
	}

	if err := h.notifService.RegisterDeviceToken(r.Context(), userID, req.Token, req.Platform); err != nil {
		writeServiceError(w, r, err, "register device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token registered",
	})
}

// RemoveToken handles DELETE /api/devices/token
// Removes a device token (e.g., on sign-out).
func (h *NotificationHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	var req model.RegisterTokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Token == "" {
		httputil.WriteBadRequest(w, "token is required")
		return
	}

	if err := h.notifService.RemoveDeviceToken(r.Context(), req.Token); err != nil {
		writeServiceError(w, r, err, "remove device token")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Device token removed",
	})
}

// parseLimit reads ?limit=, writing a 400 when it is not a positive integer.
func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return def, true
	}
	parsed, err := strconv.Atoi(l)
	if err != nil || parsed <= 0 {
		httputil.WriteBadRequest(w, "Invalid limit parameter")
		return 0, false
	}
	return parsed, true
}
