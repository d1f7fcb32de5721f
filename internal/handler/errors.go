package handler

import (
	"errors"
	"log"
	"net/http"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
	"bookpassport/internal/transport/http/middleware"
)

type errorMapping struct {
	target  error
	status  int
	code    string
	message string // empty means use err.Error()
}

// domainErrors maps sentinel errors to responses. Order matters only when one
// error wraps another.
var domainErrors = []errorMapping{
	{model.ErrRoomNotFound, http.StatusNotFound, httputil.ErrCodeNotFound, "Room not found"},
	{model.ErrProfileNotFound, http.StatusNotFound, httputil.ErrCodeNotFound, "User not found"},
	{model.ErrBookNotFound, http.StatusNotFound, httputil.ErrCodeNotFound, "Book not found"},
	{model.ErrExchangeNotFound, http.StatusNotFound, httputil.ErrCodeNotFound, "Exchange request not found"},
	{model.ErrNotificationNotFound, http.StatusNotFound, httputil.ErrCodeNotFound, "Notification not found"},

	{model.ErrNotRoomMember, http.StatusForbidden, httputil.ErrCodeForbidden, "You are not a participant of this room"},
	{model.ErrNotBookOwner, http.StatusForbidden, httputil.ErrCodeForbidden, "Only the owner can do this"},
	{model.ErrNotExchangeOwner, http.StatusForbidden, httputil.ErrCodeForbidden, "Only the book owner can respond"},

	{model.ErrUsernameTaken, http.StatusConflict, httputil.ErrCodeConflict, "Username already taken"},
	{model.ErrExchangeExists, http.StatusConflict, httputil.ErrCodeConflict, "You already have a pending request for this book"},
	{model.ErrExchangeNotPending, http.StatusConflict, httputil.ErrCodeConflict, "Exchange request is no longer pending"},
	{model.ErrBookUnavailable, http.StatusConflict, httputil.ErrCodeConflict, "Book is no longer available"},
	{model.ErrInsufficientPoints, http.StatusConflict, "INSUFFICIENT_POINTS", "Not enough points"},

	{model.ErrCannotMessageSelf, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrCannotRequestOwnBook, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrMessageEmpty, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrMessageTooLong, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrInvalidProfile, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrTitleRequired, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrInvalidCondition, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrInvalidPointValue, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrInvalidHistory, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrInvalidCursor, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrInvalidDeviceToken, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrPushTitleNeeded, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrPushTooLong, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrPromptRequired, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrPromptTooLong, http.StatusBadRequest, httputil.ErrCodeBadRequest, ""},
	{model.ErrFileTooLarge, http.StatusBadRequest, model.CodeFileTooLarge, "Cover exceeds 8MB limit"},
	{model.ErrInvalidImageType, http.StatusBadRequest, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp"},

	{model.ErrPushDisabled, http.StatusServiceUnavailable, httputil.ErrCodeUnavailable, ""},
	{model.ErrMediaDisabled, http.StatusServiceUnavailable, httputil.ErrCodeUnavailable, ""},
	{model.ErrAIDisabled, http.StatusServiceUnavailable, httputil.ErrCodeUnavailable, ""},
}

// writeServiceError maps a service error onto the error envelope. Unknown
// errors are logged and reported as "Failed to <action>".
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			httputil.WriteError(w, m.status, m.code, msg)
			return
		}
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	log.Printf("[ERROR] %s: user=%s path=%s err=%v", action, userID, r.URL.Path, err)
	httputil.WriteInternalError(w, "Failed to "+action)
}

// requireUser returns the caller's id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return "", false
	}
	return userID, true
}
