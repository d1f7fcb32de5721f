package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bookpassport/internal/httputil"
	"bookpassport/internal/model"
	"bookpassport/internal/transport/http/middleware"
)

type ProfileService interface {
	EnsureProfile(ctx context.Context, userID, email string) (*model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	Update(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.Profile, error)
}

type ProfileHandler struct {
	profileService ProfileService
}

func NewProfileHandler(profileService ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Me handles GET /api/me
// The first call for a new account provisions its profile.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, err := h.profileService.EnsureProfile(r.Context(), userID, middleware.GetEmailFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "load profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateMe handles PATCH /api/me
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if _, err := h.profileService.EnsureProfile(r.Context(), userID, middleware.GetEmailFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err, "update profile")
		return
	}

	profile, err := h.profileService.Update(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err, "update profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// GetProfile handles GET /api/users/{id}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	profile, err := h.profileService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "get profile")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}
