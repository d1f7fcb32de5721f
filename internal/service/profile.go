package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"bookpassport/internal/model"
	"bookpassport/internal/repository"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// ProfileService handles business logic for user profiles. Accounts live in
// the hosted auth provider; a profile row is provisioned on first use.
type ProfileService struct {
	repo repository.ProfileRepository
}

func NewProfileService(repo repository.ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// EnsureProfile returns the user's profile, creating it if this is the user's
// first request. The display name defaults to the local part of the email.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID, email string) (*model.Profile, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, model.ErrProfileNotFound) {
		return nil, err
	}

	fresh := &model.Profile{ID: userID, Email: email, Name: defaultDisplayName(email)}
	if err := s.repo.CreateIfAbsent(ctx, fresh); err != nil {
		return nil, fmt.Errorf("failed to provision profile: %w", err)
	}
	return s.repo.GetByID(ctx, userID)
}

// GetByID returns a user's profile.
func (s *ProfileService) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return s.repo.GetByID(ctx, id)
}

// Update edits the caller's own profile.
func (s *ProfileService) Update(ctx context.Context, userID string, req *model.UpdateProfileRequest) (*model.Profile, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || utf8.RuneCountInString(name) > model.MaxNameLength {
			return nil, fmt.Errorf("%w: name must be 1-%d characters", model.ErrInvalidProfile, model.MaxNameLength)
		}
		req.Name = &name
	}
	if req.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*req.Username))
		if !usernamePattern.MatchString(username) {
			return nil, fmt.Errorf("%w: username must be 3-%d of a-z, 0-9, _", model.ErrInvalidProfile, model.MaxUsernameLength)
		}
		req.Username = &username
	}
	if req.Bio != nil && utf8.RuneCountInString(*req.Bio) > model.MaxBioLength {
		return nil, fmt.Errorf("%w: bio exceeds %d characters", model.ErrInvalidProfile, model.MaxBioLength)
	}
	if req.Location != nil {
		location := strings.TrimSpace(*req.Location)
		req.Location = &location
	}

	return s.repo.Update(ctx, userID, req)
}

func defaultDisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "Reader"
	}
	return local
}
