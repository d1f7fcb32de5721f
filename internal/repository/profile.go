package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bookpassport/internal/model"
)

type profileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, email, name, username, points, bio, location, created_at, updated_at`

func (r *profileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.GetContext(ctx, &p, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// CreateIfAbsent provisions a profile. Concurrent first requests of the same
// user are harmless: the loser's insert is dropped by ON CONFLICT.
func (r *profileRepository) CreateIfAbsent(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, p.ID, p.Email, p.Name); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of req.
func (r *profileRepository) Update(ctx context.Context, id string, req *model.UpdateProfileRequest) (*model.Profile, error) {
	query := `
		UPDATE profiles SET
			name = COALESCE($2, name),
			username = COALESCE($3, username),
			bio = COALESCE($4, bio),
			location = COALESCE($5, location),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + profileColumns
	var p model.Profile
	err := r.db.GetContext(ctx, &p, query, id, req.Name, req.Username, req.Bio, req.Location)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, model.ErrUsernameTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}
