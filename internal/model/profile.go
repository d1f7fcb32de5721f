package model

import (
	"errors"
	"time"
)

// Profile is a user's public identity plus their running point balance.
type Profile struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"-"`
	Name      string    `db:"name" json:"name"`
	Username  *string   `db:"username" json:"username"`
	Points    int       `db:"points" json:"points"`
	Bio       *string   `db:"bio" json:"bio"`
	Location  *string   `db:"location" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UpdateProfileRequest carries the editable fields. Nil fields are left as is.
type UpdateProfileRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Location *string `json:"location"`
}

const (
	MaxNameLength     = 80
	MaxUsernameLength = 30
	MaxBioLength      = 500
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidProfile  = errors.New("invalid profile fields")
)
