package model

import (
	"errors"
	"time"
)

// DeviceToken is one registered push endpoint (FCM or Expo) for a user.
// Supports multiple devices per user; the token itself is unique.
type DeviceToken struct {
	ID        int64     `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"-"`
	Token     string    `db:"token" json:"-"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// RegisterTokenRequest is the request body for registering a device token.
type RegisterTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"` // "web", "ios", "android" or "expo"
}

// Platform constants
const (
	PlatformWeb     = "web"
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
	PlatformExpo    = "expo"
)

// IsAllowedPlatform reports whether p is a known device platform.
func IsAllowedPlatform(p string) bool {
	switch p {
	case PlatformWeb, PlatformIOS, PlatformAndroid, PlatformExpo:
		return true
	}
	return false
}

var ErrInvalidDeviceToken = errors.New("invalid device token")
