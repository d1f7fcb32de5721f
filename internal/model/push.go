package model

import "errors"

// Provider error codes that mean a token will never work again.
const (
	PushCodeTokenNotRegistered = "registration-token-not-registered"
	PushCodeInvalidToken       = "invalid-registration-token"
)

// SendPushRequest is the body of POST /api/send-push.
type SendPushRequest struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	TargetUserID string `json:"targetUserId"`
	Link         string `json:"link,omitempty"`
}

// SendPushResponse mirrors the endpoint's result shape.
type SendPushResponse struct {
	Success bool   `json:"success"`
	Sent    *int   `json:"sent,omitempty"`
	Failed  *int   `json:"failed,omitempty"`
	Pruned  *int   `json:"pruned,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PushResult is the provider outcome for one token.
type PushResult struct {
	Token string
	Code  string // provider error code, empty on success
	Err   error
}

// Success reports whether the provider accepted the message for this token.
func (r PushResult) Success() bool {
	return r.Err == nil
}

// Permanent reports whether the token should be pruned.
func (r PushResult) Permanent() bool {
	return r.Code == PushCodeTokenNotRegistered || r.Code == PushCodeInvalidToken
}

// PushMessage is what gets rendered as the OS notification.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
	Badge int64 // app icon badge; zero leaves it untouched
}

// PushOutcome summarizes one dispatch to all of a user's devices.
type PushOutcome struct {
	Sent   int
	Failed int
	Pruned int
}

// MaxMulticastTokens is the provider's per-request token limit.
const MaxMulticastTokens = 500

// Limits on an explicit send, in characters. Together they stay well under the
// provider's 4KB payload cap.
const (
	MaxPushTitleLength = 100
	MaxPushBodyLength  = 1000
	MaxPushLinkLength  = 512
)

var (
	ErrNoDeviceTokens  = errors.New("no tokens found for user")
	ErrPushDisabled    = errors.New("push notifications are not configured")
	ErrPushTitleNeeded = errors.New("title and body are required")
	ErrPushTooLong     = errors.New("push title, body or link is too long")
)
