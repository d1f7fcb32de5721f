package model

import (
	"errors"
	"strings"
	"time"
)

// GeneralRoom is the single global chat room every user can join.
const GeneralRoom = "general"

const directRoomPrefix = "direct:"

// MaxMessageLength bounds a single chat utterance.
const MaxMessageLength = 4000

// ChatRoom is a named conversation channel. The name doubles as the realtime
// channel name, so it is the wire contract between two clients.
type ChatRoom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Message is one immutable chat utterance. UserName is the sender's display
// name captured at write time and never rewritten afterwards.
type Message struct {
	ID        string    `db:"id" json:"id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	UserName  string    `db:"user_name" json:"user_name"`
	UserEmail string    `db:"user_email" json:"user_email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SendMessageRequest is the request body for posting a message.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageListResponse wraps a room's history.
type MessageListResponse struct {
	Room     *ChatRoom `json:"room"`
	Messages []Message `json:"messages"`
}

// DirectRoomName returns the deterministic room name for a pair of users:
// "direct:<lower>-<higher>". Both participants compute the same name.
func DirectRoomName(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return directRoomPrefix + a + "-" + b
}

// IsDirectRoom reports whether name follows the direct-room convention.
func IsDirectRoom(name string) bool {
	return strings.HasPrefix(name, directRoomPrefix)
}

// DirectRoomHas reports whether userID is one of the two participants encoded
// in a direct room name. Ids are matched against both ends of the name, so
// ids containing '-' (UUIDs) are handled.
func DirectRoomHas(name, userID string) bool {
	if !IsDirectRoom(name) || userID == "" {
		return false
	}
	pair := strings.TrimPrefix(name, directRoomPrefix)
	return strings.HasPrefix(pair, userID+"-") || strings.HasSuffix(pair, "-"+userID)
}

// DirectRoomPeer returns the other participant of a direct room.
func DirectRoomPeer(name, userID string) (string, bool) {
	if !DirectRoomHas(name, userID) {
		return "", false
	}
	pair := strings.TrimPrefix(name, directRoomPrefix)
	if rest, ok := strings.CutPrefix(pair, userID+"-"); ok && DirectRoomName(userID, rest) == name {
		return rest, true
	}
	if rest, ok := strings.CutSuffix(pair, "-"+userID); ok && DirectRoomName(userID, rest) == name {
		return rest, true
	}
	return "", false
}

// Chat errors
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrNotRoomMember     = errors.New("not a participant of this room")
	ErrCannotMessageSelf = errors.New("cannot open a direct room with yourself")
	ErrMessageEmpty      = errors.New("message content is required")
	ErrMessageTooLong    = errors.New("message content too long")
)
