package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"bookpassport/internal/model"
)

// Event types for the push stream
const (
	EventChatMessage  = "chat_message"
	EventNotification = "notification"
)

// Stream names
const (
	StreamPush = "stream:push"
)

// Consumer group name for push workers
const (
	ConsumerGroupPush = "push_workers"
)

// PushEvent asks a worker to deliver an OS notification to a user who has no
// live connection. Every event moves the user's badge counter once.
type PushEvent struct {
	Type      string `json:"type"`      // EventChatMessage, EventNotification
	Timestamp int64  `json:"timestamp"` // Unix timestamp when event occurred
	UserID    string `json:"user_id"`   // recipient

	Title string `json:"title"`
	Body  string `json:"body"`
	Link  string `json:"link,omitempty"`

	// Chat message events
	RoomID    string `json:"room_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	SenderID  string `json:"sender_id,omitempty"`
}

// NewChatMessageEvent is published when a direct message lands for an offline peer.
func NewChatMessageEvent(recipientID, senderName string, msg *model.Message) PushEvent {
	return PushEvent{
		Type:      EventChatMessage,
		Timestamp: time.Now().Unix(),
		UserID:    recipientID,
		Title:     "New message from " + senderName,
		Body:      preview(msg.Content),
		Link:      "/chat?room=" + msg.RoomID,
		RoomID:    msg.RoomID,
		MessageID: msg.ID,
		SenderID:  msg.UserID,
	}
}

// NewNotificationEvent is published for any other alert (exchanges, points).
func NewNotificationEvent(userID, title, body, link string) PushEvent {
	return PushEvent{
		Type:      EventNotification,
		Timestamp: time.Now().Unix(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Link:      link,
	}
}

// PushMessage renders the event as the OS notification payload.
func (e PushEvent) PushMessage() model.PushMessage {
	data := map[string]string{"type": e.Type}
	if e.Link != "" {
		data["link"] = e.Link
	}
	if e.RoomID != "" {
		data["room_id"] = e.RoomID
	}
	return model.PushMessage{Title: e.Title, Body: e.Body, Data: data}
}

const previewLength = 120

func preview(content string) string {
	r := []rune(content)
	if len(r) <= previewLength {
		return content
	}
	return string(r[:previewLength]) + "…"
}

// ToMap converts the event to a map for Redis XADD.
// Redis Streams store field-value pairs, so we serialize to JSON in a "data" field.
func (e PushEvent) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParsePushEvent parses a PushEvent from Redis stream message values.
func ParsePushEvent(values map[string]interface{}) (PushEvent, error) {
	data, ok := values["data"].(string)
	if !ok {
		return PushEvent{}, fmt.Errorf("missing or invalid 'data' field")
	}

	var event PushEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return PushEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if event.UserID == "" {
		return PushEvent{}, fmt.Errorf("event without recipient")
	}
	return event, nil
}
