package realtime

import (
	"encoding/json"
	"fmt"

	"bookpassport/internal/model"
)

// Event types sent to websocket subscribers.
const (
	EventMessage      = "message"
	EventSubscribed   = "subscribed"
	EventNotification = "notification"
	EventError        = "error"
)

// Event is the single frame format on the websocket.
//
// Room-scoped events (Room set, To empty) reach every subscriber of the room.
// User-scoped events (To set) reach every connection of that user.
type Event struct {
	Type         string         `json:"type"`
	Room         string         `json:"room,omitempty"`
	To           string         `json:"to,omitempty"`
	Message      *model.Message `json:"message,omitempty"`
	Notification *Notice        `json:"notification,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// Notice is the payload of a live notification.
type Notice struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Link   string `json:"link,omitempty"`
	RoomID string `json:"room_id,omitempty"`
	Badge  int64  `json:"badge"`
}

func NewMessageEvent(room string, msg *model.Message) Event {
	return Event{Type: EventMessage, Room: room, Message: msg}
}

func NewNotificationEvent(userID string, notice Notice) Event {
	return Event{Type: EventNotification, To: userID, Notification: &notice}
}

func subscribedEvent(room string) Event {
	return Event{Type: EventSubscribed, Room: room}
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// DecodeEvent parses one wire frame.
func DecodeEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("event without type")
	}
	return e, nil
}
