// Package chatclient is a Go client for the chat API: it opens a room, keeps
// the room's messages in order without duplicates, and tracks the unread badge
// from live notifications.
package chatclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"bookpassport/internal/badge"
	"bookpassport/internal/model"
	"bookpassport/internal/realtime"
)

// ErrDisconnected is returned by Send before the subscription is confirmed or
// after it dropped.
var ErrDisconnected = errors.New("chatclient: not connected")

// Backend is the request/response half of the API.
type Backend interface {
	OpenGeneral(ctx context.Context) (*model.ChatRoom, error)
	OpenDirect(ctx context.Context, userID string) (*model.ChatRoom, error)
	ListMessages(ctx context.Context, roomID string) ([]model.Message, error)
	SendMessage(ctx context.Context, roomID, content string) (*model.Message, error)
}

// Channel is a live subscription.
type Channel interface {
	ReadEvent() (realtime.Event, error)
	Close() error
}

// Dialer subscribes to a room by name.
type Dialer func(ctx context.Context, room string) (Channel, error)

// Session is one open room.
type Session struct {
	userID  string
	backend Backend
	dial    Dialer
	badges  badge.Store

	mu        sync.Mutex
	room      *model.ChatRoom
	messages  []model.Message
	seen      map[string]struct{}
	connected bool
	channel   Channel
	done      chan struct{}
}

func NewSession(userID string, backend Backend, dial Dialer) *Session {
	return &Session{
		userID:  userID,
		backend: backend,
		dial:    dial,
		badges:  badge.NewMemoryStore(),
		seen:    map[string]struct{}{},
	}
}

// OpenGeneral joins the global room.
func (s *Session) OpenGeneral(ctx context.Context) error {
	room, err := s.backend.OpenGeneral(ctx)
	if err != nil {
		return fmt.Errorf("open general room: %w", err)
	}
	return s.open(ctx, room)
}

// OpenDirect joins the private room with peerID.
func (s *Session) OpenDirect(ctx context.Context, peerID string) error {
	room, err := s.backend.OpenDirect(ctx, peerID)
	if err != nil {
		return fmt.Errorf("open direct room: %w", err)
	}
	return s.open(ctx, room)
}

func (s *Session) open(ctx context.Context, room *model.ChatRoom) error {
	// Subscribe before loading history so nothing sent in between is missed;
	// overlap is removed by id.
	ch, err := s.dial(ctx, room.Name)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", room.Name, err)
	}

	s.mu.Lock()
	if s.channel != nil {
		s.channel.Close()
	}
	s.room = room
	s.messages = nil
	s.seen = map[string]struct{}{}
	s.connected = false
	s.channel = ch
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.listen(ch, done)

	history, err := s.backend.ListMessages(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	s.mu.Lock()
	for i := range history {
		s.addLocked(history[i])
	}
	s.mu.Unlock()
	return nil
}

func (s *Session) listen(ch Channel, done chan struct{}) {
	defer close(done)
	for {
		ev, err := ch.ReadEvent()
		if err != nil {
			s.mu.Lock()
			if s.channel == ch {
				s.connected = false
			}
			s.mu.Unlock()
			return
		}
		s.handle(ch, ev)
	}
}

// handle applies ev only while ch is still the session's channel; frames read
// from a replaced or closed subscription are dropped.
func (s *Session) handle(ch Channel, ev realtime.Event) {
	s.mu.Lock()
	current := s.channel == ch
	s.mu.Unlock()
	if !current {
		return
	}

	switch ev.Type {
	case realtime.EventSubscribed:
		s.mu.Lock()
		if s.channel == ch {
			s.connected = true
		}
		s.mu.Unlock()
	case realtime.EventMessage:
		if ev.Message == nil {
			return
		}
		s.mu.Lock()
		if s.channel == ch && s.room != nil && ev.Room == s.room.Name {
			s.addLocked(*ev.Message)
		}
		s.mu.Unlock()
	case realtime.EventNotification:
		if _, err := badge.Increment(context.Background(), s.badges, s.userID); err != nil {
			log.Printf("[ChatClient] Badge increment failed: %v", err)
		}
	case realtime.EventError:
		log.Printf("[ChatClient] Server error event: %s", ev.Error)
	}
}

// addLocked inserts msg unless its id is known, keeping created_at order.
func (s *Session) addLocked(msg model.Message) bool {
	if _, ok := s.seen[msg.ID]; ok {
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.messages = append(s.messages, msg)
	sort.SliceStable(s.messages, func(i, j int) bool {
		a, b := s.messages[i], s.messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return true
}

// Send posts content to the open room. The stored message is added locally
// right away; its broadcast echo is then ignored.
func (s *Session) Send(ctx context.Context, content string) (*model.Message, error) {
	s.mu.Lock()
	room, connected := s.room, s.connected
	s.mu.Unlock()
	if room == nil || !connected {
		return nil, ErrDisconnected
	}

	msg, err := s.backend.SendMessage(ctx, room.ID, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.room != nil && s.room.ID == room.ID {
		s.addLocked(*msg)
	}
	s.mu.Unlock()
	return msg, nil
}

// Messages returns a copy of the room's messages, oldest first.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.messages...)
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *Session) Room() *model.ChatRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

// Badge is the number of notifications received since the last ClearBadge.
func (s *Session) Badge(ctx context.Context) (int64, error) {
	return badge.Count(ctx, s.badges, s.userID)
}

func (s *Session) ClearBadge(ctx context.Context) error {
	return badge.Clear(ctx, s.badges, s.userID)
}

// Close drops the subscription and waits for the reader to stop.
func (s *Session) Close() error {
	s.mu.Lock()
	ch, done := s.channel, s.done
	s.channel = nil
	s.connected = false
	s.mu.Unlock()

	if ch == nil {
		return nil
	}
	err := ch.Close()
	<-done
	return err
}
