package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"bookpassport/internal/model"
	"bookpassport/internal/queue"
	"bookpassport/internal/realtime"
	"bookpassport/internal/repository"
)

// ProfileProvider resolves the sender's profile for the display-name snapshot.
type ProfileProvider interface {
	EnsureProfile(ctx context.Context, userID, email string) (*model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
}

// AlertDeliverer sends an alert on the foreground or background path.
type AlertDeliverer interface {
	Deliver(ctx context.Context, event queue.PushEvent)
}

// ChatService resolves rooms, stores messages and broadcasts them.
type ChatService struct {
	roomRepo repository.ChatRoomRepository
	msgRepo  repository.MessageRepository
	profiles ProfileProvider
	broker   realtime.Broker
	alerts   AlertDeliverer // nil disables offline alerts
}

func NewChatService(
	roomRepo repository.ChatRoomRepository,
	msgRepo repository.MessageRepository,
	profiles ProfileProvider,
	broker realtime.Broker,
	alerts AlertDeliverer,
) *ChatService {
	return &ChatService{
		roomRepo: roomRepo,
		msgRepo:  msgRepo,
		profiles: profiles,
		broker:   broker,
		alerts:   alerts,
	}
}

// ResolveRoom returns the room with the given name, creating it on first use.
// Concurrent first openers converge on the same row: the insert is a no-op on
// conflict and the loser re-reads the winner's room.
func (s *ChatService) ResolveRoom(ctx context.Context, name string) (*model.ChatRoom, error) {
	room, err := s.roomRepo.GetByName(ctx, name)
	if err == nil {
		return room, nil
	}
	if !errors.Is(err, model.ErrRoomNotFound) {
		return nil, err
	}

	room, created, err := s.roomRepo.CreateIfAbsent(ctx, name)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("[ChatService] Created room %s (%s)", room.Name, room.ID)
		return room, nil
	}
	return s.roomRepo.GetByName(ctx, name)
}

// ResolveGeneral returns the global room.
func (s *ChatService) ResolveGeneral(ctx context.Context) (*model.ChatRoom, error) {
	return s.ResolveRoom(ctx, model.GeneralRoom)
}

// ResolveDirect returns the private room between the caller and another user.
func (s *ChatService) ResolveDirect(ctx context.Context, callerID, otherID string) (*model.ChatRoom, error) {
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return nil, model.ErrProfileNotFound
	}
	if otherID == callerID {
		return nil, model.ErrCannotMessageSelf
	}
	if _, err := s.profiles.GetByID(ctx, otherID); err != nil {
		return nil, err
	}
	return s.ResolveRoom(ctx, model.DirectRoomName(callerID, otherID))
}

// Authorize checks that userID may read and write the room with this name.
// Only the general room and well-formed direct rooms exist; direct rooms are
// restricted to the two users encoded in the name.
func (s *ChatService) Authorize(roomName, userID string) error {
	if roomName == model.GeneralRoom {
		return nil
	}
	if !model.IsDirectRoom(roomName) {
		return model.ErrRoomNotFound
	}
	peer, ok := model.DirectRoomPeer(roomName, userID)
	if !ok || peer == userID {
		return model.ErrNotRoomMember
	}
	return nil
}

// JoinRoom checks that userID may subscribe to the named room and returns it.
// Only the general room is created here; direct rooms must already have been
// opened through ResolveDirect, which checks the peer exists.
func (s *ChatService) JoinRoom(ctx context.Context, userID, roomName string) (*model.ChatRoom, error) {
	if err := s.Authorize(roomName, userID); err != nil {
		return nil, err
	}
	if roomName == model.GeneralRoom {
		return s.ResolveGeneral(ctx)
	}
	return s.roomRepo.GetByName(ctx, roomName)
}

// ListMessages returns the room's history, oldest first.
// limit <= 0 returns every message.
func (s *ChatService) ListMessages(ctx context.Context, userID, roomID string, limit int) (*model.MessageListResponse, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(room.Name, userID); err != nil {
		return nil, err
	}

	messages, err := s.msgRepo.ListByRoom(ctx, room.ID, limit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return &model.MessageListResponse{Room: room, Messages: messages}, nil
}

// SendMessage persists a message, then broadcasts it to the room, then alerts
// the other participant of a direct room. Only the insert can fail the call.
func (s *ChatService) SendMessage(ctx context.Context, userID, email, roomID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.ErrMessageEmpty
	}
	if utf8.RuneCountInString(content) > model.MaxMessageLength {
		return nil, model.ErrMessageTooLong
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.Authorize(room.Name, userID); err != nil {
		return nil, err
	}

	profile, err := s.profiles.EnsureProfile(ctx, userID, email)
	if err != nil {
		return nil, fmt.Errorf("resolve sender profile: %w", err)
	}

	msg := &model.Message{
		RoomID:    room.ID,
		UserID:    userID,
		Content:   content,
		UserName:  profile.Name,
		UserEmail: email,
	}
	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.broker.Publish(ctx, realtime.NewMessageEvent(room.Name, msg)); err != nil {
		log.Printf("[ChatService] Broadcast failed for room %s msg %s: %v", room.Name, msg.ID, err)
	}

	if peer, ok := model.DirectRoomPeer(room.Name, userID); ok && s.alerts != nil {
		s.alerts.Deliver(ctx, queue.NewChatMessageEvent(peer, profile.Name, msg))
	}

	return msg, nil
}
