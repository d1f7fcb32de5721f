package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"bookpassport/internal/badge"
	"bookpassport/internal/model"
	"bookpassport/internal/queue"
	"bookpassport/internal/realtime"
	"bookpassport/internal/repository"
)

// BackgroundHandler processes a push event in-process. The push worker's
// handler satisfies it; it is used when the stream is unavailable.
type BackgroundHandler interface {
	HandleEvent(ctx context.Context, event queue.PushEvent) error
}

// NotificationService owns the in-app inbox, device tokens and the badge
// counter, and decides how each alert reaches its recipient:
//   - foreground: the user has a live websocket, so the alert is delivered on it
//     and the badge is incremented here;
//   - background: the user is offline, so a push event is queued and the worker
//     increments the badge when it sends the OS notification.
//
// Exactly one of the two runs per alert.
type NotificationService struct {
	notifRepo  repository.NotificationRepository
	tokenRepo  repository.DeviceTokenRepository
	broker     realtime.Broker
	badges     badge.Store
	publisher  queue.Publisher   // nil when Redis is not configured
	background BackgroundHandler // fallback when publishing is not possible
}

func NewNotificationService(
	notifRepo repository.NotificationRepository,
	tokenRepo repository.DeviceTokenRepository,
	broker realtime.Broker,
	badges badge.Store,
) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		tokenRepo: tokenRepo,
		broker:    broker,
		badges:    badges,
	}
}

// SetPublisher routes background deliveries through the push stream.
func (s *NotificationService) SetPublisher(p queue.Publisher) {
	s.publisher = p
}

// SetBackgroundHandler sets the in-process fallback for background deliveries.
func (s *NotificationService) SetBackgroundHandler(h BackgroundHandler) {
	s.background = h
}

// GetNotifications returns the newest notifications and the unread count.
func (s *NotificationService) GetNotifications(ctx context.Context, userID string, limit int) (*model.NotificationListResponse, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	notifications, err := s.notifRepo.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.notifRepo.GetUnreadCount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []model.Notification{}
	}

	return &model.NotificationListResponse{
		Notifications: notifications,
		UnreadCount:   unread,
	}, nil
}

// MarkAsRead marks specific notifications as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, notificationIDs []int64) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	return s.notifRepo.MarkAsRead(ctx, userID, notificationIDs)
}

// Dismiss deletes one of the user's notifications.
func (s *NotificationService) Dismiss(ctx context.Context, userID string, id int64) error {
	return s.notifRepo.Delete(ctx, userID, id)
}

// GetUnreadCount returns the number of unread inbox entries.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return s.notifRepo.GetUnreadCount(ctx, userID)
}

// BadgeCount returns the user's badge counter.
func (s *NotificationService) BadgeCount(ctx context.Context, userID string) (int64, error) {
	return badge.Count(ctx, s.badges, userID)
}

// ClearBadge resets the user's badge counter.
func (s *NotificationService) ClearBadge(ctx context.Context, userID string) error {
	return badge.Clear(ctx, s.badges, userID)
}

// RegisterDeviceToken stores or reassigns a push token to the user.
// The token is unique, so a device that changed hands moves to the new user.
func (s *NotificationService) RegisterDeviceToken(ctx context.Context, userID, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", model.ErrInvalidDeviceToken)
	}
	if platform == "" {
		platform = model.PlatformWeb
		if IsExpoToken(token) {
			platform = model.PlatformExpo
		}
	}
	if !model.IsAllowedPlatform(platform) {
		return fmt.Errorf("%w: unknown platform %q", model.ErrInvalidDeviceToken, platform)
	}
	return s.tokenRepo.Upsert(ctx, userID, token, platform)
}

// RemoveDeviceToken removes a device token (e.g., on sign-out).
func (s *NotificationService) RemoveDeviceToken(ctx context.Context, token string) error {
	return s.tokenRepo.Delete(ctx, token)
}

// Notify records an inbox entry and delivers it. The inbox insert error is
// returned; delivery problems are only logged.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message, link string) error {
	n := &model.Notification{UserID: userID, Title: title, Message: message}
	if link != "" {
		n.Link = &link
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	s.Deliver(ctx, queue.NewNotificationEvent(userID, title, message, link))
	return nil
}

// Deliver picks the foreground or background path for one alert.
func (s *NotificationService) Deliver(ctx context.Context, event queue.PushEvent) {
	online, err := s.broker.Online(ctx, event.UserID)
	if err != nil {
		log.Printf("[NotificationService] Presence lookup failed for user %s, assuming offline: %v", event.UserID, err)
	}

	if online {
		s.deliverForeground(ctx, event)
		return
	}
	s.deliverBackground(ctx, event)
}

func (s *NotificationService) deliverForeground(ctx context.Context, event queue.PushEvent) {
	count, err := badge.Increment(ctx, s.badges, event.UserID)
	if err != nil {
		log.Printf("[NotificationService] Badge increment failed for user %s: %v", event.UserID, err)
	}

	live := realtime.NewNotificationEvent(event.UserID, realtime.Notice{
		Title:  event.Title,
		Body:   event.Body,
		Link:   event.Link,
		RoomID: event.RoomID,
		Badge:  count,
	})
	if err := s.broker.Publish(ctx, live); err != nil {
		log.Printf("[NotificationService] Live delivery failed for user %s: %v", event.UserID, err)
	}
}

func (s *NotificationService) deliverBackground(ctx context.Context, event queue.PushEvent) {
	if s.publisher != nil {
		_, err := s.publisher.Publish(ctx, queue.StreamPush, event)
		if err == nil {
			return
		}
		log.Printf("[NotificationService] Queue publish failed for user %s, sending inline: %v", event.UserID, err)
	}
	if s.background == nil {
		log.Printf("[NotificationService] No background delivery configured, dropping push for user %s", event.UserID)
		return
	}

	// Detached from the request so the push outlives it.
	go func() {
		if err := s.background.HandleEvent(context.Background(), event); err != nil {
			log.Printf("[NotificationService] Inline push failed for user %s: %v", event.UserID, err)
		}
	}()
}
