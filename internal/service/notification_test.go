package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookpassport/internal/badge"
	"bookpassport/internal/model"
	"bookpassport/internal/queue"
	"bookpassport/internal/realtime"
)

type notifFixture struct {
	svc        *NotificationService
	inbox      *mockNotificationRepository
	tokens     *mockTokenRepository
	broker     *mockBroker
	badges     *badge.MemoryStore
	publisher  *mockPublisher
	background *mockBackground
}

func newNotifFixture(online ...string) *notifFixture {
	f := &notifFixture{
		inbox:      &mockNotificationRepository{},
		tokens:     &mockTokenRepository{},
		broker:     newMockBroker(online...),
		badges:     badge.NewMemoryStore(),
		publisher:  &mockPublisher{},
		background: newMockBackground(),
	}
	f.svc = NewNotificationService(f.inbox, f.tokens, f.broker, f.badges)
	f.svc.SetPublisher(f.publisher)
	f.svc.SetBackgroundHandler(f.background)
	return f
}

func TestNotificationService_Deliver_Foreground(t *testing.T) {
	f := newNotifFixture("bob")
	ctx := context.Background()

	f.svc.Deliver(ctx, queue.NewNotificationEvent("bob", "Exchange accepted", "yay", "/exchanges"))
	f.svc.Deliver(ctx, queue.NewNotificationEvent("bob", "Exchange declined", "nay", "/exchanges"))

	count, _ := badge.Count(ctx, f.badges, "bob")
	if count != 2 {
		t.Errorf("badge = %d, want 2", count)
	}

	events := f.broker.events()
	if len(events) != 2 {
		t.Fatalf("live events = %d, want 2", len(events))
	}
	last := events[1]
	if last.Type != realtime.EventNotification || last.To != "bob" {
		t.Errorf("event = %+v", last)
	}
	if last.Notification == nil || last.Notification.Badge != 2 {
		t.Errorf("notice = %+v, want badge 2", last.Notification)
	}

	if len(f.publisher.events) != 0 {
		t.Error("foreground alerts must not be queued for push")
	}
}

func TestNotificationService_Deliver_BackgroundQueuesPush(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()

	f.svc.Deliver(ctx, queue.NewNotificationEvent("bob", "Points earned", "+50", ""))

	if len(f.publisher.events) != 1 || f.publisher.events[0].UserID != "bob" {
		t.Fatalf("queued events = %+v", f.publisher.events)
	}
	// The worker owns the increment on this path.
	count, _ := badge.Count(ctx, f.badges, "bob")
	if count != 0 {
		t.Errorf("badge = %d, want 0 before the worker runs", count)
	}
	if len(f.broker.events()) != 0 {
		t.Error("background alerts must not go over the live channel")
	}
}

func TestNotificationService_Deliver_FallsBackInline(t *testing.T) {
	f := newNotifFixture()
	f.publisher.err = errors.New("stream unavailable")

	f.svc.Deliver(context.Background(), queue.NewNotificationEvent("bob", "t", "b", ""))

	select {
	case ev := <-f.background.handled:
		if ev.UserID != "bob" {
			t.Errorf("inline event user = %q", ev.UserID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("background handler was not called")
	}
}

func TestNotificationService_Notify_RecordsInbox(t *testing.T) {
	f := newNotifFixture("bob")
	ctx := context.Background()

	if err := f.svc.Notify(ctx, "bob", "New exchange request", "Someone wants Dune", "/exchanges"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	resp, err := f.svc.GetNotifications(ctx, "bob", 0)
	if err != nil {
		t.Fatalf("GetNotifications: %v", err)
	}
	if len(resp.Notifications) != 1 || resp.UnreadCount != 1 {
		t.Fatalf("inbox = %+v", resp)
	}
	n := resp.Notifications[0]
	if n.Link == nil || *n.Link != "/exchanges" {
		t.Errorf("link = %v", n.Link)
	}

	if err := f.svc.MarkAsRead(ctx, "bob", []int64{n.ID}); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
	unread, _ := f.svc.GetUnreadCount(ctx, "bob")
	if unread != 0 {
		t.Errorf("unread = %d, want 0", unread)
	}

	if err := f.svc.Dismiss(ctx, "bob", n.ID); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if err := f.svc.Dismiss(ctx, "bob", n.ID); !errors.Is(err, model.ErrNotificationNotFound) {
		t.Errorf("second dismiss err = %v, want ErrNotificationNotFound", err)
	}
}

func TestNotificationService_ClearBadge(t *testing.T) {
	f := newNotifFixture("bob")
	ctx := context.Background()

	f.svc.Deliver(ctx, queue.NewNotificationEvent("bob", "t", "b", ""))
	if err := f.svc.ClearBadge(ctx, "bob"); err != nil {
		t.Fatalf("ClearBadge: %v", err)
	}
	count, _ := f.svc.BadgeCount(ctx, "bob")
	if count != 0 {
		t.Errorf("badge = %d, want 0", count)
	}
}

func TestNotificationService_RegisterDeviceToken(t *testing.T) {
	f := newNotifFixture()
	ctx := context.Background()

	if err := f.svc.RegisterDeviceToken(ctx, "bob", "ExponentPushToken[abc]", ""); err != nil {
		t.Fatalf("register expo: %v", err)
	}
	if err := f.svc.RegisterDeviceToken(ctx, "bob", "fcm-token", ""); err != nil {
		t.Fatalf("register fcm: %v", err)
	}

	tokens, _ := f.tokens.GetByUserID(ctx, "bob")
	if len(tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(tokens))
	}
	if tokens[0].Platform != model.PlatformExpo || tokens[1].Platform != model.PlatformWeb {
		t.Errorf("platforms = %s, %s", tokens[0].Platform, tokens[1].Platform)
	}

	// A device changing hands moves to the new user.
	if err := f.svc.RegisterDeviceToken(ctx, "carol", "fcm-token", model.PlatformAndroid); err != nil {
		t.Fatalf("reassign: %v", err)
	}
	tokens, _ = f.tokens.GetByUserID(ctx, "bob")
	if len(tokens) != 1 {
		t.Errorf("bob tokens after reassign = %d, want 1", len(tokens))
	}

	if err := f.svc.RegisterDeviceToken(ctx, "bob", "x", "blackberry"); !errors.Is(err, model.ErrInvalidDeviceToken) {
		t.Errorf("unknown platform err = %v", err)
	}
	if err := f.svc.RegisterDeviceToken(ctx, "bob", "  ", ""); !errors.Is(err, model.ErrInvalidDeviceToken) {
		t.Errorf("blank token err = %v", err)
	}
}
