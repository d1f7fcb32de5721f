package worker_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"bookpassport/internal/badge"
	"bookpassport/internal/model"
	"bookpassport/internal/queue"
	"bookpassport/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockDispatcher records every push the handler sends.
type MockDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	err   error
}

type dispatchCall struct {
	UserID string
	Msg    model.PushMessage
}

func (m *MockDispatcher) Dispatch(ctx context.Context, userID string, msg model.PushMessage) (*model.PushOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, dispatchCall{UserID: userID, Msg: msg})
	if m.err != nil {
		return nil, m.err
	}
	return &model.PushOutcome{Sent: 1}, nil
}

func (m *MockDispatcher) Calls() []dispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]dispatchCall(nil), m.calls...)
}

// =============================================================================
// Test Helpers
// =============================================================================

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}

	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1

	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}

	client.FlushDB(ctx)

	return client
}

func cleanupTestRedis(client *redis.Client) {
	ctx := context.Background()
	client.FlushDB(ctx)
	client.Close()
}

// =============================================================================
// Handler Tests
// =============================================================================

func TestHandleEvent_IncrementsBadgeAndSendsPush(t *testing.T) {
	ctx := context.Background()
	badges := badge.NewMemoryStore()
	dispatcher := &MockDispatcher{}
	handler := worker.NewHandler(dispatcher, badges)

	msg := &model.Message{ID: "m1", RoomID: "room-1", UserID: "alice", Content: "hello"}
	for i := 0; i < 2; i++ {
		if err := handler.HandleEvent(ctx, queue.NewChatMessageEvent("bob", "Alice", msg)); err != nil {
			t.Fatalf("HandleEvent failed: %v", err)
		}
	}

	calls := dispatcher.Calls()
	if len(calls) != 2 {
		t.Fatalf("dispatch calls: got %d, want 2", len(calls))
	}
	if calls[0].UserID != "bob" {
		t.Errorf("recipient: got %s, want bob", calls[0].UserID)
	}
	if calls[0].Msg.Badge != 1 || calls[1].Msg.Badge != 2 {
		t.Errorf("badge numbers: got %d,%d, want 1,2", calls[0].Msg.Badge, calls[1].Msg.Badge)
	}
	if calls[0].Msg.Data["room_id"] != "room-1" {
		t.Errorf("room_id data: got %q", calls[0].Msg.Data["room_id"])
	}

	count, _ := badge.Count(ctx, badges, "bob")
	if count != 2 {
		t.Errorf("badge count: got %d, want 2", count)
	}
}

func TestHandleEvent_NoDevicesIsNotAnError(t *testing.T) {
	ctx := context.Background()
	badges := badge.NewMemoryStore()
	handler := worker.NewHandler(&MockDispatcher{err: model.ErrNoDeviceTokens}, badges)

	err := handler.HandleEvent(ctx, queue.NewNotificationEvent("bob", "Points earned", "You earned 50 points", ""))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// The alert still counts as unread.
	count, _ := badge.Count(ctx, badges, "bob")
	if count != 1 {
		t.Errorf("badge count: got %d, want 1", count)
	}
}

func TestHandleEvent_DispatchFailure(t *testing.T) {
	handler := worker.NewHandler(&MockDispatcher{err: errors.New("fcm down")}, badge.NewMemoryStore())

	err := handler.HandleEvent(context.Background(), queue.NewNotificationEvent("bob", "t", "b", ""))
	if err == nil {
		t.Fatal("expected error when dispatch fails")
	}
}

func TestHandleEvent_UnknownType(t *testing.T) {
	dispatcher := &MockDispatcher{}
	handler := worker.NewHandler(dispatcher, badge.NewMemoryStore())

	err := handler.HandleEvent(context.Background(), queue.PushEvent{Type: "post_created", UserID: "bob"})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if len(dispatcher.Calls()) != 0 {
		t.Error("unknown events must not be dispatched")
	}
}

func TestHandleEvent_PushNotConfigured(t *testing.T) {
	ctx := context.Background()
	badges := badge.NewMemoryStore()
	handler := worker.NewHandler(nil, badges)

	if err := handler.HandleEvent(ctx, queue.NewNotificationEvent("bob", "t", "b", "")); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	count, _ := badge.Count(ctx, badges, "bob")
	if count != 1 {
		t.Errorf("badge count: got %d, want 1", count)
	}
}

// =============================================================================
// Stream + Worker Integration Tests
// =============================================================================

// TestStreamToWorkerIntegration tests the complete flow:
// Publisher -> Stream -> Consumer -> Handler -> Badge + Push
func TestStreamToWorkerIntegration(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx := context.Background()

	badges := badge.NewRedisStore(client)
	publisher := queue.NewPublisher(client)
	consumer := queue.NewConsumer(client)
	dispatcher := &MockDispatcher{}
	handler := worker.NewHandler(dispatcher, badges)

	if err := consumer.EnsureGroup(ctx, queue.StreamPush, queue.ConsumerGroupPush); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}
	// A second call must tolerate the existing group.
	if err := consumer.EnsureGroup(ctx, queue.StreamPush, queue.ConsumerGroupPush); err != nil {
		t.Fatalf("EnsureGroup (existing) failed: %v", err)
	}

	event := queue.NewNotificationEvent("bob", "Exchange accepted", "Your request was accepted", "/exchanges")
	if _, err := publisher.Publish(ctx, queue.StreamPush, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	messages, err := consumer.Read(ctx, queue.StreamPush, queue.ConsumerGroupPush, "test-worker", 10, time.Second)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}

	msg := messages[0]
	if err := handler.HandleEvent(ctx, msg.Event); err != nil {
		t.Fatalf("HandleEvent failed: %v", err)
	}
	if err := consumer.Ack(ctx, queue.StreamPush, queue.ConsumerGroupPush, msg.ID); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	count, _ := badge.Count(ctx, badges, "bob")
	if count != 1 {
		t.Errorf("badge count: got %d, want 1", count)
	}
	if calls := dispatcher.Calls(); len(calls) != 1 || calls[0].Msg.Title != "Exchange accepted" {
		t.Errorf("unexpected dispatch calls: %+v", calls)
	}

	pending, _ := consumer.Pending(ctx, queue.StreamPush, queue.ConsumerGroupPush)
	if pending != 0 {
		t.Errorf("Expected 0 pending messages, got %d", pending)
	}
}

// TestManagerDrainsStream runs the worker pool against a real stream.
func TestManagerDrainsStream(t *testing.T) {
	client := setupTestRedis(t)
	defer cleanupTestRedis(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	badges := badge.NewRedisStore(client)
	dispatcher := &MockDispatcher{}
	publisher := queue.NewPublisher(client)

	for i := 0; i < 5; i++ {
		if _, err := publisher.Publish(ctx, queue.StreamPush, queue.NewNotificationEvent("carol", "t", "b", "")); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}

	cfg := worker.DefaultManagerConfig()
	cfg.ConsumerName = "test"
	cfg.BlockTimeout = 100 * time.Millisecond
	manager := worker.NewManager(queue.NewConsumer(client), worker.NewHandler(dispatcher, badges), cfg)

	done := make(chan error, 1)
	go func() { done <- manager.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(dispatcher.Calls()) < 5 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if n := len(dispatcher.Calls()); n != 5 {
		t.Errorf("dispatch calls: got %d, want 5", n)
	}
	count, _ := badge.Count(context.Background(), badges, "carol")
	if count != 5 {
		t.Errorf("badge count: got %d, want 5", count)
	}
}

// =============================================================================
// Manager Tests (no Redis)
// =============================================================================

// fakeConsumer serves one pending batch, then one fresh batch, then nothing.
type fakeConsumer struct {
	mu      sync.Mutex
	pending []queue.Message
	fresh   []queue.Message
	acked   []string
}

func (c *fakeConsumer) EnsureGroup(ctx context.Context, stream, group string) error { return nil }

func (c *fakeConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]queue.Message, error) {
	c.mu.Lock()
	batch := c.fresh
	c.fresh = nil
	c.mu.Unlock()
	if len(batch) == 0 {
		select {
		case <-ctx.Done():
		case <-time.After(block):
		}
	}
	return batch, nil
}

func (c *fakeConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]queue.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.pending
	c.pending = nil
	return batch, nil
}

func (c *fakeConsumer) Ack(ctx context.Context, stream, group string, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acked = append(c.acked, ids...)
	return nil
}

func (c *fakeConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	return 0, nil
}

func (c *fakeConsumer) Acked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.acked...)
}

func TestManager_ReplaysPendingAndAcksFailures(t *testing.T) {
	consumer := &fakeConsumer{
		pending: []queue.Message{{ID: "1-0", Event: queue.NewNotificationEvent("bob", "t", "b", "")}},
		fresh: []queue.Message{
			{ID: "2-0", Event: queue.NewNotificationEvent("bob", "t", "b", "")},
			{ID: "3-0", Event: queue.PushEvent{Type: "unknown", UserID: "bob"}},
		},
	}
	dispatcher := &MockDispatcher{}
	cfg := worker.DefaultManagerConfig()
	cfg.WorkerCount = 1
	cfg.BlockTimeout = 20 * time.Millisecond
	manager := worker.NewManager(consumer, worker.NewHandler(dispatcher, badge.NewMemoryStore()), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- manager.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for len(consumer.Acked()) < 3 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	acked := consumer.Acked()
	if len(acked) != 3 || acked[0] != "1-0" {
		t.Errorf("acked: got %v, want pending entry first and all 3 acked", acked)
	}
	if n := len(dispatcher.Calls()); n != 2 {
		t.Errorf("dispatch calls: got %d, want 2", n)
	}
}
