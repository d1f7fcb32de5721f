package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bookpassport/internal/badge"
	"bookpassport/internal/model"
	"bookpassport/internal/queue"
)

// PushDispatcher sends a message to every device of a user.
// This abstracts the push service so workers don't depend on providers directly.
type PushDispatcher interface {
	Dispatch(ctx context.Context, userID string, msg model.PushMessage) (*model.PushOutcome, error)
}

// Handler processes push events from the queue. It is the background half of
// notification delivery: it moves the badge counter and sends the OS push.
type Handler struct {
	push   PushDispatcher // nil when no push provider is configured
	badges badge.Store
}

// NewHandler creates a new event handler.
func NewHandler(push PushDispatcher, badges badge.Store) *Handler {
	return &Handler{push: push, badges: badges}
}

// HandleEvent routes an event to the appropriate handler based on type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.PushEvent) error {
	startTime := time.Now()

	switch event.Type {
	case queue.EventChatMessage, queue.EventNotification:
	default:
		log.Printf("[Worker] Unknown event type: %s", event.Type)
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	err := h.handlePush(ctx, event)
	if err != nil {
		log.Printf("[Worker] HandleEvent FAILED: type=%s user=%s duration=%v err=%v",
			event.Type, event.UserID, time.Since(startTime), err)
		return err
	}

	log.Printf("[Worker] HandleEvent OK: type=%s user=%s duration=%v", event.Type, event.UserID, time.Since(startTime))
	return nil
}

// handlePush increments the badge and sends the push carrying the new count.
func (h *Handler) handlePush(ctx context.Context, event queue.PushEvent) error {
	count, err := badge.Increment(ctx, h.badges, event.UserID)
	if err != nil {
		// The push still goes out, just without a badge number.
		log.Printf("[Worker] Badge increment failed: user=%s err=%v", event.UserID, err)
	}

	if h.push == nil {
		log.Printf("[Worker] Push not configured, skipping: user=%s", event.UserID)
		return nil
	}

	msg := event.PushMessage()
	msg.Badge = count

	outcome, err := h.push.Dispatch(ctx, event.UserID, msg)
	switch {
	case errors.Is(err, model.ErrNoDeviceTokens):
		log.Printf("[Worker] No devices for user=%s, nothing sent", event.UserID)
		return nil
	case errors.Is(err, model.ErrPushDisabled):
		return nil
	case err != nil:
		return fmt.Errorf("dispatch push: %w", err)
	}

	log.Printf("[Worker] Push DONE: user=%s sent=%d failed=%d pruned=%d",
		event.UserID, outcome.Sent, outcome.Failed, outcome.Pruned)
	return nil
}
