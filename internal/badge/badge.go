// Package badge keeps the unread-notification counter shown as an in-app badge.
//
// Live delivery over a websocket and background delivery through the push
// worker both move the counter through Increment, against the same Store, so
// the two paths can never disagree about the value.
package badge

import (
	"context"
	"fmt"
)

// KeyPrefix namespaces badge counters. There is one counter per user, shared by
// every conversation.
const KeyPrefix = "badge:"

// Store is the storage port the counter runs against.
type Store interface {
	// Incr atomically adds one and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Get returns the current value, zero when the key is unset.
	Get(ctx context.Context, key string) (int64, error)
	// Reset clears the counter.
	Reset(ctx context.Context, key string) error
}

// Key returns the counter key for a user.
func Key(userID string) string {
	return KeyPrefix + userID
}

// Increment bumps the user's counter and returns the new value.
func Increment(ctx context.Context, store Store, userID string) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("badge: empty user id")
	}
	n, err := store.Incr(ctx, Key(userID))
	if err != nil {
		return 0, fmt.Errorf("badge increment: %w", err)
	}
	return n, nil
}

// Count returns the user's current counter.
func Count(ctx context.Context, store Store, userID string) (int64, error) {
	n, err := store.Get(ctx, Key(userID))
	if err != nil {
		return 0, fmt.Errorf("badge count: %w", err)
	}
	return n, nil
}

// Clear resets the user's counter, typically when the inbox is opened.
func Clear(ctx context.Context, store Store, userID string) error {
	if err := store.Reset(ctx, Key(userID)); err != nil {
		return fmt.Errorf("badge clear: %w", err)
	}
	return nil
}
