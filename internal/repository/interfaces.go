package repository

import (
	"context"
	"time"

	"bookpassport/internal/model"
)

type ChatRoomRepository interface {
	// GetByName returns model.ErrRoomNotFound when no room has that name.
	GetByName(ctx context.Context, name string) (*model.ChatRoom, error)
	GetByID(ctx context.Context, id string) (*model.ChatRoom, error)
	// CreateIfAbsent inserts a room, doing nothing on a name conflict.
	// created is false when another writer won the race.
	CreateIfAbsent(ctx context.Context, name string) (room *model.ChatRoom, created bool, err error)
}

type MessageRepository interface {
	// ListByRoom returns messages ordered by created_at ascending. limit <= 0 means unbounded.
	ListByRoom(ctx context.Context, roomID string, limit int) ([]model.Message, error)
	Create(ctx context.Context, msg *model.Message) error
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// CreateIfAbsent provisions a profile row; an existing row is left untouched.
	CreateIfAbsent(ctx context.Context, profile *model.Profile) error
	Update(ctx context.Context, id string, req *model.UpdateProfileRequest) (*model.Profile, error)
}

type PointsRepository interface {
	// Apply records the entry and moves the balance in one transaction.
	// applied is false when the intent id was already recorded.
	Apply(ctx context.Context, entry *model.PointsEntry) (applied bool, err error)
	ListByUser(ctx context.Context, userID string, limit int) ([]model.PointsEntry, error)
}

type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id string) (*model.Book, error)
	List(ctx context.Context, query string, cursor *time.Time, limit int) ([]model.Book, error)
	SetStatus(ctx context.Context, id, status string) error
	AddHistory(ctx context.Context, entry *model.BookHistoryEntry) error
	ListHistory(ctx context.Context, bookID string) ([]model.BookHistoryEntry, error)
}

type WishlistRepository interface {
	Exists(ctx context.Context, userID, bookID string) (bool, error)
	// Add returns false when the pair was already present.
	Add(ctx context.Context, userID, bookID string) (bool, error)
	// Remove returns false when there was nothing to remove.
	Remove(ctx context.Context, userID, bookID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]model.WishlistItem, error)
}

type ExchangeRepository interface {
	Create(ctx context.Context, req *model.ExchangeRequest) error
	GetByID(ctx context.Context, id string) (*model.ExchangeRequest, error)
	// UpdateStatus moves a pending request; returns model.ErrExchangeNotPending otherwise.
	UpdateStatus(ctx context.Context, id, status string) error
	ListForUser(ctx context.Context, userID string) (incoming, outgoing []model.ExchangeRequest, err error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	List(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, userID string, ids []int64) error
	// Delete dismisses a notification owned by userID.
	Delete(ctx context.Context, userID string, id int64) error
	GetUnreadCount(ctx context.Context, userID string) (int, error)
}

type DeviceTokenRepository interface {
	// Upsert creates or reassigns a device token to a user
	Upsert(ctx context.Context, userID, token, platform string) error
	// GetByUserID returns all device tokens for a user
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	// Delete removes a device token
	Delete(ctx context.Context, token string) error
	// DeleteMany prunes several tokens at once, returning how many rows went away.
	DeleteMany(ctx context.Context, tokens []string) (int64, error)
}
