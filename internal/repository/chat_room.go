package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookpassport/internal/model"
)

type chatRoomRepository struct {
	db *sqlx.DB
}

func NewChatRoomRepository(db *sqlx.DB) ChatRoomRepository {
	return &chatRoomRepository{db: db}
}

// GetByName does a point lookup on the unique room name.
func (r *chatRoomRepository) GetByName(ctx context.Context, name string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT id, name, created_at FROM chat_rooms WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room by name: %w", err)
	}
	return &room, nil
}

func (r *chatRoomRepository) GetByID(ctx context.Context, id string) (*model.ChatRoom, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrRoomNotFound
	}
	var room model.ChatRoom
	err := r.db.GetContext(ctx, &room, `SELECT id, name, created_at FROM chat_rooms WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room by id: %w", err)
	}
	return &room, nil
}

// CreateIfAbsent is an atomic upsert keyed by the unique name. When another
// writer already created the room, no row comes back and created is false.
func (r *chatRoomRepository) CreateIfAbsent(ctx context.Context, name string) (*model.ChatRoom, bool, error) {
	query := `
		INSERT INTO chat_rooms (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at
	`
	var room model.ChatRoom
	err := r.db.GetContext(ctx, &room, query, uuid.NewString(), name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("create room: %w", err)
	}
	return &room, true, nil
}
