package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookpassport/internal/model"
)

type messageRepository struct {
	db *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{db: db}
}

// ListByRoom returns a room's messages oldest first. id breaks created_at ties
// so the order is stable between calls.
func (r *messageRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	var err error
	if limit > 0 {
		// newest `limit` messages, returned in ascending order
		query := `
			SELECT * FROM (
				SELECT id, room_id, user_id, content, user_name, user_email, created_at
				FROM messages
				WHERE room_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			) recent
			ORDER BY created_at ASC, id ASC
		`
		err = r.db.SelectContext(ctx, &messages, query, roomID, limit)
	} else {
		query := `
			SELECT id, room_id, user_id, content, user_name, user_email, created_at
			FROM messages
			WHERE room_id = $1
			ORDER BY created_at ASC, id ASC
		`
		err = r.db.SelectContext(ctx, &messages, query, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// Create inserts one message. The id and created_at are assigned here and by
// the database respectively and written back into msg.
func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	query := `
		INSERT INTO messages (id, room_id, user_id, content, user_name, user_email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		msg.ID, msg.RoomID, msg.UserID, msg.Content, msg.UserName, msg.UserEmail,
	).Scan(&msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}
