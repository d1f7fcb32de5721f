package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"bookpassport/internal/model"
)

// pgCheckViolation is raised by the points >= 0 constraint.
const pgCheckViolation = "23514"

type pointsRepository struct {
	db *sqlx.DB
}

func NewPointsRepository(db *sqlx.DB) PointsRepository {
	return &pointsRepository{db: db}
}

// Apply inserts the history row first, keyed by the unique intent id, and only
// moves the balance when that insert actually happened. Both writes share one
// transaction, so the total and the history can't drift apart.
func (r *pointsRepository) Apply(ctx context.Context, entry *model.PointsEntry) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO points_history (user_id, points_change, reason, intent_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (intent_id) DO NOTHING
		RETURNING id, created_at
	`
	err = tx.QueryRowxContext(ctx, query, entry.UserID, entry.PointsChange, entry.Reason, entry.IntentID).
		Scan(&entry.ID, &entry.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert points history: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE profiles SET points = points + $2, updated_at = NOW() WHERE id = $1`,
		entry.UserID, entry.PointsChange)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgCheckViolation {
			return false, model.ErrInsufficientPoints
		}
		return false, fmt.Errorf("update points: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, model.ErrProfileNotFound
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return true, nil
}

func (r *pointsRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.PointsEntry, error) {
	query := `
		SELECT id, user_id, points_change, reason, intent_id, created_at
		FROM points_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	entries := []model.PointsEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, userID, limit); err != nil {
		return nil, fmt.Errorf("list points history: %w", err)
	}
	return entries, nil
}
