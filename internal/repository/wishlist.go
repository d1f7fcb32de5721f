package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"bookpassport/internal/model"
)

type wishlistRepository struct {
	db *sqlx.DB
}

func NewWishlistRepository(db *sqlx.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Exists(ctx context.Context, userID, bookID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM wishlist WHERE user_id = $1 AND book_id = $2)`, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("check wishlist: %w", err)
	}
	return exists, nil
}

// Add relies on the (user_id, book_id) primary key, so two racing adds still
// leave exactly one row.
func (r *wishlistRepository) Add(ctx context.Context, userID, bookID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO wishlist (user_id, book_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("add wishlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("add wishlist rows: %w", err)
	}
	return n > 0, nil
}

func (r *wishlistRepository) Remove(ctx context.Context, userID, bookID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wishlist WHERE user_id = $1 AND book_id = $2`, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("remove wishlist item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove wishlist rows: %w", err)
	}
	return n > 0, nil
}

func (r *wishlistRepository) ListByUser(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	items := []model.WishlistItem{}
	err := r.db.SelectContext(ctx, &items,
		`SELECT user_id, book_id, created_at FROM wishlist WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return items, nil
}
