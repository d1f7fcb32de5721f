package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bookpassport/internal/model"
)

type bookRepository struct {
	db *sqlx.DB
}

func NewBookRepository(db *sqlx.DB) BookRepository {
	return &bookRepository{db: db}
}

const bookColumns = `id, owner_id, title, author, condition, point_value, cover_url, city, status, created_at`

func (r *bookRepository) Create(ctx context.Context, b *model.Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = model.BookAvailable
	}
	query := `
		INSERT INTO books (id, owner_id, title, author, condition, point_value, cover_url, city, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		b.ID, b.OwnerID, b.Title, b.Author, b.Condition, b.PointValue, b.CoverURL, b.City, b.Status,
	).Scan(&b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id string) (*model.Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrBookNotFound
	}
	var b model.Book
	err := r.db.GetContext(ctx, &b, `SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &b, nil
}

// List returns available books newest first, older than cursor when set.
// query matches title or author case-insensitively.
func (r *bookRepository) List(ctx context.Context, query string, cursor *time.Time, limit int) ([]model.Book, error) {
	sqlQuery := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE status = 'available'
		  AND ($1::timestamptz IS NULL OR created_at < $1)
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%' OR author ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3
	`
	books := []model.Book{}
	if err := r.db.SelectContext(ctx, &books, sqlQuery, cursor, query, limit); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (r *bookRepository) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE books SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set book status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrBookNotFound
	}
	return nil
}

func (r *bookRepository) AddHistory(ctx context.Context, e *model.BookHistoryEntry) error {
	query := `
		INSERT INTO book_history (book_id, user_id, location, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query, e.BookID, e.UserID, e.Location, e.Note).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert book history: %w", err)
	}
	return nil
}

func (r *bookRepository) ListHistory(ctx context.Context, bookID string) ([]model.BookHistoryEntry, error) {
	query := `
		SELECT id, book_id, user_id, location, note, created_at
		FROM book_history
		WHERE book_id = $1
		ORDER BY created_at ASC, id ASC
	`
	entries := []model.BookHistoryEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, bookID); err != nil {
		return nil, fmt.Errorf("list book history: %w", err)
	}
	return entries, nil
}
