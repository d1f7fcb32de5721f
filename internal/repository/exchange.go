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

type exchangeRepository struct {
	db *sqlx.DB
}

func NewExchangeRepository(db *sqlx.DB) ExchangeRepository {
	return &exchangeRepository{db: db}
}

const exchangeColumns = `id, book_id, requester_id, owner_id, message, status, created_at, updated_at`

// Create inserts a pending request. The partial unique index on
// (book_id, requester_id) WHERE status = 'pending' turns a duplicate into
// model.ErrExchangeExists.
func (r *exchangeRepository) Create(ctx context.Context, req *model.ExchangeRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.Status = model.ExchangePending
	query := `
		INSERT INTO exchange_requests (id, book_id, requester_id, owner_id, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		req.ID, req.BookID, req.RequesterID, req.OwnerID, req.Message, req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrExchangeExists
		}
		return fmt.Errorf("insert exchange request: %w", err)
	}
	return nil
}

func (r *exchangeRepository) GetByID(ctx context.Context, id string) (*model.ExchangeRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.ErrExchangeNotFound
	}
	var req model.ExchangeRequest
	err := r.db.GetContext(ctx, &req, `SELECT `+exchangeColumns+` FROM exchange_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrExchangeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exchange request: %w", err)
	}
	return &req, nil
}

// UpdateStatus only moves pending requests, so two racing responses can't both win.
func (r *exchangeRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE exchange_requests SET status = $2, updated_at = NOW() WHERE id = $1 AND status = 'pending'`,
		id, status)
	if err != nil {
		return fmt.Errorf("update exchange status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrExchangeNotPending
	}
	return nil
}

func (r *exchangeRepository) ListForUser(ctx context.Context, userID string) ([]model.ExchangeRequest, []model.ExchangeRequest, error) {
	incoming := []model.ExchangeRequest{}
	err := r.db.SelectContext(ctx, &incoming,
		`SELECT `+exchangeColumns+` FROM exchange_requests WHERE owner_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list incoming exchanges: %w", err)
	}
	outgoing := []model.ExchangeRequest{}
	err = r.db.SelectContext(ctx, &outgoing,
		`SELECT `+exchangeColumns+` FROM exchange_requests WHERE requester_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("list outgoing exchanges: %w", err)
	}
	return incoming, outgoing, nil
}
