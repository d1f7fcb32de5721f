package model

import (
	"errors"
	"time"
)

// Exchange request statuses
const (
	ExchangePending  = "pending"
	ExchangeAccepted = "accepted"
	ExchangeDeclined = "declined"
)

// ExchangeRequest is a requester's ask for an owner's book.
type ExchangeRequest struct {
	ID          string    `db:"id" json:"id"`
	BookID      string    `db:"book_id" json:"book_id"`
	RequesterID string    `db:"requester_id" json:"requester_id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	Message     string    `db:"message" json:"message"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CreateExchangeRequest is the request body for asking for a book.
type CreateExchangeRequest struct {
	BookID  string `json:"book_id"`
	Message string `json:"message"`
}

// ExchangeListResponse splits the caller's requests by direction.
type ExchangeListResponse struct {
	Incoming []ExchangeRequest `json:"incoming"`
	Outgoing []ExchangeRequest `json:"outgoing"`
}

var (
	ErrExchangeNotFound     = errors.New("exchange request not found")
	ErrExchangeExists       = errors.New("exchange request already pending")
	ErrCannotRequestOwnBook = errors.New("cannot request your own book")
	ErrNotExchangeOwner     = errors.New("only the book owner can respond")
	ErrExchangeNotPending   = errors.New("exchange request is not pending")
)
