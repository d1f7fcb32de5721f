package model

import (
	"errors"
	"time"
)

// Ledger reasons recorded on points_history rows.
const (
	PointsReasonBookListed    = "book_listed"
	PointsReasonExchangeDebit = "exchange_debit"
	PointsReasonAdjustment    = "adjustment"
)

// PointsEntry is one row of the append-only points history. IntentID is
// unique: applying the same intent twice changes nothing the second time.
type PointsEntry struct {
	ID           int64     `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"-"`
	PointsChange int       `db:"points_change" json:"points_change"`
	Reason       string    `db:"reason" json:"reason"`
	IntentID     string    `db:"intent_id" json:"intent_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PointsHistoryResponse lists ledger entries with the current balance.
type PointsHistoryResponse struct {
	Balance int           `json:"balance"`
	Entries []PointsEntry `json:"entries"`
}

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidPoints      = errors.New("points change must be non-zero")
)
