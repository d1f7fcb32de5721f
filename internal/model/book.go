package model

import (
	"errors"
	"time"
)

// Book conditions accepted on a listing.
const (
	ConditionNew  = "new"
	ConditionGood = "good"
	ConditionFair = "fair"
	ConditionWorn = "worn"
)

// Book statuses
const (
	BookAvailable = "available"
	BookExchanged = "exchanged"
)

var allowedConditions = map[string]struct{}{
	ConditionNew:  {},
	ConditionGood: {},
	ConditionFair: {},
	ConditionWorn: {},
}

// IsAllowedCondition reports whether c is a known book condition.
func IsAllowedCondition(c string) bool {
	_, ok := allowedConditions[c]
	return ok
}

// Book is a physical book listed for exchange.
type Book struct {
	ID         string    `db:"id" json:"id"`
	OwnerID    string    `db:"owner_id" json:"owner_id"`
	Title      string    `db:"title" json:"title"`
	Author     string    `db:"author" json:"author"`
	Condition  string    `db:"condition" json:"condition"`
	PointValue int       `db:"point_value" json:"point_value"`
	CoverURL   *string   `db:"cover_url" json:"cover_url"`
	City       *string   `db:"city" json:"city"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// CreateBookRequest is the request body for listing a book.
type CreateBookRequest struct {
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Condition  string  `json:"condition"`
	PointValue int     `json:"point_value"`
	CoverURL   *string `json:"cover_url"`
	City       *string `json:"city"`
}

// BookListResponse is the paginated catalog response.
type BookListResponse struct {
	Books      []Book  `json:"books"`
	NextCursor *string `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}

// BookHistoryEntry is one stamp in a book's journey.
type BookHistoryEntry struct {
	ID        int64     `db:"id" json:"id"`
	BookID    string    `db:"book_id" json:"book_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Location  string    `db:"location" json:"location"`
	Note      string    `db:"note" json:"note"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CreateHistoryRequest is the request body for stamping a book's journey.
type CreateHistoryRequest struct {
	Location string `json:"location"`
	Note     string `json:"note"`
}

const (
	MaxBookPointValue = 500
	MaxTitleLength    = 200
	MaxNoteLength     = 1000
)

var (
	ErrBookNotFound      = errors.New("book not found")
	ErrNotBookOwner      = errors.New("not the owner of this book")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidCondition  = errors.New("invalid book condition")
	ErrInvalidPointValue = errors.New("invalid point value")
	ErrBookUnavailable   = errors.New("book is no longer available")
	ErrInvalidHistory    = errors.New("invalid history entry")
	ErrInvalidCursor     = errors.New("invalid cursor")
)
