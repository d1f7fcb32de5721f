package model

import "time"

// WishlistItem records a user's intent to acquire a book.
type WishlistItem struct {
	UserID    string    `db:"user_id" json:"-"`
	BookID    string    `db:"book_id" json:"book_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// WishlistToggleResult tells the caller what a wishlist call did.
// AlreadyLogged is set when an add found the pair already present.
type WishlistToggleResult struct {
	BookID        string `json:"book_id"`
	InWishlist    bool   `json:"in_wishlist"`
	AlreadyLogged bool   `json:"already_logged,omitempty"`
}
