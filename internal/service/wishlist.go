package service

import (
	"context"

	"bookpassport/internal/model"
	"bookpassport/internal/repository"
)

// WishlistService records which books a user wants. The (user, book) pair is
// unique in the database, so concurrent adds collapse into one row.
type WishlistService struct {
	wishlistRepo repository.WishlistRepository
	bookRepo     repository.BookRepository
}

func NewWishlistService(wishlistRepo repository.WishlistRepository, bookRepo repository.BookRepository) *WishlistService {
	return &WishlistService{wishlistRepo: wishlistRepo, bookRepo: bookRepo}
}

// Add puts the book on the wishlist. A second add reports AlreadyLogged.
func (s *WishlistService) Add(ctx context.Context, userID, bookID string) (*model.WishlistToggleResult, error) {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	added, err := s.wishlistRepo.Add(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	return &model.WishlistToggleResult{BookID: bookID, InWishlist: true, AlreadyLogged: !added}, nil
}

// Remove takes the book off the wishlist. Removing a non-member is a no-op.
func (s *WishlistService) Remove(ctx context.Context, userID, bookID string) (*model.WishlistToggleResult, error) {
	if _, err := s.wishlistRepo.Remove(ctx, userID, bookID); err != nil {
		return nil, err
	}
	return &model.WishlistToggleResult{BookID: bookID, InWishlist: false}, nil
}

// Toggle flips membership, the heart-button behaviour.
func (s *WishlistService) Toggle(ctx context.Context, userID, bookID string) (*model.WishlistToggleResult, error) {
	exists, err := s.wishlistRepo.Exists(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if exists {
		return s.Remove(ctx, userID, bookID)
	}
	return s.Add(ctx, userID, bookID)
}

// List returns the user's wishlist, newest first.
func (s *WishlistService) List(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	items, err := s.wishlistRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.WishlistItem{}
	}
	return items, nil
}
