package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"bookpassport/internal/model"
	"bookpassport/internal/repository"
)

const (
	defaultBookPageSize = 20
	maxBookPageSize     = 50
)

// PointsAwarder credits points against an intent id.
type PointsAwarder interface {
	Award(ctx context.Context, userID string, amount int, reason, intentID string) (bool, error)
}

// Notifier records and delivers an in-app notification.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, link string) error
}

// BookService manages listings and their journey stamps.
type BookService struct {
	bookRepo repository.BookRepository
	points   PointsAwarder
	notifier Notifier
}

func NewBookService(bookRepo repository.BookRepository, points PointsAwarder, notifier Notifier) *BookService {
	return &BookService{bookRepo: bookRepo, points: points, notifier: notifier}
}

// Create lists a book and rewards the owner with its point value.
// The reward and the notification are secondary: their failures are logged
// and the listing still succeeds.
func (s *BookService) Create(ctx context.Context, ownerID string, req *model.CreateBookRequest) (*model.Book, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, model.ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > model.MaxTitleLength {
		return nil, fmt.Errorf("%w: title exceeds %d characters", model.ErrTitleRequired, model.MaxTitleLength)
	}
	condition := strings.ToLower(strings.TrimSpace(req.Condition))
	if condition == "" {
		condition = model.ConditionGood
	}
	if !model.IsAllowedCondition(condition) {
		return nil, model.ErrInvalidCondition
	}
	if req.PointValue < 0 || req.PointValue > model.MaxBookPointValue {
		return nil, model.ErrInvalidPointValue
	}

	book := &model.Book{
		OwnerID:    ownerID,
		Title:      title,
		Author:     strings.TrimSpace(req.Author),
		Condition:  condition,
		PointValue: req.PointValue,
		CoverURL:   trimmedOrNil(req.CoverURL),
		City:       trimmedOrNil(req.City),
		Status:     model.BookAvailable,
	}
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	if book.PointValue > 0 {
		s.rewardListing(ctx, book)
	}

	return book, nil
}

func (s *BookService) rewardListing(ctx context.Context, book *model.Book) {
	intentID := model.PointsReasonBookListed + ":" + book.ID
	applied, err := s.points.Award(ctx, book.OwnerID, book.PointValue, model.PointsReasonBookListed, intentID)
	if err != nil {
		log.Printf("[BookService] Failed to award %d points to %s for book %s: %v",
			book.PointValue, book.OwnerID, book.ID, err)
		return
	}
	if !applied || s.notifier == nil {
		return
	}

	title := "Points earned"
	message := fmt.Sprintf("You earned %d points for listing %q", book.PointValue, book.Title)
	if err := s.notifier.Notify(ctx, book.OwnerID, title, message, "/books/"+book.ID); err != nil {
		log.Printf("[BookService] Failed to notify %s about book %s: %v", book.OwnerID, book.ID, err)
	}
}

// GetByID returns one listing.
func (s *BookService) GetByID(ctx context.Context, id string) (*model.Book, error) {
	return s.bookRepo.GetByID(ctx, id)
}

// List returns a page of the catalog, newest first. cursor is the created_at of
// the last book of the previous page (RFC3339Nano), empty for the first page.
func (s *BookService) List(ctx context.Context, query, cursor string, limit int) (*model.BookListResponse, error) {
	if limit <= 0 {
		limit = defaultBookPageSize
	}
	if limit > maxBookPageSize {
		limit = maxBookPageSize
	}

	var before *time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, model.ErrInvalidCursor
		}
		before = &t
	}

	books, err := s.bookRepo.List(ctx, strings.TrimSpace(query), before, limit+1)
	if err != nil {
		return nil, err
	}

	resp := &model.BookListResponse{Books: books}
	if len(books) > limit {
		resp.Books = books[:limit]
		resp.HasMore = true
		next := resp.Books[limit-1].CreatedAt.Format(time.RFC3339Nano)
		resp.NextCursor = &next
	}
	if resp.Books == nil {
		resp.Books = []model.Book{}
	}
	return resp, nil
}

// AddHistory stamps a new stop on the book's journey. Only the owner can.
func (s *BookService) AddHistory(ctx context.Context, userID, bookID string, req *model.CreateHistoryRequest) (*model.BookHistoryEntry, error) {
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != userID {
		return nil, model.ErrNotBookOwner
	}

	location := strings.TrimSpace(req.Location)
	note := strings.TrimSpace(req.Note)
	if location == "" {
		return nil, fmt.Errorf("%w: location is required", model.ErrInvalidHistory)
	}
	if utf8.RuneCountInString(note) > model.MaxNoteLength {
		return nil, fmt.Errorf("%w: note exceeds %d characters", model.ErrInvalidHistory, model.MaxNoteLength)
	}

	entry := &model.BookHistoryEntry{BookID: book.ID, UserID: userID, Location: location, Note: note}
	if err := s.bookRepo.AddHistory(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListHistory returns the book's journey, oldest stamp first.
func (s *BookService) ListHistory(ctx context.Context, bookID string) ([]model.BookHistoryEntry, error) {
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		return nil, err
	}
	entries, err := s.bookRepo.ListHistory(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.BookHistoryEntry{}
	}
	return entries, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
