package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"bookpassport/internal/model"
	"bookpassport/internal/repository"
)

// PointsLedger is the part of PointsService exchanges need.
type PointsLedger interface {
	PointsAwarder
	Spend(ctx context.Context, userID string, amount int, reason, intentID string) (bool, error)
	Balance(ctx context.Context, userID string) (int, error)
}

// ExchangeService runs the request / accept / decline flow for books.
type ExchangeService struct {
	exchangeRepo repository.ExchangeRepository
	bookRepo     repository.BookRepository
	points       PointsLedger
	notifier     Notifier
}

func NewExchangeService(
	exchangeRepo repository.ExchangeRepository,
	bookRepo repository.BookRepository,
	points PointsLedger,
	notifier Notifier,
) *ExchangeService {
	return &ExchangeService{
		exchangeRepo: exchangeRepo,
		bookRepo:     bookRepo,
		points:       points,
		notifier:     notifier,
	}
}

// Create asks the owner for a book. The requester needs enough points to
// cover the book's value; they are only debited on acceptance.
func (s *ExchangeService) Create(ctx context.Context, requesterID string, req *model.CreateExchangeRequest) (*model.ExchangeRequest, error) {
	book, err := s.bookRepo.GetByID(ctx, strings.TrimSpace(req.BookID))
	if err != nil {
		return nil, err
	}
	if book.OwnerID == requesterID {
		return nil, model.ErrCannotRequestOwnBook
	}
	if book.Status != model.BookAvailable {
		return nil, model.ErrBookUnavailable
	}

	balance, err := s.points.Balance(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if balance < book.PointValue {
		return nil, model.ErrInsufficientPoints
	}

	exchange := &model.ExchangeRequest{
		BookID:      book.ID,
		RequesterID: requesterID,
		OwnerID:     book.OwnerID,
		Message:     strings.TrimSpace(req.Message),
		Status:      model.ExchangePending,
	}
	if err := s.exchangeRepo.Create(ctx, exchange); err != nil {
		return nil, err
	}

	s.notify(ctx, book.OwnerID, "New exchange request",
		fmt.Sprintf("Someone would like %q", book.Title))
	return exchange, nil
}

// Accept debits the requester and hands the book over.
func (s *ExchangeService) Accept(ctx context.Context, ownerID, exchangeID string) (*model.ExchangeRequest, error) {
	exchange, book, err := s.loadForOwner(ctx, ownerID, exchangeID)
	if err != nil {
		return nil, err
	}

	debitIntent := "exchange:" + exchange.ID + ":debit"
	debited := false
	if book.PointValue > 0 {
		applied, err := s.points.Spend(ctx, exchange.RequesterID, book.PointValue, model.PointsReasonExchangeDebit, debitIntent)
		if err != nil {
			return nil, err
		}
		debited = applied
	}

	if err := s.exchangeRepo.UpdateStatus(ctx, exchange.ID, model.ExchangeAccepted); err != nil {
		if errors.Is(err, model.ErrExchangeNotPending) && debited {
			s.refundUnlessAccepted(ctx, exchange, book.PointValue)
		}
		return nil, err
	}
	exchange.Status = model.ExchangeAccepted

	if err := s.bookRepo.SetStatus(ctx, book.ID, model.BookExchanged); err != nil {
		log.Printf("[ExchangeService] Failed to mark book %s exchanged: %v", book.ID, err)
	}

	s.notify(ctx, exchange.RequesterID, "Exchange accepted",
		fmt.Sprintf("Your request for %q was accepted", book.Title))
	return exchange, nil
}

// Decline turns the request down. No points move.
func (s *ExchangeService) Decline(ctx context.Context, ownerID, exchangeID string) (*model.ExchangeRequest, error) {
	exchange, book, err := s.loadForOwner(ctx, ownerID, exchangeID)
	if err != nil {
		return nil, err
	}
	if err := s.exchangeRepo.UpdateStatus(ctx, exchange.ID, model.ExchangeDeclined); err != nil {
		return nil, err
	}
	exchange.Status = model.ExchangeDeclined

	s.notify(ctx, exchange.RequesterID, "Exchange declined",
		fmt.Sprintf("Your request for %q was declined", book.Title))
	return exchange, nil
}

// List returns the caller's incoming and outgoing requests.
func (s *ExchangeService) List(ctx context.Context, userID string) (*model.ExchangeListResponse, error) {
	incoming, outgoing, err := s.exchangeRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if incoming == nil {
		incoming = []model.ExchangeRequest{}
	}
	if outgoing == nil {
		outgoing = []model.ExchangeRequest{}
	}
	return &model.ExchangeListResponse{Incoming: incoming, Outgoing: outgoing}, nil
}

func (s *ExchangeService) loadForOwner(ctx context.Context, ownerID, exchangeID string) (*model.ExchangeRequest, *model.Book, error) {
	exchange, err := s.exchangeRepo.GetByID(ctx, exchangeID)
	if err != nil {
		return nil, nil, err
	}
	if exchange.OwnerID != ownerID {
		return nil, nil, model.ErrNotExchangeOwner
	}
	if exchange.Status != model.ExchangePending {
		return nil, nil, model.ErrExchangeNotPending
	}
	book, err := s.bookRepo.GetByID(ctx, exchange.BookID)
	if err != nil {
		return nil, nil, err
	}
	return exchange, book, nil
}

// refundUnlessAccepted returns a debit this call applied when the request was
// settled by someone else. A request that ended up accepted keeps the debit,
// whichever call moved the status.
func (s *ExchangeService) refundUnlessAccepted(ctx context.Context, exchange *model.ExchangeRequest, amount int) {
	current, err := s.exchangeRepo.GetByID(ctx, exchange.ID)
	if err != nil {
		log.Printf("[ExchangeService] Refund check failed for exchange %s: %v", exchange.ID, err)
		return
	}
	if current.Status == model.ExchangeAccepted {
		return
	}
	refundIntent := "exchange:" + exchange.ID + ":refund"
	if _, err := s.points.Award(ctx, exchange.RequesterID, amount, model.PointsReasonAdjustment, refundIntent); err != nil {
		log.Printf("[ExchangeService] Refund failed for exchange %s: %v", exchange.ID, err)
	}
}

func (s *ExchangeService) notify(ctx context.Context, userID, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, message, "/exchanges"); err != nil {
		log.Printf("[ExchangeService] Failed to notify %s: %v", userID, err)
	}
}
