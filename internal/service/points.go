package service

import (
	"context"
	"fmt"
	"log"

	"bookpassport/internal/model"
	"bookpassport/internal/repository"
)

// PointsService moves point balances. Every change is an entry in the points
// history keyed by an intent id, applied together with the balance update in
// one transaction, so a replayed intent never counts twice.
type PointsService struct {
	pointsRepo  repository.PointsRepository
	profileRepo repository.ProfileRepository
}

func NewPointsService(pointsRepo repository.PointsRepository, profileRepo repository.ProfileRepository) *PointsService {
	return &PointsService{pointsRepo: pointsRepo, profileRepo: profileRepo}
}

// Award credits amount points. applied is false for a replayed intent.
func (s *PointsService) Award(ctx context.Context, userID string, amount int, reason, intentID string) (bool, error) {
	if amount <= 0 {
		return false, model.ErrInvalidPoints
	}
	return s.apply(ctx, userID, amount, reason, intentID)
}

// Spend debits amount points, failing with model.ErrInsufficientPoints when the
// balance would go negative.
func (s *PointsService) Spend(ctx context.Context, userID string, amount int, reason, intentID string) (bool, error) {
	if amount <= 0 {
		return false, model.ErrInvalidPoints
	}
	return s.apply(ctx, userID, -amount, reason, intentID)
}

func (s *PointsService) apply(ctx context.Context, userID string, delta int, reason, intentID string) (bool, error) {
	if intentID == "" {
		return false, fmt.Errorf("points intent id is required")
	}
	entry := &model.PointsEntry{
		UserID:       userID,
		PointsChange: delta,
		Reason:       reason,
		IntentID:     intentID,
	}
	applied, err := s.pointsRepo.Apply(ctx, entry)
	if err != nil {
		return false, err
	}
	if !applied {
		log.Printf("[PointsService] Intent %s already applied, skipping", intentID)
	}
	return applied, nil
}

// Balance returns the user's current points.
func (s *PointsService) Balance(ctx context.Context, userID string) (int, error) {
	profile, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return profile.Points, nil
}

// History returns the balance and the newest ledger entries.
func (s *PointsService) History(ctx context.Context, userID string, limit int) (*model.PointsHistoryResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	balance, err := s.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.pointsRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []model.PointsEntry{}
	}
	return &model.PointsHistoryResponse{Balance: balance, Entries: entries}, nil
}
