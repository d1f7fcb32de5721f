package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"bookpassport/internal/model"
	"bookpassport/internal/repository"
)

// PushService fans a message out to every registered device of a user and
// prunes tokens the provider reports as permanently dead.
type PushService struct {
	tokenRepo repository.DeviceTokenRepository
	fcm       PushSender // nil when FCM is not configured
	expo      PushSender // nil when Expo push is disabled
}

func NewPushService(tokenRepo repository.DeviceTokenRepository, fcm, expo PushSender) *PushService {
	return &PushService{tokenRepo: tokenRepo, fcm: fcm, expo: expo}
}

// Enabled reports whether any provider is configured.
func (s *PushService) Enabled() bool {
	return s.fcm != nil || s.expo != nil
}

// SendToUser validates an explicit send request and dispatches it.
func (s *PushService) SendToUser(ctx context.Context, req *model.SendPushRequest) (*model.PushOutcome, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(req.Body)
	if req.Title == "" || req.Body == "" || req.TargetUserID == "" {
		return nil, model.ErrPushTitleNeeded
	}
	if utf8.RuneCountInString(req.Title) > model.MaxPushTitleLength ||
		utf8.RuneCountInString(req.Body) > model.MaxPushBodyLength ||
		len(req.Link) > model.MaxPushLinkLength {
		return nil, model.ErrPushTooLong
	}

	msg := model.PushMessage{Title: req.Title, Body: req.Body, Data: map[string]string{}}
	if req.Link != "" {
		msg.Data["link"] = req.Link
	}
	return s.Dispatch(ctx, req.TargetUserID, msg)
}

// Dispatch sends msg to all of the user's devices.
// A user with no tokens gets model.ErrNoDeviceTokens and nothing is sent.
func (s *PushService) Dispatch(ctx context.Context, userID string, msg model.PushMessage) (*model.PushOutcome, error) {
	if !s.Enabled() {
		return nil, model.ErrPushDisabled
	}

	tokens, err := s.tokenRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil, model.ErrNoDeviceTokens
	}

	var fcmTokens, expoTokens []string
	for _, t := range tokens {
		if IsExpoToken(t.Token) {
			expoTokens = append(expoTokens, t.Token)
		} else {
			fcmTokens = append(fcmTokens, t.Token)
		}
	}

	outcome := &model.PushOutcome{}
	var dead []string
	var sendErrs []error

	for _, group := range []struct {
		name   string
		sender PushSender
		tokens []string
	}{
		{"fcm", s.fcm, fcmTokens},
		{"expo", s.expo, expoTokens},
	} {
		if len(group.tokens) == 0 {
			continue
		}
		if group.sender == nil {
			log.Printf("[Push] %s not configured, skipping %d tokens for user=%s", group.name, len(group.tokens), userID)
			outcome.Failed += len(group.tokens)
			continue
		}
		for _, batch := range chunk(group.tokens, model.MaxMulticastTokens) {
			results, err := group.sender.Send(ctx, batch, msg)
			if err != nil {
				log.Printf("[Push] %s batch failed: user=%s size=%d err=%v", group.name, userID, len(batch), err)
				outcome.Failed += len(batch)
				sendErrs = append(sendErrs, err)
				continue
			}
			messageRejected := rejectedAsMessage(results)
			if messageRejected {
				log.Printf("[Push] %s rejected every token as invalid, keeping them: user=%s size=%d", group.name, userID, len(batch))
			}
			for _, r := range results {
				if r.Success() {
					outcome.Sent++
					continue
				}
				outcome.Failed++
				if !r.Permanent() {
					continue
				}
				if messageRejected && r.Code == model.PushCodeInvalidToken {
					continue
				}
				dead = append(dead, r.Token)
			}
		}
	}

	if len(dead) > 0 {
		n, err := s.tokenRepo.DeleteMany(ctx, dead)
		if err != nil {
			log.Printf("[Push] Failed to prune %d dead tokens for user=%s: %v", len(dead), userID, err)
		} else {
			outcome.Pruned = int(n)
			log.Printf("[Push] Pruned %d dead tokens for user=%s", n, userID)
		}
	}

	if outcome.Sent == 0 && len(sendErrs) > 0 {
		return outcome, fmt.Errorf("push dispatch: %w", errors.Join(sendErrs...))
	}

	log.Printf("[Push] Dispatch OK: user=%s sent=%d failed=%d pruned=%d",
		userID, outcome.Sent, outcome.Failed, outcome.Pruned)
	return outcome, nil
}

// rejectedAsMessage reports whether every token in a batch failed with the
// invalid-argument code. The provider uses that code for a bad message too
// (e.g. an oversized payload), so a whole-batch rejection says nothing about
// the tokens.
func rejectedAsMessage(results []model.PushResult) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Code != model.PushCodeInvalidToken {
			return false
		}
	}
	return true
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}
