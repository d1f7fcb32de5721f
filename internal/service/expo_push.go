package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"bookpassport/internal/model"
)

// ExpoPushClient sends push notifications to React Native devices through
// Expo's Push API. It needs no credentials.
type ExpoPushClient struct {
	httpClient *http.Client
	endpoint   string
}

// ExpoPushMessage is the payload for Expo's Push API.
type ExpoPushMessage struct {
	To       []string          `json:"to"`
	Title    string            `json:"title,omitempty"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Badge    *int              `json:"badge,omitempty"`
	Priority string            `json:"priority,omitempty"`
}

// ExpoPushResponse is the response from Expo's API.
type ExpoPushResponse struct {
	Data []ExpoPushTicket `json:"data"`
}

type ExpoPushTicket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"` // "DeviceNotRegistered", "MessageTooBig", etc.
	} `json:"details,omitempty"`
}

const (
	expoPushURL             = "https://exp.host/--/api/v2/push/send"
	expoDeviceNotRegistered = "DeviceNotRegistered"
)

// NewExpoPushClient creates a new Expo Push client.
func NewExpoPushClient() *ExpoPushClient {
	return &ExpoPushClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   expoPushURL,
	}
}

// IsExpoToken reports whether a device token belongs to Expo rather than FCM.
func IsExpoToken(token string) bool {
	return strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken[")
}

// Send posts one message for all tokens; tickets come back in token order.
func (c *ExpoPushClient) Send(ctx context.Context, tokens []string, msg model.PushMessage) ([]model.PushResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	message := ExpoPushMessage{
		To:       tokens,
		Title:    msg.Title,
		Body:     msg.Body,
		Sound:    "default",
		Priority: "high",
		Data:     msg.Data,
	}
	if msg.Badge > 0 {
		badge := int(msg.Badge)
		message.Badge = &badge
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("expo api error: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	var pushResp ExpoPushResponse
	if err := json.Unmarshal(respBody, &pushResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	results := make([]model.PushResult, len(tokens))
	failCount := 0
	for i, token := range tokens {
		results[i] = model.PushResult{Token: token}
		if i >= len(pushResp.Data) {
			results[i].Err = fmt.Errorf("no ticket returned")
			failCount++
			continue
		}
		ticket := pushResp.Data[i]
		if ticket.Status == "ok" {
			continue
		}
		failCount++
		results[i].Err = fmt.Errorf("expo: %s", ticket.Message)
		results[i].Code = ticket.Details.Error
		if ticket.Details.Error == expoDeviceNotRegistered {
			results[i].Code = model.PushCodeTokenNotRegistered
		}
		log.Printf("[ExpoPush] Token %d failed: %s (error: %s)", i, ticket.Message, ticket.Details.Error)
	}

	log.Printf("[ExpoPush] Sent to %d tokens: %d success, %d failed",
		len(tokens), len(tokens)-failCount, failCount)

	return results, nil
}
