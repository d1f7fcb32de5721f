package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"bookpassport/internal/model"
)

// PushSender delivers one message to a batch of device tokens and reports a
// result per token, in the same order as tokens.
type PushSender interface {
	Send(ctx context.Context, tokens []string, msg model.PushMessage) ([]model.PushResult, error)
}

// FCMClient wraps the Firebase Cloud Messaging client.
//
// The credentials (project ID, client email, private key) come from the Firebase
// console service account. The private key in .env has literal "\n" sequences.
type FCMClient struct {
	client *messaging.Client
}

// NewFCMClient creates a new FCM client from environment credentials.
func NewFCMClient(ctx context.Context, projectID, clientEmail, privateKey string) (*FCMClient, error) {
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	credsJSON := fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, projectID, privateKey, clientEmail)

	opt := option.WithCredentialsJSON([]byte(credsJSON))
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log.Printf("[FCM] Initialized for project: %s", projectID)
	return &FCMClient{client: client}, nil
}

// Send multicasts to at most model.MaxMulticastTokens tokens.
func (c *FCMClient) Send(ctx context.Context, tokens []string, msg model.PushMessage) ([]model.PushResult, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > model.MaxMulticastTokens {
		return nil, fmt.Errorf("fcm multicast: %d tokens exceeds limit of %d", len(tokens), model.MaxMulticastTokens)
	}

	message := buildMulticast(tokens, msg)

	response, err := c.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("send multicast: %w", err)
	}

	log.Printf("[FCM] Sent to %d tokens: %d success, %d failure",
		len(tokens), response.SuccessCount, response.FailureCount)

	results := make([]model.PushResult, len(tokens))
	for i, resp := range response.Responses {
		results[i] = model.PushResult{Token: tokens[i]}
		if resp.Success {
			continue
		}
		results[i].Err = resp.Error
		results[i].Code = fcmErrorCode(resp.Error)
		log.Printf("[FCM] Token %d failed: code=%s err=%v", i, results[i].Code, resp.Error)
	}
	return results, nil
}

func buildMulticast(tokens []string, msg model.PushMessage) *messaging.MulticastMessage {
	aps := &messaging.Aps{Sound: "default"}
	if msg.Badge > 0 {
		badge := int(msg.Badge)
		aps.Badge = &badge
	}

	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	if msg.Badge > 0 {
		data["badge"] = strconv.FormatInt(msg.Badge, 10)
	}

	m := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{Aps: aps},
		},
	}
	if link := msg.Data["link"]; link != "" {
		m.Webpush = &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: link},
		}
	}
	return m
}

// fcmErrorCode maps SDK errors onto the provider codes used for pruning.
func fcmErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case messaging.IsUnregistered(err):
		return model.PushCodeTokenNotRegistered
	case messaging.IsInvalidArgument(err):
		return model.PushCodeInvalidToken
	default:
		return "unknown"
	}
}
