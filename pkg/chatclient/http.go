package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"bookpassport/internal/model"
	"bookpassport/internal/realtime"
)

// HTTPBackend talks to the API with a bearer token.
type HTTPBackend struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPBackend(baseURL, token string) *HTTPBackend {
	return &HTTPBackend{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-2xx response in the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

func (b *HTTPBackend) OpenGeneral(ctx context.Context) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := b.do(ctx, http.MethodPost, "/api/chat/rooms/general", nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (b *HTTPBackend) OpenDirect(ctx context.Context, userID string) (*model.ChatRoom, error) {
	var room model.ChatRoom
	if err := b.do(ctx, http.MethodPost, "/api/chat/rooms/direct/"+url.PathEscape(userID), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (b *HTTPBackend) ListMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	var resp model.MessageListResponse
	if err := b.do(ctx, http.MethodGet, "/api/chat/rooms/"+url.PathEscape(roomID)+"/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (b *HTTPBackend) SendMessage(ctx context.Context, roomID, content string) (*model.Message, error) {
	var msg model.Message
	body := model.SendMessageRequest{Content: content}
	if err := b.do(ctx, http.MethodPost, "/api/chat/rooms/"+url.PathEscape(roomID)+"/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (b *HTTPBackend) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// WebsocketDialer subscribes through GET /ws. The token goes in the query
// string because browsers' websocket API cannot set headers; this client
// follows the same contract.
func WebsocketDialer(baseURL, token string) Dialer {
	return func(ctx context.Context, room string) (Channel, error) {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/ws")
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		switch u.Scheme {
		case "https":
			u.Scheme = "wss"
		case "http":
			u.Scheme = "ws"
		}
		q := u.Query()
		q.Set("room", room)
		q.Set("access_token", token)
		u.RawQuery = q.Encode()

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("dial websocket: %w", err)
		}
		return &wsChannel{conn: conn}, nil
	}
}

type wsChannel struct {
	conn *websocket.Conn
}

func (c *wsChannel) ReadEvent() (realtime.Event, error) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return realtime.Event{}, err
		}
		ev, err := realtime.DecodeEvent(data)
		if err != nil {
			continue
		}
		return ev, nil
	}
}

func (c *wsChannel) Close() error {
	return c.conn.Close()
}
