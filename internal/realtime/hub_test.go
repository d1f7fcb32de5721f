package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookpassport/internal/model"
)

type recordingPresence struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPresence) Connected(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "+"+userID)
}

func (p *recordingPresence) Disconnected(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, "-"+userID)
}

func drain(t *testing.T, c *Client) []Event {
	t.Helper()
	var out []Event
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return out
			}
			ev, err := DecodeEvent(data)
			require.NoError(t, err)
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHub_RegisterSendsSubscribed(t *testing.T) {
	hub := NewHub()
	c := NewClient(hub, nil, "alice", "general")
	hub.Register(c)

	events := drain(t, c)
	require.Len(t, events, 1)
	assert.Equal(t, EventSubscribed, events[0].Type)
	assert.Equal(t, "general", events[0].Room)
	assert.True(t, hub.IsOnline("alice"))
	assert.Equal(t, 1, hub.RoomSize("general"))
}

func TestHub_DeliverRoomScoped(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil, "alice", "general")
	b := NewClient(hub, nil, "bob", "general")
	other := NewClient(hub, nil, "carol", "direct:a-b")
	for _, c := range []*Client{a, b, other} {
		hub.Register(c)
		drain(t, c)
	}

	msg := &model.Message{ID: "m1", RoomID: "r1", Content: "hi"}
	n := hub.Deliver(NewMessageEvent("general", msg))
	assert.Equal(t, 2, n)

	for _, c := range []*Client{a, b} {
		events := drain(t, c)
		require.Len(t, events, 1)
		assert.Equal(t, "m1", events[0].Message.ID)
	}
	assert.Empty(t, drain(t, other))
}

func TestHub_DeliverUserScopedReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	phone := NewClient(hub, nil, "bob", "")
	laptop := NewClient(hub, nil, "bob", "general")
	hub.Register(phone)
	hub.Register(laptop)
	drain(t, phone)
	drain(t, laptop)

	n := hub.Deliver(NewNotificationEvent("bob", Notice{Title: "New message", Badge: 1}))
	assert.Equal(t, 2, n)
	assert.Len(t, drain(t, phone), 1)
	assert.Len(t, drain(t, laptop), 1)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	c := NewClient(hub, nil, "alice", "general")
	hub.Register(c)

	// Fill the buffer (the subscribed frame is already in it).
	for i := 0; i < sendBuffer; i++ {
		hub.Deliver(NewMessageEvent("general", &model.Message{ID: "x"}))
	}

	assert.False(t, hub.IsOnline("alice"))
	assert.Zero(t, hub.RoomSize("general"))
	assert.Zero(t, hub.Deliver(NewMessageEvent("general", &model.Message{ID: "late"})))
}

func TestHub_PresenceOnFirstAndLastConnection(t *testing.T) {
	hub := NewHub()
	p := &recordingPresence{}
	hub.SetPresence(p)

	a := NewClient(hub, nil, "alice", "general")
	b := NewClient(hub, nil, "alice", "")
	hub.Register(a)
	hub.Register(b)
	hub.Unregister(a)
	hub.Unregister(a)
	hub.Unregister(b)

	assert.Equal(t, []string{"+alice", "-alice"}, p.events)
	assert.False(t, hub.IsOnline("alice"))
}

func TestLocalBroker(t *testing.T) {
	hub := NewHub()
	broker := NewLocalBroker(hub)
	ctx := context.Background()

	online, err := broker.Online(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, online)

	c := NewClient(hub, nil, "bob", "general")
	hub.Register(c)
	drain(t, c)

	online, err = broker.Online(ctx, "bob")
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, broker.Publish(ctx, NewMessageEvent("general", &model.Message{ID: "m"})))
	assert.Len(t, drain(t, c), 1)
}

func TestDecodeEvent_RejectsUntyped(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"room":"general"}`))
	assert.Error(t, err)
	_, err = DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}

// End to end over a real websocket: join, receive the ack, receive a broadcast.
func TestClient_WebsocketRoundTrip(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := NewClient(hub, conn, r.URL.Query().Get("user"), r.URL.Query().Get("room"))
		hub.Register(c)
		go c.WritePump()
		go c.ReadPump()
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=alice&room=general"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() Event {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		ev, err := DecodeEvent(data)
		require.NoError(t, err)
		return ev
	}

	assert.Equal(t, EventSubscribed, read().Type)

	hub.Deliver(NewMessageEvent("general", &model.Message{ID: "m1", Content: "hello"}))
	ev := read()
	assert.Equal(t, EventMessage, ev.Type)
	assert.Equal(t, "hello", ev.Message.Content)

	conn.Close()
	require.Eventually(t, func() bool { return !hub.IsOnline("alice") }, 2*time.Second, 10*time.Millisecond)
}
