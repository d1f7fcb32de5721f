package realtime

import (
	"log"
	"sync"
)

// Presence is told when a user's first connection opens and last one closes.
type Presence interface {
	Connected(userID string)
	Disconnected(userID string)
}

// Hub tracks websocket clients by room and by user on this process.
// Delivery is at-most-once: a client whose buffer is full is dropped.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*Client]struct{}
	users    map[string]map[*Client]struct{}
	presence Presence
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		users: make(map[string]map[*Client]struct{}),
	}
}

// SetPresence installs a presence hook (optional).
func (h *Hub) SetPresence(p Presence) {
	h.mu.Lock()
	h.presence = p
	h.mu.Unlock()
}

// Register adds the client and queues the subscribed acknowledgement.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if c.room != "" {
		if h.rooms[c.room] == nil {
			h.rooms[c.room] = make(map[*Client]struct{})
		}
		h.rooms[c.room][c] = struct{}{}
	}
	first := len(h.users[c.userID]) == 0
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*Client]struct{})
	}
	h.users[c.userID][c] = struct{}{}
	presence := h.presence
	h.mu.Unlock()

	if first && presence != nil {
		presence.Connected(c.userID)
	}
	log.Printf("[Hub] Client connected: user=%s room=%s", c.userID, c.room)

	if data, err := subscribedEvent(c.room).Encode(); err == nil {
		c.enqueue(data)
	}
}

// Unregister removes the client and closes its send buffer. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	last := h.removeLocked(c)
	presence := h.presence
	h.mu.Unlock()

	if last && presence != nil {
		presence.Disconnected(c.userID)
	}
}

// removeLocked reports whether c was the user's last connection.
func (h *Hub) removeLocked(c *Client) bool {
	conns, ok := h.users[c.userID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	if members, ok := h.rooms[c.room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, c.room)
		}
	}
	c.closeSend()
	log.Printf("[Hub] Client disconnected: user=%s room=%s", c.userID, c.room)
	if len(conns) == 0 {
		delete(h.users, c.userID)
		return true
	}
	return false
}

// Deliver fans an event out to local clients and returns how many got it.
func (h *Hub) Deliver(ev Event) int {
	data, err := ev.Encode()
	if err != nil {
		log.Printf("[Hub] Deliver encode failed: type=%s err=%v", ev.Type, err)
		return 0
	}

	h.mu.RLock()
	var targets []*Client
	if ev.To != "" {
		targets = collect(h.users[ev.To])
	} else {
		targets = collect(h.rooms[ev.Room])
	}
	h.mu.RUnlock()

	delivered := 0
	var slow []*Client
	for _, c := range targets {
		if c.enqueue(data) {
			delivered++
		} else {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		log.Printf("[Hub] Dropping slow client: user=%s room=%s", c.userID, c.room)
		h.Unregister(c)
	}
	return delivered
}

// IsOnline reports whether the user has a live connection on this process.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// OnlineUsers lists users with at least one local connection.
func (h *Hub) OnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]string, 0, len(h.users))
	for id := range h.users {
		users = append(users, id)
	}
	return users
}

// RoomSize returns the number of local subscribers of a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func collect(set map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}
