package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"bookpassport/internal/model"
	"bookpassport/internal/queue"
	"bookpassport/internal/realtime"
)

// =============================================================================
// IN-MEMORY REPOSITORIES
// =============================================================================
//
// Services depend on repository interfaces, so tests run against these
// in-memory versions. Each keeps just enough state to behave like the
// Postgres implementation for the cases under test.

var idSeq struct {
	mu sync.Mutex
	n  int
}

func nextID(prefix string) string {
	idSeq.mu.Lock()
	defer idSeq.mu.Unlock()
	idSeq.n++
	return fmt.Sprintf("%s-%d", prefix, idSeq.n)
}

type mockRoomRepository struct {
	mu          sync.Mutex
	byName      map[string]*model.ChatRoom
	createCalls int
}

func newMockRoomRepository() *mockRoomRepository {
	return &mockRoomRepository{byName: map[string]*model.ChatRoom{}}
}

func (m *mockRoomRepository) GetByName(ctx context.Context, name string) (*model.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byName[name]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, model.ErrRoomNotFound
}

func (m *mockRoomRepository) GetByID(ctx context.Context, id string) (*model.ChatRoom, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byName {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, model.ErrRoomNotFound
}

func (m *mockRoomRepository) CreateIfAbsent(ctx context.Context, name string) (*model.ChatRoom, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if _, ok := m.byName[name]; ok {
		return nil, false, nil
	}
	r := &model.ChatRoom{ID: nextID("room"), Name: name, CreatedAt: time.Now()}
	m.byName[name] = r
	cp := *r
	return &cp, true, nil
}

type mockMessageRepository struct {
	mu       sync.Mutex
	messages []model.Message
	clock    time.Time
	createFn func(ctx context.Context, msg *model.Message) error
}

func newMockMessageRepository() *mockMessageRepository {
	return &mockMessageRepository{clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *mockMessageRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *mockMessageRepository) Create(ctx context.Context, msg *model.Message) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Millisecond)
	msg.ID = nextID("msg")
	msg.CreatedAt = m.clock
	m.messages = append(m.messages, *msg)
	return nil
}

type mockProfileRepository struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
}

func newMockProfileRepository(ids ...string) *mockProfileRepository {
	m := &mockProfileRepository{profiles: map[string]*model.Profile{}}
	for _, id := range ids {
		m.profiles[id] = &model.Profile{ID: id, Name: strings.ToUpper(id[:1]) + id[1:]}
	}
	return m
}

func (m *mockProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.profiles[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, model.ErrProfileNotFound
}

func (m *mockProfileRepository) CreateIfAbsent(ctx context.Context, p *model.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		cp := *p
		m.profiles[p.ID] = &cp
	}
	return nil
}

func (m *mockProfileRepository) Update(ctx context.Context, id string, req *model.UpdateProfileRequest) (*model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	if req.Username != nil {
		for otherID, other := range m.profiles {
			if otherID != id && other.Username != nil && *other.Username == *req.Username {
				return nil, model.ErrUsernameTaken
			}
		}
		p.Username = req.Username
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Bio != nil {
		p.Bio = req.Bio
	}
	if req.Location != nil {
		p.Location = req.Location
	}
	cp := *p
	return &cp, nil
}

func (m *mockProfileRepository) setPoints(id string, points int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id].Points = points
}

// mockPointsRepository moves balances on the profile repository the way the
// real Apply does inside its transaction.
type mockPointsRepository struct {
	mu       sync.Mutex
	profiles *mockProfileRepository
	entries  []model.PointsEntry
	intents  map[string]bool
}

func newMockPointsRepository(profiles *mockProfileRepository) *mockPointsRepository {
	return &mockPointsRepository{profiles: profiles, intents: map[string]bool{}}
}

func (m *mockPointsRepository) Apply(ctx context.Context, entry *model.PointsEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.intents[entry.IntentID] {
		return false, nil
	}

	m.profiles.mu.Lock()
	defer m.profiles.mu.Unlock()
	p, ok := m.profiles.profiles[entry.UserID]
	if !ok {
		return false, model.ErrProfileNotFound
	}
	if p.Points+entry.PointsChange < 0 {
		return false, model.ErrInsufficientPoints
	}
	p.Points += entry.PointsChange

	m.intents[entry.IntentID] = true
	entry.ID = int64(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return true, nil
}

func (m *mockPointsRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.PointsEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PointsEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

type mockBookRepository struct {
	mu      sync.Mutex
	books   map[string]*model.Book
	order   []string
	history []model.BookHistoryEntry
	clock   time.Time
}

func newMockBookRepository() *mockBookRepository {
	return &mockBookRepository{books: map[string]*model.Book{}, clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *mockBookRepository) Create(ctx context.Context, b *model.Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Second)
	b.ID = nextID("book")
	b.CreatedAt = m.clock
	cp := *b
	m.books[b.ID] = &cp
	m.order = append(m.order, b.ID)
	return nil
}

func (m *mockBookRepository) GetByID(ctx context.Context, id string) (*model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.books[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, model.ErrBookNotFound
}

func (m *mockBookRepository) List(ctx context.Context, query string, cursor *time.Time, limit int) ([]model.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Book
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		b := m.books[m.order[i]]
		if cursor != nil && !b.CreatedAt.Before(*cursor) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(b.Title+" "+b.Author), strings.ToLower(query)) {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *mockBookRepository) SetStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.books[id]
	if !ok {
		return model.ErrBookNotFound
	}
	b.Status = status
	return nil
}

func (m *mockBookRepository) AddHistory(ctx context.Context, e *model.BookHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.history) + 1)
	e.CreatedAt = time.Now()
	m.history = append(m.history, *e)
	return nil
}

func (m *mockBookRepository) ListHistory(ctx context.Context, bookID string) ([]model.BookHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.BookHistoryEntry
	for _, e := range m.history {
		if e.BookID == bookID {
			out = append(out, e)
		}
	}
	return out, nil
}

type mockWishlistRepository struct {
	mu    sync.Mutex
	items map[string]map[string]time.Time
}

func newMockWishlistRepository() *mockWishlistRepository {
	return &mockWishlistRepository{items: map[string]map[string]time.Time{}}
}

func (m *mockWishlistRepository) Exists(ctx context.Context, userID, bookID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[userID][bookID]
	return ok, nil
}

func (m *mockWishlistRepository) Add(ctx context.Context, userID, bookID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[userID] == nil {
		m.items[userID] = map[string]time.Time{}
	}
	if _, ok := m.items[userID][bookID]; ok {
		return false, nil
	}
	m.items[userID][bookID] = time.Now()
	return true, nil
}

func (m *mockWishlistRepository) Remove(ctx context.Context, userID, bookID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[userID][bookID]; !ok {
		return false, nil
	}
	delete(m.items[userID], bookID)
	return true, nil
}

func (m *mockWishlistRepository) ListByUser(ctx context.Context, userID string) ([]model.WishlistItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.WishlistItem
	for bookID, at := range m.items[userID] {
		out = append(out, model.WishlistItem{UserID: userID, BookID: bookID, CreatedAt: at})
	}
	return out, nil
}

type mockExchangeRepository struct {
	mu             sync.Mutex
	exchanges      map[string]*model.ExchangeRequest
	updateStatusFn func(ctx context.Context, id, status string) error
}

func newMockExchangeRepository() *mockExchangeRepository {
	return &mockExchangeRepository{exchanges: map[string]*model.ExchangeRequest{}}
}

func (m *mockExchangeRepository) Create(ctx context.Context, req *model.ExchangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.exchanges {
		if e.BookID == req.BookID && e.RequesterID == req.RequesterID && e.Status == model.ExchangePending {
			return model.ErrExchangeExists
		}
	}
	req.ID = nextID("ex")
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	cp := *req
	m.exchanges[req.ID] = &cp
	return nil
}

func (m *mockExchangeRepository) GetByID(ctx context.Context, id string) (*model.ExchangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.exchanges[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, model.ErrExchangeNotFound
}

func (m *mockExchangeRepository) UpdateStatus(ctx context.Context, id, status string) error {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exchanges[id]
	if !ok {
		return model.ErrExchangeNotFound
	}
	if e.Status != model.ExchangePending {
		return model.ErrExchangeNotPending
	}
	e.Status = status
	return nil
}

func (m *mockExchangeRepository) setStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.exchanges[id]; ok {
		e.Status = status
	}
}

func (m *mockExchangeRepository) ListForUser(ctx context.Context, userID string) ([]model.ExchangeRequest, []model.ExchangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var incoming, outgoing []model.ExchangeRequest
	for _, e := range m.exchanges {
		if e.OwnerID == userID {
			incoming = append(incoming, *e)
		}
		if e.RequesterID == userID {
			outgoing = append(outgoing, *e)
		}
	}
	return incoming, outgoing, nil
}

type mockNotificationRepository struct {
	mu            sync.Mutex
	notifications []model.Notification
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.notifications) + 1)
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *mockNotificationRepository) List(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for i := len(m.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		if m.notifications[i].UserID == userID {
			out = append(out, m.notifications[i])
		}
	}
	return out, nil
}

func (m *mockNotificationRepository) MarkAsRead(ctx context.Context, userID string, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		for _, id := range ids {
			if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
				m.notifications[i].Read = true
			}
		}
	}
	return nil
}

func (m *mockNotificationRepository) Delete(ctx context.Context, userID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notifications {
		if n.ID == id && n.UserID == userID {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return nil
		}
	}
	return model.ErrNotificationNotFound
}

func (m *mockNotificationRepository) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepository) forUser(userID string) []model.Notification {
	out, _ := m.List(context.Background(), userID, 1000)
	return out
}

type mockTokenRepository struct {
	mu            sync.Mutex
	tokens        []model.DeviceToken
	deleteManyArg []string
}

func (m *mockTokenRepository) Upsert(ctx context.Context, userID, token, platform string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tokens {
		if m.tokens[i].Token == token {
			m.tokens[i].UserID = userID
			m.tokens[i].Platform = platform
			return nil
		}
	}
	m.tokens = append(m.tokens, model.DeviceToken{ID: int64(len(m.tokens) + 1), UserID: userID, Token: token, Platform: platform})
	return nil
}

func (m *mockTokenRepository) GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.DeviceToken
	for _, t := range m.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTokenRepository) Delete(ctx context.Context, token string) error {
	_, err := m.DeleteMany(ctx, []string{token})
	return err
}

func (m *mockTokenRepository) DeleteMany(ctx context.Context, tokens []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteManyArg = append(m.deleteManyArg, tokens...)
	drop := map[string]bool{}
	for _, t := range tokens {
		drop[t] = true
	}
	kept := m.tokens[:0]
	var n int64
	for _, t := range m.tokens {
		if drop[t.Token] {
			n++
			continue
		}
		kept = append(kept, t)
	}
	m.tokens = kept
	return n, nil
}

// =============================================================================
// TRANSPORT MOCKS
// =============================================================================

type mockBroker struct {
	mu         sync.Mutex
	online     map[string]bool
	published  []realtime.Event
	publishErr error
}

func newMockBroker(online ...string) *mockBroker {
	b := &mockBroker{online: map[string]bool{}}
	for _, id := range online {
		b.online[id] = true
	}
	return b
}

func (b *mockBroker) Publish(ctx context.Context, ev realtime.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, ev)
	return b.publishErr
}

func (b *mockBroker) Online(ctx context.Context, userID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online[userID], nil
}

func (b *mockBroker) events() []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Event(nil), b.published...)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []queue.PushEvent
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, stream string, event queue.PushEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return "1-0", nil
}

type mockBackground struct {
	handled chan queue.PushEvent
}

func newMockBackground() *mockBackground {
	return &mockBackground{handled: make(chan queue.PushEvent, 8)}
}

func (b *mockBackground) HandleEvent(ctx context.Context, event queue.PushEvent) error {
	b.handled <- event
	return nil
}

type mockDeliverer struct {
	mu     sync.Mutex
	events []queue.PushEvent
}

func (d *mockDeliverer) Deliver(ctx context.Context, event queue.PushEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

type notifyCall struct {
	UserID, Title, Message, Link string
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *mockNotifier) Notify(ctx context.Context, userID, title, message, link string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{userID, title, message, link})
	return nil
}

// mockSender answers per token from a code table; tokens not in the table succeed.
type mockSender struct {
	mu      sync.Mutex
	codes   map[string]string
	err     error
	batches [][]string
}

func (s *mockSender) Send(ctx context.Context, tokens []string, msg model.PushMessage) ([]model.PushResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]string(nil), tokens...))
	if s.err != nil {
		return nil, s.err
	}
	results := make([]model.PushResult, len(tokens))
	for i, t := range tokens {
		results[i] = model.PushResult{Token: t}
		if code, ok := s.codes[t]; ok {
			results[i].Code = code
			results[i].Err = fmt.Errorf("send failed: %s", code)
		}
	}
	return results, nil
}
