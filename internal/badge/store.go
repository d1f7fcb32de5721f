package badge

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterTTL keeps abandoned counters from living forever.
const counterTTL = 30 * 24 * time.Hour

// RedisStore keeps counters in Redis so every API instance sees the same value.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Incr uses a pipeline: INCR + EXPIRE (refresh TTL).
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, counterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// MemoryStore is a process-local store. It backs tests, the chat client, and
// the API when Redis is not configured.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]int64)}
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key]++
	return s.values[key], nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key], nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// FallbackStore writes to the primary store and switches to the secondary for
// any Incr where the primary fails. The secondary only holds increments made
// during outages, so a counter's value is the sum of both until Reset clears
// them together.
type FallbackStore struct {
	primary   Store
	secondary Store
}

func NewFallbackStore(primary, secondary Store) *FallbackStore {
	return &FallbackStore{primary: primary, secondary: secondary}
}

func (s *FallbackStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.primary.Incr(ctx, key)
	if err == nil {
		return n + s.pending(ctx, key), nil
	}
	log.Printf("[Badge] Primary store Incr failed, using fallback: key=%s err=%v", key, err)
	return s.secondary.Incr(ctx, key)
}

func (s *FallbackStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.primary.Get(ctx, key)
	if err == nil {
		return n + s.pending(ctx, key), nil
	}
	log.Printf("[Badge] Primary store Get failed, using fallback: key=%s err=%v", key, err)
	return s.secondary.Get(ctx, key)
}

// pending is what the secondary collected while the primary was down.
func (s *FallbackStore) pending(ctx context.Context, key string) int64 {
	n, err := s.secondary.Get(ctx, key)
	if err != nil {
		return 0
	}
	return n
}

func (s *FallbackStore) Reset(ctx context.Context, key string) error {
	perr := s.primary.Reset(ctx, key)
	serr := s.secondary.Reset(ctx, key)
	if perr != nil && serr != nil {
		return errors.Join(perr, serr)
	}
	return nil
}
