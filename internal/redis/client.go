package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps the shared go-redis client. The badge counter, the realtime
// pub/sub bridge and the push stream all reuse its connection pool.
type Client struct {
	*redis.Client
}

// Connect parses a redis:// URL, opens the pool and pings it so startup fails
// fast when Redis is configured but unreachable.
// Example: redis://localhost:6379 or redis://:password@localhost:6379/0
func Connect(ctx context.Context, redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	c := &Client{Client: redis.NewClient(opts)}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Client.Ping(pingCtx).Err(); err != nil {
		_ = c.Client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[Redis] Connected to %s (db=%d)", opts.Addr, opts.DB)
	return c, nil
}

// Close closes the Redis connection pool.
func (c *Client) Close() error {
	return c.Client.Close()
}
