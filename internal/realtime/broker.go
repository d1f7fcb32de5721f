package realtime

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Broker publishes events to every process serving websockets.
type Broker interface {
	Publish(ctx context.Context, ev Event) error
	// Online reports whether the user has a live connection on any process.
	Online(ctx context.Context, userID string) (bool, error)
}

// LocalBroker delivers straight into the hub. Used when Redis is not configured.
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(_ context.Context, ev Event) error {
	b.hub.Deliver(ev)
	return nil
}

func (b *LocalBroker) Online(_ context.Context, userID string) (bool, error) {
	return b.hub.IsOnline(userID), nil
}

const (
	channelPrefix  = "realtime:"
	presencePrefix = "presence:"
	presenceTTL    = 2 * pongWait
)

// RoomChannel and UserChannel name the Pub/Sub channels events travel on.
func RoomChannel(room string) string   { return channelPrefix + "room:" + room }
func UserChannel(userID string) string { return channelPrefix + "user:" + userID }

// RedisBroker relays events over Redis Pub/Sub so that a message persisted on
// one instance reaches subscribers connected to any other.
//
// Presence is a sorted set per user, presence:<id>, holding one member per
// instance with that user connected, scored by the member's expiry in unix
// milliseconds. Run refreshes the members of every locally connected user, so
// a live socket never ages out and a crashed instance's members do.
type RedisBroker struct {
	client   *redis.Client
	hub      *Hub
	instance string
	ttl      time.Duration
}

func NewRedisBroker(client *redis.Client, hub *Hub) *RedisBroker {
	b := &RedisBroker{client: client, hub: hub, instance: uuid.NewString(), ttl: presenceTTL}
	hub.SetPresence(b)
	return b
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	channel := RoomChannel(ev.Room)
	if ev.To != "" {
		channel = UserChannel(ev.To)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBroker) Online(ctx context.Context, userID string) (bool, error) {
	if b.hub.IsOnline(userID) {
		return true, nil
	}
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	n, err := b.client.ZCount(ctx, presencePrefix+userID, now, "+inf").Result()
	if err != nil {
		return false, fmt.Errorf("presence lookup: %w", err)
	}
	return n > 0, nil
}

// Connected is called by the hub when a user's first local connection opens.
func (b *RedisBroker) Connected(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.touch(ctx, userID); err != nil {
		log.Printf("[Broker] Presence connect failed: user=%s err=%v", userID, err)
	}
}

// Disconnected is called when the user's last local connection closes.
func (b *RedisBroker) Disconnected(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.client.ZRem(ctx, presencePrefix+userID, b.instance).Err(); err != nil {
		log.Printf("[Broker] Presence disconnect failed: user=%s err=%v", userID, err)
	}
}

func (b *RedisBroker) touch(ctx context.Context, userIDs ...string) error {
	expiry := float64(time.Now().Add(b.ttl).UnixMilli())
	pipe := b.client.Pipeline()
	for _, id := range userIDs {
		key := presencePrefix + id
		pipe.ZAdd(ctx, key, redis.Z{Score: expiry, Member: b.instance})
		pipe.Expire(ctx, key, b.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// heartbeat extends presence for everyone connected to this instance.
func (b *RedisBroker) heartbeat(ctx context.Context) {
	users := b.hub.OnlineUsers()
	if len(users) == 0 {
		return
	}
	hctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := b.touch(hctx, users...); err != nil {
		log.Printf("[Broker] Presence heartbeat failed: users=%d err=%v", len(users), err)
	}
}

// Run relays every realtime channel into the local hub until ctx is cancelled.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	log.Printf("[Broker] Relaying %s* into local hub", channelPrefix)

	ticker := time.NewTicker(b.ttl / 3)
	defer ticker.Stop()

	ch := sub.Channel()
	for {
		select {
		case <-ticker.C:
			b.heartbeat(ctx)
		case <-ctx.Done():
			log.Printf("[Broker] Stopped")
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("pubsub channel closed")
			}
			ev, err := DecodeEvent([]byte(msg.Payload))
			if err != nil {
				log.Printf("[Broker] Skipping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			if strings.HasPrefix(msg.Channel, channelPrefix+"user:") && ev.To == "" {
				ev.To = strings.TrimPrefix(msg.Channel, channelPrefix+"user:")
			}
			b.hub.Deliver(ev)
		}
	}
}
