package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"bookpassport/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second

	readRetryDelay = time.Second
)

// EventHandler handles one event; *Handler is the production implementation.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.PushEvent) error
}

// ManagerConfig tunes the push worker pool.
type ManagerConfig struct {
	Stream       string
	Group        string
	ConsumerName string // prefix for per-worker consumer names, unique per process
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration // XREADGROUP BLOCK
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Stream:       queue.StreamPush,
		Group:        queue.ConsumerGroupPush,
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

// Manager runs a pool of workers draining the push stream. Each worker is a
// separate consumer in the group, so an entry is handled by exactly one of
// them across every instance.
type Manager struct {
	consumer queue.Consumer
	handler  EventHandler
	cfg      ManagerConfig
}

func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	def := DefaultManagerConfig()
	if cfg.Stream == "" {
		cfg.Stream = def.Stream
	}
	if cfg.Group == "" {
		cfg.Group = def.Group
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName, _ = os.Hostname()
	}
	if cfg.ConsumerName == "" {
		cfg.ConsumerName = "worker"
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = def.BlockTimeout
	}
	return &Manager{consumer: consumer, handler: handler, cfg: cfg}
}

// Run blocks until ctx is cancelled and every worker has returned.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.consumer.EnsureGroup(ctx, m.cfg.Stream, m.cfg.Group); err != nil {
		return err
	}

	log.Printf("[Manager] Starting %d workers for stream=%s group=%s", m.cfg.WorkerCount, m.cfg.Stream, m.cfg.Group)

	g, gctx := errgroup.WithContext(ctx)
	for i := 1; i <= m.cfg.WorkerCount; i++ {
		w := &pushWorker{
			id:       i,
			consumer: fmt.Sprintf("%s-%d", m.cfg.ConsumerName, i),
			m:        m,
		}
		g.Go(func() error {
			w.run(gctx)
			return nil
		})
	}
	err := g.Wait()
	log.Printf("[Manager] All workers stopped")
	return err
}

type pushWorker struct {
	id       int
	consumer string
	m        *Manager
}

func (w *pushWorker) run(ctx context.Context) {
	log.Printf("[Worker-%d] Started (consumer=%s)", w.id, w.consumer)
	w.replayPending(ctx)

	for ctx.Err() == nil {
		messages, err := w.m.consumer.Read(ctx, w.m.cfg.Stream, w.m.cfg.Group, w.consumer, w.m.cfg.BatchSize, w.m.cfg.BlockTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Printf("[Worker-%d] Error reading: %v", w.id, err)
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
			continue
		}
		w.handle(ctx, messages)
	}
	log.Printf("[Worker-%d] Shutting down", w.id)
}

// replayPending drains entries this consumer received before a restart.
func (w *pushWorker) replayPending(ctx context.Context) {
	for ctx.Err() == nil {
		messages, err := w.m.consumer.ReadPending(ctx, w.m.cfg.Stream, w.m.cfg.Group, w.consumer, w.m.cfg.BatchSize)
		if err != nil {
			log.Printf("[Worker-%d] Error reading pending: %v", w.id, err)
			return
		}
		if len(messages) == 0 {
			return
		}
		log.Printf("[Worker-%d] Replaying %d pending pushes", w.id, len(messages))
		w.handle(ctx, messages)
	}
}

// handle acks every entry, including failed ones: a push that failed once is
// stale by the time a retry would run.
func (w *pushWorker) handle(ctx context.Context, messages []queue.Message) {
	for _, msg := range messages {
		if err := w.m.handler.HandleEvent(ctx, msg.Event); err != nil {
			log.Printf("[Worker-%d] Handler error msgID=%s type=%s user=%s: %v",
				w.id, msg.ID, msg.Event.Type, msg.Event.UserID, err)
		}
		if err := w.m.consumer.Ack(ctx, w.m.cfg.Stream, w.m.cfg.Group, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK error msgID=%s: %v", w.id, msg.ID, err)
		}
	}
}
