// Package worker relays committed outbox entries to the audit topic.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"escrowd/pkg/platform/audit/store/postgres"
)

// Source yields pending outbox entries and records their delivery.
type Source interface {
	FetchPending(ctx context.Context, limit int) ([]postgres.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Message is a keyed record bound for the audit topic.
type Message struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Producer delivers a batch synchronously.
type Producer interface {
	Produce(ctx context.Context, msgs []Message) error
}

// Worker polls the outbox and forwards entries to a Producer. Delivery is
// at-least-once: entries are marked only after the producer acknowledges.
type Worker struct {
	source    Source
	producer  Producer
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	clock     func() time.Time
}

// Option configures the Worker.
type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

func NewWorker(source Source, producer Producer, opts ...Option) *Worker {
	w := &Worker{
		source:    source,
		producer:  producer,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.RelayOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "outbox relay failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RelayOnce forwards one batch and returns how many entries were delivered.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	entries, err := w.source.FetchPending(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	msgs := make([]Message, len(entries))
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		msgs[i] = Message{
			Key:   []byte(e.AggregateID),
			Value: e.Payload,
			Headers: map[string]string{
				"event_type": e.EventType,
				"category":   e.AggregateType,
			},
		}
		ids[i] = e.ID
	}

	if err := w.producer.Produce(ctx, msgs); err != nil {
		return 0, err
	}
	if err := w.source.MarkPublished(ctx, ids, w.clock()); err != nil {
		return 0, err
	}
	w.logger.DebugContext(ctx, "outbox batch relayed", "count", len(entries))
	return len(entries), nil
}
