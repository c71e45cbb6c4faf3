// Package compliance publishes settlement and screening audit events
// fail-closed: Emit returns only after the store accepted the event, and an
// error means the calling operation must not commit.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "escrowd/pkg/platform/audit"
)

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New expects an outbox-backed store in production so accepted events reach
// the relay.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit writes event synchronously. Run it inside the caller's key lock so the
// event joins the same transaction as the state change it records.
func (p *Publisher) Emit(ctx context.Context, event audit.ComplianceEvent) error {
	if err := validate(event); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	start := time.Now()
	err := p.store.Append(ctx, event.ToEvent())
	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	if err != nil {
		p.metrics.IncPersistFailures()
		p.logger.ErrorContext(ctx, "compliance audit write failed",
			"log_type", "audit",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
		return fmt.Errorf("persist compliance audit event: %w", err)
	}
	p.metrics.IncEventsEmitted()
	return nil
}

func validate(event audit.ComplianceEvent) error {
	switch {
	case event.Subject == "":
		return fmt.Errorf("compliance event requires a subject")
	case event.Action == "":
		return fmt.Errorf("compliance event requires an action")
	case event.Action.Category() != audit.CategoryCompliance:
		return fmt.Errorf("%s is not a compliance event", event.Action)
	}
	return nil
}
