// Package publisher emits audit events with per-category delivery semantics.
//
// Compliance events are fail-closed: Emit blocks until the store accepted the
// event and returns the error otherwise, so the calling operation must fail.
// Operations events are best-effort: persistence failures are logged and counted.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "votum/pkg/platform/audit"
	"votum/pkg/requestcontext"
)

// Publisher writes audit events to an outbox-backed store.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit persists event. Tenant, user, request id and timestamp are filled
// from the context when the caller left them empty.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	start := time.Now()
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	event.Category = audit.AuditEvent(event.Action).Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.TenantID.IsNil() {
		event.TenantID = requestcontext.TenantID(ctx)
	}
	if event.UserID.IsNil() {
		event.UserID = requestcontext.UserID(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.IncPersistFailures(event.Category)
		}
		if event.Category == audit.CategoryCompliance {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "CRITICAL: compliance audit failed",
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
			return fmt.Errorf("compliance audit persistence failed: %w", err)
		}
		if p.logger != nil {
			p.logger.WarnContext(ctx, "operations audit dropped",
				"action", event.Action,
				"subject", event.Subject,
				"error", err,
			)
		}
		return nil
	}

	if p.metrics != nil {
		p.metrics.ObservePersistDuration(time.Since(start).Seconds())
		p.metrics.IncEventsEmitted(event.Category)
	}
	return nil
}

// List returns the audit trail of one subject.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subject)
}
