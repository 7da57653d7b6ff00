// Package projection keeps stored end results current as counting circle
// results move through the done milestone.
package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"votum/internal/endresult/models"
	"votum/internal/platform/kafka/consumer"
	resultModels "votum/internal/result/models"
	id "votum/pkg/domain"
	dErrors "votum/pkg/domain-errors"
	"votum/pkg/platform/eventstore"
)

type Recomputer interface {
	Recompute(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error)
}

// Projector recomputes the end result of every political business touched
// by a batch of events. It serves both the Kafka consumer and the in-process
// event store notifier.
type Projector struct {
	recomputer Recomputer
	logger     *slog.Logger
}

func New(recomputer Recomputer, logger *slog.Logger) *Projector {
	return &Projector{recomputer: recomputer, logger: logger}
}

// Handle processes one event record from the events topic. Malformed records
// are logged and committed; recompute failures are returned so the consumer
// retries.
func (p *Projector) Handle(ctx context.Context, msg *consumer.Message) error {
	var env eventstore.Envelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		p.logger.ErrorContext(ctx, "CRITICAL: failed to unmarshal event envelope",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"error", err,
		)
		return nil
	}
	for _, businessID := range p.businesses(ctx, []eventstore.Envelope{env}) {
		if err := p.recompute(ctx, businessID); err != nil {
			return fmt.Errorf("recompute end result %s: %w", businessID, err)
		}
	}
	return nil
}

// Notify recomputes after an in-process append. Errors are logged; the next
// relevant event or read recomputes again.
func (p *Projector) Notify(ctx context.Context, events []eventstore.Envelope) {
	for _, businessID := range p.businesses(ctx, events) {
		if err := p.recompute(ctx, businessID); err != nil {
			p.logger.ErrorContext(ctx, "failed to recompute end result",
				"political_business_id", businessID,
				"error", err,
			)
		}
	}
}

func (p *Projector) recompute(ctx context.Context, businessID id.PoliticalBusinessID) error {
	_, err := p.recomputer.Recompute(ctx, businessID)
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		p.logger.WarnContext(ctx, "event for unknown political business", "political_business_id", businessID)
		return nil
	}
	return err
}

// businesses returns the distinct political businesses whose end result the
// events can change, in order of first appearance.
func (p *Projector) businesses(ctx context.Context, events []eventstore.Envelope) []id.PoliticalBusinessID {
	var out []id.PoliticalBusinessID
	seen := make(map[id.PoliticalBusinessID]struct{})
	for _, env := range events {
		if !relevant(env) {
			continue
		}
		businessID, err := id.ParsePoliticalBusinessID(env.Metadata.PartitionKey)
		if err != nil {
			p.logger.WarnContext(ctx, "event without political business partition key",
				"stream_id", env.StreamID,
				"type", env.Type,
			)
			continue
		}
		if _, ok := seen[businessID]; ok {
			continue
		}
		seen[businessID] = struct{}{}
		out = append(out, businessID)
	}
	return out
}

func relevant(env eventstore.Envelope) bool {
	switch env.AggregateType {
	case resultModels.AggregateType:
		return resultModels.AffectsEndResult(env.Type)
	case models.AggregateType:
		return models.IsKnownEvent(env.Type)
	}
	return false
}
