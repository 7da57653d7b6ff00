// Package eventstore defines the append-only event log shared by every
// event-sourced aggregate.
//
// Each aggregate instance owns one stream. Appends carry the version the caller
// built its command against; a mismatch fails with sentinel.ErrVersionConflict and
// nothing is written. Readers fold the returned envelopes in version order.
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"votum/pkg/platform/sentinel"
)

// Metadata identifies who issued an event and how it should be routed.
type Metadata struct {
	TenantID  string `json:"tenant_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// PartitionKey groups streams whose events must be consumed in order,
	// e.g. every result of one political business.
	PartitionKey string `json:"partition_key,omitempty"`
}

// Envelope is one recorded event.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	StreamID      string          `json:"stream_id"`
	AggregateType string          `json:"aggregate_type"`
	Version       int64           `json:"version"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      Metadata        `json:"metadata"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Store appends to and reads event streams.
type Store interface {
	// Append writes events atomically if the stream is at expectedVersion.
	Append(ctx context.Context, streamID string, expectedVersion int64, events []Envelope) error
	// Load returns every event of the stream in version order. An unknown
	// stream yields an empty slice.
	Load(ctx context.Context, streamID string) ([]Envelope, error)
}

// Notifier is told about events after they were durably appended.
type Notifier interface {
	Notify(ctx context.Context, events []Envelope)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, events []Envelope)

func (f NotifierFunc) Notify(ctx context.Context, events []Envelope) { f(ctx, events) }

// NewEnvelope marshals payload into an envelope for the given stream position.
func NewEnvelope(streamID, aggregateType string, version int64, eventType string, payload any, meta Metadata, occurredAt time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:            uuid.New(),
		StreamID:      streamID,
		AggregateType: aggregateType,
		Version:       version,
		Type:          eventType,
		Payload:       raw,
		Metadata:      meta,
		OccurredAt:    occurredAt,
	}, nil
}

// CheckSequence verifies that events continue the stream at expectedVersion
// without gaps.
func CheckSequence(streamID string, expectedVersion int64, events []Envelope) error {
	for i, e := range events {
		want := expectedVersion + int64(i) + 1
		if e.StreamID != streamID {
			return fmt.Errorf("event %s belongs to stream %q, not %q", e.ID, e.StreamID, streamID)
		}
		if e.Version != want {
			return fmt.Errorf("%w: event version %d, expected %d", sentinel.ErrVersionConflict, e.Version, want)
		}
	}
	return nil
}
