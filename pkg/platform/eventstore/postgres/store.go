// Package postgres implements the event store on PostgreSQL.
//
// Events and their outbox rows are written in the same transaction, so the
// relay never publishes an event that was rolled back and never misses one
// that was committed.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
	txcontext "votum/pkg/platform/tx"
)

const uniqueViolation = "23505"

// Store implements eventstore.Store.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Append locks the stream for the duration of the transaction, checks the
// current version and inserts events plus one outbox row per event.
func (s *Store) Append(ctx context.Context, streamID string, expectedVersion int64, events []eventstore.Envelope) error {
	if len(events) == 0 {
		return nil
	}
	if err := eventstore.CheckSequence(streamID, expectedVersion, events); err != nil {
		return err
	}

	return txcontext.RunInTx(ctx, s.db, func(txCtx context.Context) error {
		tx, _ := txcontext.From(txCtx)
		return s.append(txCtx, tx, streamID, expectedVersion, events)
	})
}

func (s *Store) append(ctx context.Context, exec dbExecutor, streamID string, expectedVersion int64, events []eventstore.Envelope) error {
	if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, streamID); err != nil {
		return fmt.Errorf("lock stream %s: %w", streamID, err)
	}

	var current int64
	if err := exec.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1`, streamID,
	).Scan(&current); err != nil {
		return fmt.Errorf("read stream version: %w", err)
	}
	if current != expectedVersion {
		return fmt.Errorf("stream %s at version %d, expected %d: %w", streamID, current, expectedVersion, sentinel.ErrVersionConflict)
	}

	for _, e := range events {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		_, err = exec.ExecContext(ctx, `
			INSERT INTO events (id, stream_id, aggregate_type, version, event_type, payload, metadata, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, e.ID, e.StreamID, e.AggregateType, e.Version, e.Type, []byte(e.Payload), meta, e.OccurredAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return fmt.Errorf("stream %s version %d taken: %w", streamID, e.Version, sentinel.ErrVersionConflict)
			}
			return fmt.Errorf("insert event: %w", err)
		}

		envelope, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal outbox payload: %w", err)
		}
		_, err = exec.ExecContext(ctx, `
			INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.New(), e.AggregateType, outboxKey(e), e.Type, envelope, e.OccurredAt)
		if err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

// outboxKey orders related streams onto the same Kafka partition.
func outboxKey(e eventstore.Envelope) string {
	if e.Metadata.PartitionKey != "" {
		return e.Metadata.PartitionKey
	}
	return e.StreamID
}

func (s *Store) Load(ctx context.Context, streamID string) ([]eventstore.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stream_id, aggregate_type, version, event_type, payload, metadata, occurred_at
		FROM events
		WHERE stream_id = $1
		ORDER BY version
	`, streamID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEnvelopes(rows)
}

// LoadStreams returns the events of several streams at once, grouped by stream id.
func (s *Store) LoadStreams(ctx context.Context, streamIDs []string) (map[string][]eventstore.Envelope, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stream_id, aggregate_type, version, event_type, payload, metadata, occurred_at
		FROM events
		WHERE stream_id = ANY($1)
		ORDER BY stream_id, version
	`, pq.Array(streamIDs))
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	envelopes, err := scanEnvelopes(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]eventstore.Envelope, len(streamIDs))
	for _, e := range envelopes {
		out[e.StreamID] = append(out[e.StreamID], e)
	}
	return out, nil
}

// Streams lists the ids of every stream of the given aggregate type.
func (s *Store) Streams(ctx context.Context, aggregateType string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT stream_id FROM events WHERE aggregate_type = $1 ORDER BY stream_id`, aggregateType)
	if err != nil {
		return nil, fmt.Errorf("query streams: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stream id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanEnvelopes(rows *sql.Rows) ([]eventstore.Envelope, error) {
	var envelopes []eventstore.Envelope
	for rows.Next() {
		var (
			e       eventstore.Envelope
			payload []byte
			meta    []byte
		)
		if err := rows.Scan(&e.ID, &e.StreamID, &e.AggregateType, &e.Version, &e.Type, &payload, &meta, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
		envelopes = append(envelopes, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return envelopes, nil
}
