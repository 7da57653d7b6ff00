// Package outbox relays committed outbox rows to Kafka.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sethvargo/go-retry"

	"votum/internal/platform/kafka/producer"
	txcontext "votum/pkg/platform/tx"
)

// Publisher is the producer side the relay needs.
type Publisher interface {
	Publish(ctx context.Context, msgs ...producer.Message) error
}

// TopicFunc routes an outbox row to a topic by aggregate type.
type TopicFunc func(aggregateType string) string

// Metrics tracks relay throughput.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
	Lag       prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "votum_outbox_published_total",
			Help: "Total number of outbox rows published to Kafka",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "votum_outbox_publish_failures_total",
			Help: "Total number of failed outbox publish batches",
		}),
		Lag: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "votum_outbox_batch_size",
			Help: "Number of rows picked up by the last relay batch",
		}),
	}
}

// Relay polls unpublished rows, publishes them in insertion order and marks
// them published in the same transaction. Insertion order is the outbox seq;
// the events of one command share their timestamp. Rows are locked with SKIP
// LOCKED so several relays can run side by side.
type Relay struct {
	db        *sql.DB
	publisher Publisher
	topic     TopicFunc
	logger    *slog.Logger
	metrics   *Metrics
	interval  time.Duration
	batchSize int
}

type Option func(*Relay)

func WithInterval(d time.Duration) Option { return func(r *Relay) { r.interval = d } }
func WithBatchSize(n int) Option          { return func(r *Relay) { r.batchSize = n } }
func WithMetrics(m *Metrics) Option       { return func(r *Relay) { r.metrics = m } }

func NewRelay(db *sql.DB, publisher Publisher, topic TopicFunc, logger *slog.Logger, opts ...Option) *Relay {
	r := &Relay{
		db:        db,
		publisher: publisher,
		topic:     topic,
		logger:    logger,
		interval:  500 * time.Millisecond,
		batchSize: 100,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays until ctx is cancelled. Failed batches are retried with
// exponential backoff capped at ten seconds.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		backoff := retry.WithCappedDuration(10*time.Second, retry.NewExponential(r.interval))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			n, err := r.RelayBatch(ctx)
			if err != nil {
				if r.metrics != nil {
					r.metrics.Failures.Inc()
				}
				r.logger.WarnContext(ctx, "outbox relay batch failed", "error", err)
				return retry.RetryableError(err)
			}
			if n == r.batchSize {
				return retry.RetryableError(fmt.Errorf("more rows pending"))
			}
			return nil
		})
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

type row struct {
	id            uuid.UUID
	aggregateType string
	aggregateID   string
	eventType     string
	payload       []byte
}

// RelayBatch publishes one batch and returns the number of rows relayed.
func (r *Relay) RelayBatch(ctx context.Context) (int, error) {
	var relayed int
	err := txcontext.RunInTx(ctx, r.db, func(txCtx context.Context) error {
		tx, _ := txcontext.From(txCtx)
		rows, err := tx.QueryContext(txCtx, `
			SELECT id, aggregate_type, aggregate_id, event_type, payload
			FROM outbox
			WHERE published_at IS NULL
			ORDER BY seq
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, r.batchSize)
		if err != nil {
			return fmt.Errorf("select outbox rows: %w", err)
		}
		var batch []row
		for rows.Next() {
			var rw row
			if err := rows.Scan(&rw.id, &rw.aggregateType, &rw.aggregateID, &rw.eventType, &rw.payload); err != nil {
				rows.Close()
				return fmt.Errorf("scan outbox row: %w", err)
			}
			batch = append(batch, rw)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate outbox rows: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		msgs := make([]producer.Message, 0, len(batch))
		ids := make([]uuid.UUID, 0, len(batch))
		for _, rw := range batch {
			msgs = append(msgs, producer.Message{
				Topic: r.topic(rw.aggregateType),
				Key:   []byte(rw.aggregateID),
				Value: rw.payload,
				Headers: map[string]string{
					"event_type":     rw.eventType,
					"aggregate_type": rw.aggregateType,
					"outbox_id":      rw.id.String(),
				},
			})
			ids = append(ids, rw.id)
		}
		if err := r.publisher.Publish(txCtx, msgs...); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.ExecContext(txCtx, `UPDATE outbox SET published_at = NOW() WHERE id = $1`, id); err != nil {
				return fmt.Errorf("mark outbox row published: %w", err)
			}
		}
		relayed = len(batch)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if r.metrics != nil {
		r.metrics.Published.Add(float64(relayed))
		r.metrics.Lag.Set(float64(relayed))
	}
	return relayed, nil
}
