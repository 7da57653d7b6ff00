package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is one consumed record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Handler processes a message. Returning an error retries the message with
// backoff. Once the retry budget is spent the record goes to the dead letter
// topic, or the consumer stops without committing it when none is configured.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Config configures a consumer group member.
type Config struct {
	Brokers    []string
	Group      string
	Topics     []string
	MaxRetries uint64
	RetryBase  time.Duration
	// DeadLetterTopic receives records whose handler kept failing.
	DeadLetterTopic string
}

// recordProducer is the part of the client dead letters are written with.
type recordProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

const (
	HeaderDeadLetterTopic  = "dead-letter-topic"
	HeaderDeadLetterOffset = "dead-letter-offset"
	HeaderDeadLetterError  = "dead-letter-error"
)

// Consumer commits a record only once it was handled or dead-lettered.
type Consumer struct {
	client   *kgo.Client
	producer recordProducer
	handler  Handler
	logger   *slog.Logger
	cfg      Config
}

func New(cfg Config, handler Handler, logger *slog.Logger) (*Consumer, error) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 100 * time.Millisecond
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.Group),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, producer: client, handler: handler, logger: logger, cfg: cfg}, nil
}

// Run polls until ctx is cancelled. It returns an error when a record can
// neither be handled nor dead-lettered; its offset stays uncommitted so the
// record is consumed again after a restart.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch failed",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		done, err := c.process(ctx, fetches.Records())
		if len(done) > 0 {
			if cerr := c.client.CommitRecords(ctx, done...); cerr != nil && !errors.Is(cerr, context.Canceled) {
				c.logger.ErrorContext(ctx, "kafka commit failed", "error", cerr)
			}
		}
		if err != nil {
			return err
		}
	}
}

// process handles records in order and returns those that may be committed.
// It stops at the first record that could not be settled.
func (c *Consumer) process(ctx context.Context, records []*kgo.Record) ([]*kgo.Record, error) {
	done := make([]*kgo.Record, 0, len(records))
	for _, rec := range records {
		if err := c.settle(ctx, rec); err != nil {
			return done, err
		}
		done = append(done, rec)
	}
	return done, nil
}

func (c *Consumer) settle(ctx context.Context, rec *kgo.Record) error {
	msg := toMessage(rec)
	backoff := retry.WithMaxRetries(c.cfg.MaxRetries, retry.NewExponential(c.cfg.RetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.handler.Handle(ctx, msg); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.cfg.DeadLetterTopic == "" {
		c.logger.ErrorContext(ctx, "message failed after retries, stopping consumer",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"error", err,
		)
		return fmt.Errorf("handle %s/%d offset %d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}

	dead := &kgo.Record{
		Topic: c.cfg.DeadLetterTopic,
		Key:   rec.Key,
		Value: rec.Value,
		Headers: append(slices.Clone(rec.Headers),
			kgo.RecordHeader{Key: HeaderDeadLetterTopic, Value: []byte(rec.Topic)},
			kgo.RecordHeader{Key: HeaderDeadLetterOffset, Value: []byte(strconv.FormatInt(rec.Offset, 10))},
			kgo.RecordHeader{Key: HeaderDeadLetterError, Value: []byte(err.Error())},
		),
	}
	if perr := c.producer.ProduceSync(ctx, dead).FirstErr(); perr != nil {
		return fmt.Errorf("dead-letter %s/%d offset %d: %w", msg.Topic, msg.Partition, msg.Offset, errors.Join(err, perr))
	}
	c.logger.WarnContext(ctx, "message moved to dead letter topic",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"dead_letter_topic", c.cfg.DeadLetterTopic,
		"error", err,
	)
	return nil
}

func toMessage(rec *kgo.Record) *Message {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}
