package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

type recordingProducer struct {
	records []*kgo.Record
	err     error
}

func (p *recordingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		if p.err == nil {
			p.records = append(p.records, r)
		}
		out = append(out, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return out
}

// failingOn fails every attempt at the given offset and records the others.
func failingOn(offset int64, handled *[]int64) HandlerFunc {
	return func(_ context.Context, msg *Message) error {
		if msg.Offset == offset {
			return errors.New("audit store unavailable")
		}
		*handled = append(*handled, msg.Offset)
		return nil
	}
}

func newTestConsumer(handler Handler, producer recordProducer, deadLetterTopic string) *Consumer {
	return &Consumer{
		producer: producer,
		handler:  handler,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg:      Config{MaxRetries: 1, RetryBase: time.Millisecond, DeadLetterTopic: deadLetterTopic},
	}
}

func records(offsets ...int64) []*kgo.Record {
	out := make([]*kgo.Record, len(offsets))
	for i, o := range offsets {
		out[i] = &kgo.Record{Topic: "votum.audit", Offset: o, Key: []byte("business"), Value: []byte(`{}`)}
	}
	return out
}

func TestProcess_CommitsHandledRecords(t *testing.T) {
	var handled []int64
	c := newTestConsumer(failingOn(-1, &handled), &recordingProducer{}, "")

	done, err := c.process(context.Background(), records(1, 2, 3))
	require.NoError(t, err)
	assert.Len(t, done, 3)
	assert.Equal(t, []int64{1, 2, 3}, handled)
}

func TestProcess_StopsWithoutDeadLetterTopic(t *testing.T) {
	var handled []int64
	producer := &recordingProducer{}
	c := newTestConsumer(failingOn(2, &handled), producer, "")

	done, err := c.process(context.Background(), records(1, 2, 3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "offset 2")
	require.Len(t, done, 1, "only records before the failure may be committed")
	assert.Equal(t, int64(1), done[0].Offset)
	assert.Equal(t, []int64{1}, handled)
	assert.Empty(t, producer.records)
}

func TestProcess_DeadLettersFailedRecords(t *testing.T) {
	var handled []int64
	producer := &recordingProducer{}
	c := newTestConsumer(failingOn(2, &handled), producer, "votum.dead-letter")

	done, err := c.process(context.Background(), records(1, 2, 3))
	require.NoError(t, err)
	assert.Len(t, done, 3)
	assert.Equal(t, []int64{1, 3}, handled)

	require.Len(t, producer.records, 1)
	dead := producer.records[0]
	assert.Equal(t, "votum.dead-letter", dead.Topic)
	assert.Equal(t, []byte("business"), dead.Key)
	headers := map[string]string{}
	for _, h := range dead.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "votum.audit", headers[HeaderDeadLetterTopic])
	assert.Equal(t, "2", headers[HeaderDeadLetterOffset])
	assert.Contains(t, headers[HeaderDeadLetterError], "audit store unavailable")
}

func TestProcess_StopsWhenDeadLetteringFails(t *testing.T) {
	var handled []int64
	c := newTestConsumer(failingOn(1, &handled), &recordingProducer{err: errors.New("broker down")}, "votum.dead-letter")

	done, err := c.process(context.Background(), records(1, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Empty(t, done)
	assert.Empty(t, handled)
}
