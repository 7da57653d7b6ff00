package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
)

func envelope(t *testing.T, stream string, version int64) eventstore.Envelope {
	t.Helper()
	e, err := eventstore.NewEnvelope(stream, "test", version, "Happened", map[string]int64{"n": version}, eventstore.Metadata{}, time.Now())
	require.NoError(t, err)
	return e
}

func TestAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.Append(ctx, "s1", 0, []eventstore.Envelope{envelope(t, "s1", 1), envelope(t, "s1", 2)}))
	require.NoError(t, store.Append(ctx, "s1", 2, []eventstore.Envelope{envelope(t, "s1", 3)}))

	events, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Version)
	}

	empty, err := store.Load(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAppendRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Append(ctx, "s1", 0, []eventstore.Envelope{envelope(t, "s1", 1)}))

	err := store.Append(ctx, "s1", 0, []eventstore.Envelope{envelope(t, "s1", 1)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sentinel.ErrVersionConflict))

	events, _ := store.Load(ctx, "s1")
	assert.Len(t, events, 1, "failed append must not write")
}

func TestAppendRejectsGaps(t *testing.T) {
	store := New()
	err := store.Append(context.Background(), "s1", 0, []eventstore.Envelope{envelope(t, "s1", 2)})
	assert.True(t, errors.Is(err, sentinel.ErrVersionConflict))
}

func TestConcurrentAppendsExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	store := New()
	const writers = 20

	var wg sync.WaitGroup
	var wins atomic.Int32
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Append(ctx, "s1", 0, []eventstore.Envelope{envelope(t, "s1", 1)}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestNotifierSeesAppendedEvents(t *testing.T) {
	var seen []eventstore.Envelope
	store := New(WithNotifier(eventstore.NotifierFunc(func(_ context.Context, events []eventstore.Envelope) {
		seen = append(seen, events...)
	})))

	require.NoError(t, store.Append(context.Background(), "s1", 0, []eventstore.Envelope{envelope(t, "s1", 1)}))
	_ = store.Append(context.Background(), "s1", 0, []eventstore.Envelope{envelope(t, "s1", 1)})

	require.Len(t, seen, 1)
	assert.Equal(t, "s1", seen[0].StreamID)

	ids, err := store.Streams(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}
