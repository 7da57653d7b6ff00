// Package memory provides an in-process event store for tests and single-node runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"votum/pkg/platform/eventstore"
	"votum/pkg/platform/sentinel"
)

// Store keeps streams in memory. Notifiers run after the lock is released.
type Store struct {
	mu        sync.RWMutex
	streams   map[string][]eventstore.Envelope
	notifiers []eventstore.Notifier
}

type Option func(*Store)

// WithNotifier registers a notifier invoked after every successful append.
func WithNotifier(n eventstore.Notifier) Option {
	return func(s *Store) {
		s.notifiers = append(s.notifiers, n)
	}
}

func New(opts ...Option) *Store {
	s := &Store{streams: make(map[string][]eventstore.Envelope)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds a notifier after construction.
func (s *Store) Subscribe(n eventstore.Notifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

func (s *Store) Append(ctx context.Context, streamID string, expectedVersion int64, events []eventstore.Envelope) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	current := int64(len(s.streams[streamID]))
	if current != expectedVersion {
		s.mu.Unlock()
		return fmt.Errorf("stream %s at version %d, expected %d: %w", streamID, current, expectedVersion, sentinel.ErrVersionConflict)
	}
	if err := eventstore.CheckSequence(streamID, expectedVersion, events); err != nil {
		s.mu.Unlock()
		return err
	}
	s.streams[streamID] = append(s.streams[streamID], events...)
	notifiers := append([]eventstore.Notifier(nil), s.notifiers...)
	s.mu.Unlock()

	for _, n := range notifiers {
		n.Notify(ctx, events)
	}
	return nil
}

func (s *Store) Load(_ context.Context, streamID string) ([]eventstore.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]eventstore.Envelope(nil), s.streams[streamID]...), nil
}

// Streams lists the ids of every stream of the given aggregate type.
func (s *Store) Streams(_ context.Context, aggregateType string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, events := range s.streams {
		if len(events) > 0 && events[0].AggregateType == aggregateType {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
