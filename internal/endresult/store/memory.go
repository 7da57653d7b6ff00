// Package store keeps the latest computed end result of each business.
// Writes are last-write-wins; every write is a full recompute.
package store

import (
	"context"
	"sync"

	"votum/internal/endresult/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	results map[id.PoliticalBusinessID]*models.EndResult
}

func NewInMemory() *InMemory {
	return &InMemory{results: make(map[id.PoliticalBusinessID]*models.EndResult)}
}

func (s *InMemory) Save(_ context.Context, er *models.EndResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[er.PoliticalBusinessID] = er
	return nil
}

// Get returns the stored end result. Callers must not mutate it.
func (s *InMemory) Get(_ context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	er, ok := s.results[businessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return er, nil
}
