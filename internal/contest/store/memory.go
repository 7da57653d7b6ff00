package store

import (
	"context"
	"sync"

	"votum/internal/contest/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/sentinel"
)

// InMemoryStore keeps contest configuration in process.
type InMemoryStore struct {
	mu         sync.RWMutex
	contests   map[id.ContestID]models.Contest
	businesses map[id.PoliticalBusinessID]models.PoliticalBusiness
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		contests:   make(map[id.ContestID]models.Contest),
		businesses: make(map[id.PoliticalBusinessID]models.PoliticalBusiness),
	}
}

func (s *InMemoryStore) SaveContest(_ context.Context, contest *models.Contest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contests[contest.ID] = *contest
	return nil
}

func (s *InMemoryStore) SaveBusiness(_ context.Context, business *models.PoliticalBusiness) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contests[business.ContestID]; !ok {
		return sentinel.ErrNotFound
	}
	s.businesses[business.ID] = *business
	return nil
}

func (s *InMemoryStore) FindContest(_ context.Context, contestID id.ContestID) (*models.Contest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contests[contestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

func (s *InMemoryStore) FindBusiness(_ context.Context, businessID id.PoliticalBusinessID) (*models.PoliticalBusiness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.businesses[businessID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &b, nil
}

func (s *InMemoryStore) ListBusinesses(_ context.Context) ([]models.PoliticalBusiness, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PoliticalBusiness, 0, len(s.businesses))
	for _, b := range s.businesses {
		out = append(out, b)
	}
	return out, nil
}
