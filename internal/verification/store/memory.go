// Package store keeps verification tokens until they expire.
package store

import (
	"context"
	"sync"
	"time"

	"votum/internal/verification/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/sentinel"
)

// InMemory is a token store for single-node runs and tests. Expired tokens
// are dropped on read.
type InMemory struct {
	mu     sync.RWMutex
	tokens map[id.VerificationTokenID]models.Token
	now    func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{tokens: make(map[id.VerificationTokenID]models.Token), now: time.Now}
}

func (s *InMemory) Save(_ context.Context, token *models.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token.ID] = *token
	return nil
}

func (s *InMemory) Find(_ context.Context, tokenID id.VerificationTokenID) (*models.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenID]
	if !ok || t.IsExpired(s.now()) {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

// Confirm marks a live token confirmed.
func (s *InMemory) Confirm(_ context.Context, tokenID id.VerificationTokenID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenID]
	if !ok || t.IsExpired(s.now()) {
		return sentinel.ErrNotFound
	}
	t.Confirmed = true
	t.ConfirmedAt = &at
	s.tokens[tokenID] = t
	return nil
}

func (s *InMemory) Delete(_ context.Context, tokenID id.VerificationTokenID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenID)
	return nil
}
