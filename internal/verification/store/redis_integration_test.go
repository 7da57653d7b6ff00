//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"votum/internal/verification/models"
	"votum/internal/verification/store"
	id "votum/pkg/domain"
	"votum/pkg/platform/sentinel"
	"votum/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.Redis
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) token(ttl time.Duration) *models.Token {
	return &models.Token{
		ID:           id.VerificationTokenID(uuid.New()),
		BusinessID:   id.PoliticalBusinessID(uuid.New()),
		Action:       models.ActionFinalize,
		SnapshotHash: "abc",
		CreatedAt:    time.Now(),
		ExpiresAt:    time.Now().Add(ttl),
	}
}

func (s *RedisStoreSuite) TestConfirmKeepsTTL() {
	ctx := context.Background()
	t := s.token(time.Minute)
	s.Require().NoError(s.store.Save(ctx, t))

	s.Require().NoError(s.store.Confirm(ctx, t.ID, time.Now()))

	found, err := s.store.Find(ctx, t.ID)
	s.Require().NoError(err)
	s.True(found.Confirmed)
	ttl, err := s.redis.Client.TTL(ctx, "votum:verification:"+t.ID.String()).Result()
	s.Require().NoError(err)
	s.Positive(ttl)
}

func (s *RedisStoreSuite) TestMissingToken() {
	ctx := context.Background()
	_, err := s.store.Find(ctx, id.VerificationTokenID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Confirm(ctx, id.VerificationTokenID(uuid.New()), time.Now()), sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestSaveRejectsExpiredToken() {
	s.Error(s.store.Save(context.Background(), s.token(-time.Second)))
}
