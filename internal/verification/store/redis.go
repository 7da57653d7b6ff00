package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"votum/internal/verification/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/sentinel"
)

const tokenKeyPrefix = "votum:verification:"

// Redis stores tokens as JSON with a TTL matching their expiry, so tokens
// vanish without a sweeper and every instance sees the same confirmation.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func tokenKey(tokenID id.VerificationTokenID) string {
	return tokenKeyPrefix + tokenID.String()
}

func (s *Redis) Save(ctx context.Context, token *models.Token) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("token %s already expired", token.ID)
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal verification token: %w", err)
	}
	return s.client.Set(ctx, tokenKey(token.ID), raw, ttl).Err()
}

func (s *Redis) Find(ctx context.Context, tokenID id.VerificationTokenID) (*models.Token, error) {
	return s.get(ctx, s.client, tokenKey(tokenID))
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Redis) get(ctx context.Context, c getter, key string) (*models.Token, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get verification token: %w", err)
	}
	var t models.Token
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode verification token: %w", err)
	}
	return &t, nil
}

// Confirm rewrites the token under WATCH and keeps its TTL. A concurrent
// change of the key fails with redis.TxFailedErr.
func (s *Redis) Confirm(ctx context.Context, tokenID id.VerificationTokenID, at time.Time) error {
	key := tokenKey(tokenID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		t, err := s.get(ctx, tx, key)
		if err != nil {
			return err
		}
		t.Confirmed = true
		t.ConfirmedAt = &at
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("marshal verification token: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, raw, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}, key)
}

func (s *Redis) Delete(ctx context.Context, tokenID id.VerificationTokenID) error {
	return s.client.Del(ctx, tokenKey(tokenID)).Err()
}
