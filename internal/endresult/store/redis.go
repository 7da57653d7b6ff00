package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"votum/internal/endresult/models"
	id "votum/pkg/domain"
	"votum/pkg/platform/sentinel"
)

const endResultKeyPrefix = "votum:endresult:"

// Redis shares computed end results between instances. Entries never
// expire; a rebuild overwrites them.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func endResultKey(businessID id.PoliticalBusinessID) string {
	return endResultKeyPrefix + businessID.String()
}

func (s *Redis) Save(ctx context.Context, er *models.EndResult) error {
	raw, err := json.Marshal(er)
	if err != nil {
		return fmt.Errorf("marshal end result: %w", err)
	}
	return s.client.Set(ctx, endResultKey(er.PoliticalBusinessID), raw, 0).Err()
}

func (s *Redis) Get(ctx context.Context, businessID id.PoliticalBusinessID) (*models.EndResult, error) {
	raw, err := s.client.Get(ctx, endResultKey(businessID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get end result: %w", err)
	}
	var er models.EndResult
	if err := json.Unmarshal(raw, &er); err != nil {
		return nil, fmt.Errorf("decode end result: %w", err)
	}
	return &er, nil
}
