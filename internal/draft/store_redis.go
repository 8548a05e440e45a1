package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"driverportal/pkg/platform/sentinel"
)

const draftKeyPrefix = "signup-draft:"

// RedisStore persists drafts in Redis with a TTL, so form state survives a
// process restart during the redirect round trip and expires on its own when
// the visitor never returns.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Put(ctx context.Context, state string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKeyPrefix+state, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, state string) (Record, error) {
	payload, err := s.client.Get(ctx, draftKeyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load draft: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode draft: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, state string) error {
	if err := s.client.Del(ctx, draftKeyPrefix+state).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
