package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"driverportal/internal/identity"
	"driverportal/pkg/platform/sentinel"
)

const sessionKeyPrefix = "session:"

// Redis persists sessions with a TTL matching their expiry, so stale records
// vanish without a reaper.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

func (s *Redis) Save(ctx context.Context, session identity.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return sentinel.ErrExpired
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+session.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *Redis) FindByID(ctx context.Context, id string) (identity.Session, error) {
	payload, err := s.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity.Session{}, sentinel.ErrNotFound
	}
	if err != nil {
		return identity.Session{}, fmt.Errorf("load session: %w", err)
	}
	var session identity.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return identity.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if session.Expired(s.now()) {
		return identity.Session{}, sentinel.ErrExpired
	}
	return session, nil
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
