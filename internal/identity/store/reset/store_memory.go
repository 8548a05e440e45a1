// Package reset persists one-time password reset tokens.
package reset

import (
	"context"
	"sync"
	"time"

	"driverportal/pkg/platform/sentinel"
)

// InMemory keeps reset tokens in process memory.
type InMemory struct {
	mu     sync.Mutex
	tokens map[string]memoryToken
	now    func() time.Time
}

type memoryToken struct {
	userID    string
	expiresAt time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		tokens: make(map[string]memoryToken),
		now:    time.Now,
	}
}

// WithClock overrides the clock for expiry tests.
func (s *InMemory) WithClock(now func() time.Time) *InMemory {
	s.now = now
	return s
}

func (s *InMemory) Put(_ context.Context, token, userID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = memoryToken{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

// Consume returns the user ID for a valid token and invalidates it. A token
// can be consumed at most once.
func (s *InMemory) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.tokens[token]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	delete(s.tokens, token)
	if !entry.expiresAt.After(s.now()) {
		return "", sentinel.ErrExpired
	}
	return entry.userID, nil
}
