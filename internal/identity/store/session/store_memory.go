// Package session persists active sessions. The cookie token references a
// session by ID; deleting the record is what makes sign-out effective.
package session

import (
	"context"
	"sync"
	"time"

	"driverportal/internal/identity"
	"driverportal/pkg/platform/sentinel"
)

// InMemory keeps sessions in process memory.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string]identity.Session
	now      func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		sessions: make(map[string]identity.Session),
		now:      time.Now,
	}
}

// WithClock overrides the clock for expiry tests.
func (s *InMemory) WithClock(now func() time.Time) *InMemory {
	s.now = now
	return s
}

func (s *InMemory) Save(_ context.Context, session identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return identity.Session{}, sentinel.ErrNotFound
	}
	if session.Expired(s.now()) {
		return identity.Session{}, sentinel.ErrExpired
	}
	return session, nil
}

func (s *InMemory) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
