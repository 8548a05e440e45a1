// Package store persists driver profiles.
package store

import (
	"context"
	"sync"

	"driverportal/internal/profile"
	"driverportal/pkg/platform/sentinel"
)

// InMemory keeps profiles in process memory.
type InMemory struct {
	mu       sync.RWMutex
	profiles map[string]profile.Profile
}

func NewInMemory() *InMemory {
	return &InMemory{profiles: make(map[string]profile.Profile)}
}

func (s *InMemory) Create(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.ID]; exists {
		return sentinel.ErrConflict
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *InMemory) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.profiles[id]
	return ok, nil
}

func (s *InMemory) Save(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.profiles[p.ID] = p
	return nil
}
