// Package user persists driver accounts and their federated identity links.
package user

import (
	"context"
	"strings"
	"sync"
	"time"

	"driverportal/internal/identity"
	"driverportal/pkg/platform/sentinel"
)

// InMemory keeps accounts in process memory. It intentionally favors clarity
// over performance and mirrors the uniqueness guarantees of the Postgres
// store: email is unique case-insensitively, (provider, provider user id)
// is unique per identity link.
type InMemory struct {
	mu         sync.RWMutex
	users      map[string]identity.User
	byEmail    map[string]string
	byProvider map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:      make(map[string]identity.User),
		byEmail:    make(map[string]string),
		byProvider: make(map[string]string),
	}
}

func providerKey(provider, providerUserID string) string {
	return provider + "\x00" + providerUserID
}

func (s *InMemory) Create(_ context.Context, user identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailKey := strings.ToLower(user.Email)
	if _, taken := s.byEmail[emailKey]; taken {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = user
	s.byEmail[emailKey] = user.ID
	return nil
}

func (s *InMemory) CreateWithIdentity(_ context.Context, user identity.User, ident identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailKey := strings.ToLower(user.Email)
	if _, taken := s.byEmail[emailKey]; taken {
		return sentinel.ErrConflict
	}
	key := providerKey(ident.Provider, ident.ProviderUserID)
	if _, taken := s.byProvider[key]; taken {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = user
	s.byEmail[emailKey] = user.ID
	s.byProvider[key] = user.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	return identity.User{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byEmail[strings.ToLower(email)]; ok {
		return s.users[id], nil
	}
	return identity.User{}, sentinel.ErrNotFound
}

func (s *InMemory) FindByProviderID(_ context.Context, provider, providerUserID string) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.byProvider[providerKey(provider, providerUserID)]; ok {
		return s.users[id], nil
	}
	return identity.User{}, sentinel.ErrNotFound
}

func (s *InMemory) UpdatePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	s.users[id] = user
	return nil
}
