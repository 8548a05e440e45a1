// Package store persists referral codes.
package store

import (
	"context"
	"sync"

	"driverportal/internal/milestone"
	"driverportal/pkg/platform/sentinel"
)

// InMemory keeps referral codes in process memory.
type InMemory struct {
	mu       sync.Mutex
	byDriver map[string]milestone.ReferralCode
	byCode   map[string]string
}

func NewInMemory() *InMemory {
	return &InMemory{
		byDriver: make(map[string]milestone.ReferralCode),
		byCode:   make(map[string]string),
	}
}

func (s *InMemory) Create(_ context.Context, code milestone.ReferralCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byDriver[code.DriverID]; taken {
		return sentinel.ErrConflict
	}
	if _, taken := s.byCode[code.Code]; taken {
		return sentinel.ErrConflict
	}
	s.byDriver[code.DriverID] = code
	s.byCode[code.Code] = code.DriverID
	return nil
}

func (s *InMemory) FindByDriver(_ context.Context, driverID string) (milestone.ReferralCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.byDriver[driverID]
	if !ok {
		return milestone.ReferralCode{}, sentinel.ErrNotFound
	}
	return code, nil
}

func (s *InMemory) IncrementUses(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	driverID, ok := s.byCode[code]
	if !ok {
		return sentinel.ErrNotFound
	}
	rec := s.byDriver[driverID]
	rec.Uses++
	s.byDriver[driverID] = rec
	return nil
}
