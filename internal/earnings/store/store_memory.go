// Package store persists rides and withdrawals.
package store

import (
	"context"
	"sort"
	"sync"

	"driverportal/internal/earnings"
)

// InMemoryRides keeps rides in process memory.
type InMemoryRides struct {
	mu    sync.RWMutex
	rides map[string][]earnings.Ride
}

func NewInMemoryRides() *InMemoryRides {
	return &InMemoryRides{rides: make(map[string][]earnings.Ride)}
}

func (s *InMemoryRides) Create(_ context.Context, ride earnings.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides[ride.DriverID] = append(s.rides[ride.DriverID], ride)
	return nil
}

func (s *InMemoryRides) ListByDriver(_ context.Context, driverID string) ([]earnings.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rides := make([]earnings.Ride, len(s.rides[driverID]))
	copy(rides, s.rides[driverID])
	sort.Slice(rides, func(i, j int) bool {
		return rides[i].CompletedAt.After(rides[j].CompletedAt)
	})
	return rides, nil
}

// InMemoryWithdrawals keeps withdrawals in process memory.
type InMemoryWithdrawals struct {
	mu          sync.RWMutex
	withdrawals map[string][]earnings.Withdrawal
}

func NewInMemoryWithdrawals() *InMemoryWithdrawals {
	return &InMemoryWithdrawals{withdrawals: make(map[string][]earnings.Withdrawal)}
}

func (s *InMemoryWithdrawals) Create(_ context.Context, w earnings.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.withdrawals[w.DriverID] = append(s.withdrawals[w.DriverID], w)
	return nil
}

func (s *InMemoryWithdrawals) ListByDriver(_ context.Context, driverID string) ([]earnings.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	withdrawals := make([]earnings.Withdrawal, len(s.withdrawals[driverID]))
	copy(withdrawals, s.withdrawals[driverID])
	sort.Slice(withdrawals, func(i, j int) bool {
		return withdrawals[i].RequestedAt.After(withdrawals[j].RequestedAt)
	})
	return withdrawals, nil
}
