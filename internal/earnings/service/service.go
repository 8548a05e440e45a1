// Package service implements the earnings flows: the dashboard summary, the
// activity feed, and withdrawal requests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"driverportal/internal/earnings"
	"driverportal/internal/platform/metrics"
	"driverportal/pkg/platform/audit"
	"driverportal/pkg/requestcontext"
)

var (
	ErrInvalidAmount       = errors.New("earnings: withdrawal amount must be positive")
	ErrInsufficientBalance = errors.New("earnings: amount exceeds available balance")
)

// RideStore persists completed rides.
type RideStore interface {
	Create(ctx context.Context, ride earnings.Ride) error
	ListByDriver(ctx context.Context, driverID string) ([]earnings.Ride, error)
}

// WithdrawalStore persists withdrawal requests.
type WithdrawalStore interface {
	Create(ctx context.Context, withdrawal earnings.Withdrawal) error
	ListByDriver(ctx context.Context, driverID string) ([]earnings.Withdrawal, error)
}

// Service holds the earnings business rules.
type Service struct {
	rides       RideStore
	withdrawals WithdrawalStore
	audit       audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	now         func() time.Time
}

func New(rides RideStore, withdrawals WithdrawalStore, auditor audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		rides:       rides,
		withdrawals: withdrawals,
		audit:       auditor,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecordRide stores a completed ride against the driver's balance.
func (s *Service) RecordRide(ctx context.Context, ride earnings.Ride) (earnings.Ride, error) {
	if ride.FarePence <= 0 {
		return earnings.Ride{}, ErrInvalidAmount
	}
	if ride.ID == "" {
		ride.ID = uuid.New().String()
	}
	if ride.CompletedAt.IsZero() {
		ride.CompletedAt = s.now()
	}
	if err := s.rides.Create(ctx, ride); err != nil {
		return earnings.Ride{}, fmt.Errorf("create ride: %w", err)
	}
	return ride, nil
}

// Summary computes the dashboard earnings card. Week and month changes are
// nil when the preceding period had no earnings to compare against.
func (s *Service) Summary(ctx context.Context, driverID string) (earnings.Summary, error) {
	rides, err := s.rides.ListByDriver(ctx, driverID)
	if err != nil {
		return earnings.Summary{}, fmt.Errorf("list rides: %w", err)
	}
	withdrawals, err := s.withdrawals.ListByDriver(ctx, driverID)
	if err != nil {
		return earnings.Summary{}, fmt.Errorf("list withdrawals: %w", err)
	}

	now := s.now()
	weekStart := now.AddDate(0, 0, -7)
	prevWeekStart := now.AddDate(0, 0, -14)
	monthStart := now.AddDate(0, -1, 0)
	prevMonthStart := now.AddDate(0, -2, 0)

	summary := earnings.Summary{TotalRides: len(rides)}
	var prevWeek, prevMonth int64
	for _, ride := range rides {
		summary.AvailablePence += ride.FarePence
		summary.TotalDistanceMiles += ride.DistanceMiles
		switch {
		case !ride.CompletedAt.Before(weekStart):
			summary.WeekPence += ride.FarePence
		case !ride.CompletedAt.Before(prevWeekStart):
			prevWeek += ride.FarePence
		}
		switch {
		case !ride.CompletedAt.Before(monthStart):
			summary.MonthPence += ride.FarePence
		case !ride.CompletedAt.Before(prevMonthStart):
			prevMonth += ride.FarePence
		}
	}
	for _, w := range withdrawals {
		summary.AvailablePence -= w.AmountPence
	}

	summary.WeekChangePct = changePct(summary.WeekPence, prevWeek)
	summary.MonthChangePct = changePct(summary.MonthPence, prevMonth)
	return summary, nil
}

// Transactions returns the merged activity feed, newest first.
func (s *Service) Transactions(ctx context.Context, driverID string) ([]earnings.Transaction, error) {
	rides, err := s.rides.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	withdrawals, err := s.withdrawals.ListByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}

	feed := make([]earnings.Transaction, 0, len(rides)+len(withdrawals))
	for _, ride := range rides {
		feed = append(feed, earnings.Transaction{
			ID:          ride.ID,
			Type:        earnings.TransactionRide,
			AmountPence: ride.FarePence,
			OccurredAt:  ride.CompletedAt,
		})
	}
	for _, w := range withdrawals {
		feed = append(feed, earnings.Transaction{
			ID:          w.ID,
			Type:        earnings.TransactionWithdrawal,
			AmountPence: -w.AmountPence,
			OccurredAt:  w.RequestedAt,
		})
	}
	sort.Slice(feed, func(i, j int) bool {
		return feed[i].OccurredAt.After(feed[j].OccurredAt)
	})
	return feed, nil
}

// Withdraw requests a payout against the available balance.
func (s *Service) Withdraw(ctx context.Context, driverID string, amountPence int64) (earnings.Withdrawal, error) {
	if amountPence <= 0 {
		return earnings.Withdrawal{}, ErrInvalidAmount
	}

	summary, err := s.Summary(ctx, driverID)
	if err != nil {
		return earnings.Withdrawal{}, err
	}
	if amountPence > summary.AvailablePence {
		return earnings.Withdrawal{}, ErrInsufficientBalance
	}

	withdrawal := earnings.Withdrawal{
		ID:          uuid.New().String(),
		DriverID:    driverID,
		AmountPence: amountPence,
		RequestedAt: s.now(),
	}
	if err := s.withdrawals.Create(ctx, withdrawal); err != nil {
		return earnings.Withdrawal{}, fmt.Errorf("create withdrawal: %w", err)
	}

	if s.metrics != nil {
		s.metrics.Withdrawals.Inc()
	}
	if s.audit != nil {
		s.audit.Publish(ctx, audit.Event{
			Category:  audit.CategoryOperations,
			Action:    audit.ActionWithdrawal,
			DriverID:  driverID,
			RequestID: requestcontext.RequestID(ctx),
			Timestamp: s.now().UTC(),
		})
	}
	s.logger.InfoContext(ctx, "withdrawal accepted",
		"driver_id", driverID, "amount_pence", amountPence)
	return withdrawal, nil
}

// changePct compares a period against the preceding one. A zero baseline has
// no meaningful percentage, so it yields nil.
func changePct(current, previous int64) *float64 {
	if previous == 0 {
		return nil
	}
	pct := (float64(current) - float64(previous)) / float64(previous) * 100
	return &pct
}
