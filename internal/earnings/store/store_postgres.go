package store

import (
	"context"
	"database/sql"
	"fmt"

	"driverportal/internal/earnings"
)

// PostgresRides persists rides in the rides table.
type PostgresRides struct {
	db *sql.DB
}

func NewPostgresRides(db *sql.DB) *PostgresRides {
	return &PostgresRides{db: db}
}

func (s *PostgresRides) Create(ctx context.Context, ride earnings.Ride) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rides (id, driver_id, fare_pence, distance_miles, completed_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		ride.ID, ride.DriverID, ride.FarePence, ride.DistanceMiles, ride.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("create ride: %w", err)
	}
	return nil
}

func (s *PostgresRides) ListByDriver(ctx context.Context, driverID string) ([]earnings.Ride, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, driver_id, fare_pence, distance_miles, completed_at
		 FROM rides WHERE driver_id = $1 ORDER BY completed_at DESC`, driverID)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer rows.Close()

	var rides []earnings.Ride
	for rows.Next() {
		var ride earnings.Ride
		if err := rows.Scan(&ride.ID, &ride.DriverID, &ride.FarePence, &ride.DistanceMiles, &ride.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan ride: %w", err)
		}
		rides = append(rides, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	return rides, nil
}

// PostgresWithdrawals persists withdrawals in the withdrawals table.
type PostgresWithdrawals struct {
	db *sql.DB
}

func NewPostgresWithdrawals(db *sql.DB) *PostgresWithdrawals {
	return &PostgresWithdrawals{db: db}
}

func (s *PostgresWithdrawals) Create(ctx context.Context, w earnings.Withdrawal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO withdrawals (id, driver_id, amount_pence, created_at)
		 VALUES ($1, $2, $3, $4)`,
		w.ID, w.DriverID, w.AmountPence, w.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("create withdrawal: %w", err)
	}
	return nil
}

func (s *PostgresWithdrawals) ListByDriver(ctx context.Context, driverID string) ([]earnings.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, driver_id, amount_pence, created_at
		 FROM withdrawals WHERE driver_id = $1 ORDER BY created_at DESC`, driverID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []earnings.Withdrawal
	for rows.Next() {
		var w earnings.Withdrawal
		if err := rows.Scan(&w.ID, &w.DriverID, &w.AmountPence, &w.RequestedAt); err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return withdrawals, nil
}
