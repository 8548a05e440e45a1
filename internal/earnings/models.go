// Package earnings holds the driver earnings domain: completed rides, the
// balance they accrue, and withdrawals against it.
//
// Money is carried as integer pence end to end.
package earnings

import "time"

// Ride is one completed, paid ride.
type Ride struct {
	ID            string    `json:"id"`
	DriverID      string    `json:"driver_id"`
	FarePence     int64     `json:"fare_pence"`
	DistanceMiles float64   `json:"distance_miles"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Withdrawal is one accepted payout request.
type Withdrawal struct {
	ID          string    `json:"id"`
	DriverID    string    `json:"driver_id"`
	AmountPence int64     `json:"amount_pence"`
	RequestedAt time.Time `json:"requested_at"`
}

// Summary is the dashboard earnings card: current balance plus week and
// month totals with their change against the preceding period.
type Summary struct {
	AvailablePence int64 `json:"available_pence"`

	WeekPence     int64    `json:"week_pence"`
	WeekChangePct *float64 `json:"week_change_pct,omitempty"`

	MonthPence     int64    `json:"month_pence"`
	MonthChangePct *float64 `json:"month_change_pct,omitempty"`

	TotalRides         int     `json:"total_rides"`
	TotalDistanceMiles float64 `json:"total_distance_miles"`
}

// Transaction is one row of the merged activity feed: rides credit the
// balance, withdrawals debit it.
type Transaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	AmountPence int64     `json:"amount_pence"`
	OccurredAt  time.Time `json:"occurred_at"`
}

const (
	TransactionRide       = "ride"
	TransactionWithdrawal = "withdrawal"
)
