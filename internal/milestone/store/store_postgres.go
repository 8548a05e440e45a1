package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"driverportal/internal/milestone"
	"driverportal/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// Postgres persists referral codes in the referral_codes table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, code milestone.ReferralCode) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO referral_codes (driver_id, code, uses, created_at)
		 VALUES ($1, $2, $3, $4)`,
		code.DriverID, code.Code, code.Uses, code.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create referral code: %w", err)
	}
	return nil
}

func (s *Postgres) FindByDriver(ctx context.Context, driverID string) (milestone.ReferralCode, error) {
	var code milestone.ReferralCode
	err := s.db.QueryRowContext(ctx,
		`SELECT driver_id, code, uses, created_at FROM referral_codes WHERE driver_id = $1`,
		driverID,
	).Scan(&code.DriverID, &code.Code, &code.Uses, &code.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return milestone.ReferralCode{}, sentinel.ErrNotFound
	}
	if err != nil {
		return milestone.ReferralCode{}, fmt.Errorf("find referral code: %w", err)
	}
	return code, nil
}

func (s *Postgres) IncrementUses(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE referral_codes SET uses = uses + 1 WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("increment referral uses: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment referral uses: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
