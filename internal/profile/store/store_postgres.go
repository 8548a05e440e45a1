package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"driverportal/internal/profile"
	"driverportal/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

const profileColumns = `id, first_name, middle_name, last_name, phone_number, address,
	car_brand, car_model, car_registration_number, drivers_license_number,
	insurance_file_url, created_at, updated_at`

// Postgres persists profiles in the profiles table. The primary key is the
// account ID, so duplicate inserts surface as conflicts.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, p profile.Profile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (`+profileColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.FirstName, p.MiddleName, p.LastName, p.PhoneNumber, p.Address,
		p.CarBrand, p.CarModel, p.CarRegistrationNumber, p.DriversLicenseNumber,
		p.InsuranceFileURL, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id string) (profile.Profile, error) {
	var p profile.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id,
	).Scan(
		&p.ID, &p.FirstName, &p.MiddleName, &p.LastName, &p.PhoneNumber, &p.Address,
		&p.CarBrand, &p.CarModel, &p.CarRegistrationNumber, &p.DriversLicenseNumber,
		&p.InsuranceFileURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, sentinel.ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("find profile: %w", err)
	}
	return p, nil
}

func (s *Postgres) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check profile: %w", err)
	}
	return exists, nil
}

func (s *Postgres) Save(ctx context.Context, p profile.Profile) error {
	// The address column is fixed at onboarding and never rewritten.
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET
			first_name = $2, middle_name = $3, last_name = $4, phone_number = $5,
			car_brand = $6, car_model = $7,
			car_registration_number = $8, drivers_license_number = $9,
			insurance_file_url = $10, updated_at = $11
		 WHERE id = $1`,
		p.ID, p.FirstName, p.MiddleName, p.LastName, p.PhoneNumber,
		p.CarBrand, p.CarModel,
		p.CarRegistrationNumber, p.DriversLicenseNumber,
		p.InsuranceFileURL, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
