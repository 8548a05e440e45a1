// Package draft preserves in-progress sign-up form state across the
// third-party redirect round trip the application does not control.
//
// Records are keyed by the OAuth state nonce, so lookups double as state
// validation. The contract is clear-on-success, retain-on-failure: callers
// delete a record only once the profile insert it carries has been
// confirmed, so a failed insert never silently discards what the driver
// typed.
package draft

import (
	"context"
	"time"
)

// SignupForm is the driver/vehicle data entered before the OAuth redirect.
type SignupForm struct {
	FirstName             string `json:"first_name"`
	MiddleName            string `json:"middle_name"`
	LastName              string `json:"last_name"`
	PhoneNumber           string `json:"phone_number"`
	Address               string `json:"address"`
	CarBrand              string `json:"car_brand"`
	CarModel              string `json:"car_model"`
	CarRegistrationNumber string `json:"car_registration_number"`
	DriversLicenseNumber  string `json:"drivers_license_number"`
	InsuranceFileName     string `json:"insurance_file_name,omitempty"`
	ReferralCode          string `json:"referral_code,omitempty"`
}

// Record is what survives the redirect. Form is nil for sign-in flavored
// flows, which carry no form state but still need the state nonce validated.
type Record struct {
	Form      *SignupForm `json:"form,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Store persists Records for the lifetime of one redirect round trip.
// Implementations return sentinel.ErrNotFound for unknown or expired keys.
type Store interface {
	Put(ctx context.Context, state string, rec Record) error
	Get(ctx context.Context, state string) (Record, error)
	Delete(ctx context.Context, state string) error
}
