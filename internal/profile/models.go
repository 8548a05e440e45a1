// Package profile holds the driver profile domain: the onboarding record a
// driver completes before reaching the dashboard.
package profile

import "time"

// Profile is the driver's onboarding record. Its ID is the account ID; one
// profile per driver.
type Profile struct {
	ID                    string    `json:"id"`
	FirstName             string    `json:"first_name"`
	MiddleName            string    `json:"middle_name,omitempty"`
	LastName              string    `json:"last_name"`
	PhoneNumber           string    `json:"phone_number"`
	Address               string    `json:"address"`
	CarBrand              string    `json:"car_brand"`
	CarModel              string    `json:"car_model"`
	CarRegistrationNumber string    `json:"car_registration_number"`
	DriversLicenseNumber  string    `json:"drivers_license_number"`
	InsuranceFileURL      string    `json:"insurance_file_url,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Update carries a partial edit. Nil fields are left untouched. The editable
// set is deliberately narrow: the address is fixed at onboarding, and
// identity documents and the insurance file go through their own flows.
type Update struct {
	FirstName            *string `json:"first_name,omitempty"`
	MiddleName           *string `json:"middle_name,omitempty"`
	LastName             *string `json:"last_name,omitempty"`
	PhoneNumber          *string `json:"phone_number,omitempty"`
	CarBrand             *string `json:"car_brand,omitempty"`
	CarModel             *string `json:"car_model,omitempty"`
	DriversLicenseNumber *string `json:"drivers_license_number,omitempty"`
}

// Apply copies the set fields onto p.
func (u Update) Apply(p *Profile) {
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.MiddleName != nil {
		p.MiddleName = *u.MiddleName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.PhoneNumber != nil {
		p.PhoneNumber = *u.PhoneNumber
	}
	if u.CarBrand != nil {
		p.CarBrand = *u.CarBrand
	}
	if u.CarModel != nil {
		p.CarModel = *u.CarModel
	}
	if u.DriversLicenseNumber != nil {
		p.DriversLicenseNumber = *u.DriversLicenseNumber
	}
}

// Empty reports whether the update carries no changes.
func (u Update) Empty() bool {
	return u.FirstName == nil && u.MiddleName == nil && u.LastName == nil &&
		u.PhoneNumber == nil && u.CarBrand == nil && u.CarModel == nil &&
		u.DriversLicenseNumber == nil
}
