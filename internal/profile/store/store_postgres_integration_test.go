//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"driverportal/internal/identity"
	userstore "driverportal/internal/identity/store/user"
	"driverportal/internal/profile"
	"driverportal/pkg/platform/sentinel"
	"driverportal/pkg/testutil/containers"
)

type PostgresSuite struct {
	suite.Suite
	store *Postgres
	users *userstore.Postgres
	ctx   context.Context
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pc := containers.NewPostgresContainer(t)
	s := &PostgresSuite{
		store: NewPostgres(pc.DB),
		users: userstore.NewPostgres(pc.DB),
		ctx:   context.Background(),
	}
	suite.Run(t, s)
}

// newDriver inserts the account row the profile foreign key requires.
func (s *PostgresSuite) newDriver() string {
	id := uuid.New().String()
	now := time.Now().UTC()
	s.Require().NoError(s.users.Create(s.ctx, identity.User{
		ID:        id,
		Email:     id + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}))
	return id
}

func (s *PostgresSuite) profile(id string) profile.Profile {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return profile.Profile{
		ID:                    id,
		FirstName:             "Ada",
		LastName:              "Lovelace",
		PhoneNumber:           "07700900000",
		Address:               "1 Example Road",
		CarBrand:              "Toyota",
		CarModel:              "Prius",
		CarRegistrationNumber: "AB12 CDE",
		DriversLicenseNumber:  "LOVEL123456",
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (s *PostgresSuite) TestCreateAndFind() {
	id := s.newDriver()
	s.Require().NoError(s.store.Create(s.ctx, s.profile(id)))

	got, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Toyota", got.CarBrand)
	s.Equal("LOVEL123456", got.DriversLicenseNumber)
}

func (s *PostgresSuite) TestDuplicateCreateConflicts() {
	id := s.newDriver()
	s.Require().NoError(s.store.Create(s.ctx, s.profile(id)))
	s.Require().ErrorIs(s.store.Create(s.ctx, s.profile(id)), sentinel.ErrConflict)
}

func (s *PostgresSuite) TestUnknownIDIsNotFound() {
	_, err := s.store.FindByID(s.ctx, uuid.New().String())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresSuite) TestExists() {
	id := s.newDriver()

	exists, err := s.store.Exists(s.ctx, id)
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(s.store.Create(s.ctx, s.profile(id)))

	exists, err = s.store.Exists(s.ctx, id)
	s.Require().NoError(err)
	s.True(exists)
}

func (s *PostgresSuite) TestSave() {
	id := s.newDriver()
	s.Require().NoError(s.store.Create(s.ctx, s.profile(id)))

	p, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	p.CarModel = "Corolla"
	p.InsuranceFileURL = "/files/insurance/" + id + "/policy.pdf"
	p.UpdatedAt = time.Now().UTC()
	s.Require().NoError(s.store.Save(s.ctx, p))

	got, err := s.store.FindByID(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Corolla", got.CarModel)
	s.Equal(p.InsuranceFileURL, got.InsuranceFileURL)
}

func (s *PostgresSuite) TestSaveUnknownIsNotFound() {
	s.Require().ErrorIs(s.store.Save(s.ctx, s.profile(uuid.New().String())), sentinel.ErrNotFound)
}
