// Package service implements the driver profile flows: onboarding bootstrap,
// reads, and the restricted edit surface.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"driverportal/internal/draft"
	"driverportal/internal/insurance"
	"driverportal/internal/platform/metrics"
	"driverportal/internal/profile"
	"driverportal/internal/profile/events"
	"driverportal/pkg/platform/audit"
	"driverportal/pkg/platform/sentinel"
	"driverportal/pkg/requestcontext"
)

var (
	ErrMissingFields = errors.New("profile: required fields missing")
	ErrNoChanges     = errors.New("profile: update carries no changes")
	ErrAlreadyExists = errors.New("profile: already exists")
)

// Store persists profiles.
type Store interface {
	Create(ctx context.Context, p profile.Profile) error
	FindByID(ctx context.Context, id string) (profile.Profile, error)
	Exists(ctx context.Context, id string) (bool, error)
	Save(ctx context.Context, p profile.Profile) error
}

// Service holds the profile business rules.
type Service struct {
	store     Store
	documents insurance.Store
	bus       *events.Bus
	audit     audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func New(store Store, documents insurance.Store, bus *events.Bus, auditor audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		documents: documents,
		bus:       bus,
		audit:     auditor,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// BootstrapInput is the onboarding form, optionally carrying the insurance
// document bytes.
type BootstrapInput struct {
	Form draft.SignupForm

	InsuranceFileName string
	InsuranceContent  io.Reader
}

// Bootstrap creates the profile from a completed onboarding form. The
// insurance upload degrades gracefully: a storage failure is logged and the
// profile is created without a document URL rather than blocking onboarding.
func (s *Service) Bootstrap(ctx context.Context, driverID string, in BootstrapInput) (profile.Profile, error) {
	if err := validateForm(in.Form); err != nil {
		return profile.Profile{}, err
	}

	insuranceURL := ""
	if in.InsuranceFileName != "" && in.InsuranceContent != nil {
		url, err := s.documents.Upload(ctx, driverID, in.InsuranceFileName, in.InsuranceContent)
		if err != nil {
			s.observeUpload("failure")
			s.logger.WarnContext(ctx, "insurance upload failed, continuing without document",
				"driver_id", driverID, "error", err)
		} else {
			s.observeUpload("success")
			insuranceURL = url
		}
	}

	p := s.fromForm(driverID, in.Form)
	p.InsuranceFileURL = insuranceURL
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return profile.Profile{}, ErrAlreadyExists
		}
		return profile.Profile{}, fmt.Errorf("create profile: %w", err)
	}

	s.announceCreated(ctx, p)
	return p, nil
}

// CreateFromSignupForm creates the profile from a draft recovered after the
// OAuth round trip. The draft carries the document's name only; the bytes
// never survive the redirect, so the driver re-uploads from the dashboard.
func (s *Service) CreateFromSignupForm(ctx context.Context, driverID string, form draft.SignupForm) error {
	if err := validateForm(form); err != nil {
		return err
	}
	p := s.fromForm(driverID, form)
	if err := s.store.Create(ctx, p); err != nil {
		return err
	}
	s.announceCreated(ctx, p)
	return nil
}

// Exists reports whether the driver completed onboarding.
func (s *Service) Exists(ctx context.Context, driverID string) (bool, error) {
	return s.store.Exists(ctx, driverID)
}

// Get returns the driver's profile.
func (s *Service) Get(ctx context.Context, driverID string) (profile.Profile, error) {
	return s.store.FindByID(ctx, driverID)
}

// Update applies a partial edit to the editable fields and publishes the
// change.
func (s *Service) Update(ctx context.Context, driverID string, update profile.Update) (profile.Profile, error) {
	if update.Empty() {
		return profile.Profile{}, ErrNoChanges
	}

	p, err := s.store.FindByID(ctx, driverID)
	if err != nil {
		return profile.Profile{}, err
	}
	update.Apply(&p)
	p.UpdatedAt = s.now()
	if err := s.store.Save(ctx, p); err != nil {
		return profile.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ProfileUpdates.Inc()
	}
	s.publishAudit(ctx, audit.ActionProfileUpdated, driverID)
	s.publishEvent(events.KindUpdated, p)
	return p, nil
}

// UploadInsurance stores a new insurance document and records its URL. Unlike
// the bootstrap upload this one reports failure, the driver asked for it
// explicitly.
func (s *Service) UploadInsurance(ctx context.Context, driverID, fileName string, content io.Reader) (profile.Profile, error) {
	p, err := s.store.FindByID(ctx, driverID)
	if err != nil {
		return profile.Profile{}, err
	}

	url, err := s.documents.Upload(ctx, driverID, fileName, content)
	if err != nil {
		s.observeUpload("failure")
		return profile.Profile{}, fmt.Errorf("upload insurance document: %w", err)
	}
	s.observeUpload("success")

	p.InsuranceFileURL = url
	p.UpdatedAt = s.now()
	if err := s.store.Save(ctx, p); err != nil {
		return profile.Profile{}, fmt.Errorf("save profile: %w", err)
	}

	s.publishAudit(ctx, audit.ActionProfileUpdated, driverID)
	s.publishEvent(events.KindUpdated, p)
	return p, nil
}

func (s *Service) fromForm(driverID string, form draft.SignupForm) profile.Profile {
	now := s.now()
	return profile.Profile{
		ID:                    driverID,
		FirstName:             form.FirstName,
		MiddleName:            form.MiddleName,
		LastName:              form.LastName,
		PhoneNumber:           form.PhoneNumber,
		Address:               form.Address,
		CarBrand:              form.CarBrand,
		CarModel:              form.CarModel,
		CarRegistrationNumber: form.CarRegistrationNumber,
		DriversLicenseNumber:  form.DriversLicenseNumber,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

func (s *Service) announceCreated(ctx context.Context, p profile.Profile) {
	if s.metrics != nil {
		s.metrics.ProfilesCreated.Inc()
	}
	s.publishAudit(ctx, audit.ActionProfileCreated, p.ID)
	s.publishEvent(events.KindCreated, p)
	s.logger.InfoContext(ctx, "driver profile created", "driver_id", p.ID)
}

func (s *Service) publishEvent(kind events.Kind, p profile.Profile) {
	if s.bus != nil {
		s.bus.Publish(events.Event{Kind: kind, Profile: p})
	}
}

func (s *Service) publishAudit(ctx context.Context, action, driverID string) {
	if s.audit == nil {
		return
	}
	s.audit.Publish(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Action:    action,
		DriverID:  driverID,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: s.now().UTC(),
	})
}

func (s *Service) observeUpload(result string) {
	if s.metrics != nil {
		s.metrics.InsuranceUploads.WithLabelValues(result).Inc()
	}
}

func validateForm(form draft.SignupForm) error {
	switch "" {
	case form.FirstName, form.LastName, form.PhoneNumber, form.Address,
		form.CarBrand, form.CarModel, form.CarRegistrationNumber,
		form.DriversLicenseNumber:
		return ErrMissingFields
	}
	return nil
}
