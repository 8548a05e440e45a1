// Package service implements the account flows: credential sign-up and
// sign-in, third-party sign-in, password reset, and session resolution.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"driverportal/internal/draft"
	"driverportal/internal/identity"
	"driverportal/internal/identity/oauth"
	"driverportal/internal/platform/metrics"
	"driverportal/pkg/platform/audit"
	"driverportal/pkg/platform/sentinel"
	"driverportal/pkg/requestcontext"
)

// Validation and authentication failures surfaced to the visitor. Handlers
// map these to user-facing messages; anything else is an internal error.
var (
	ErrFieldsRequired     = errors.New("identity: all fields are required")
	ErrInvalidEmail       = errors.New("identity: invalid email address")
	ErrPasswordMismatch   = errors.New("identity: passwords do not match")
	ErrEmailTaken         = errors.New("identity: email already registered")
	ErrInvalidCredentials = errors.New("identity: invalid credentials")
	ErrEmailRequired      = errors.New("identity: email is required")
	ErrResetInvalid       = errors.New("identity: reset token invalid or expired")
	ErrOAuthFailed        = errors.New("identity: third-party authentication failed")
)

// UserStore persists driver accounts and federated identity links.
type UserStore interface {
	Create(ctx context.Context, user identity.User) error
	CreateWithIdentity(ctx context.Context, user identity.User, ident identity.Identity) error
	FindByID(ctx context.Context, id string) (identity.User, error)
	FindByEmail(ctx context.Context, email string) (identity.User, error)
	FindByProviderID(ctx context.Context, provider, providerUserID string) (identity.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// SessionStore persists active sessions.
type SessionStore interface {
	Save(ctx context.Context, session identity.Session) error
	FindByID(ctx context.Context, id string) (identity.Session, error)
	Delete(ctx context.Context, id string) error
}

// ResetTokenStore persists one-time password reset tokens.
type ResetTokenStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
}

// ProfileDirectory is the slice of the profile module the auth flows need:
// existence checks for the gate branch and profile creation from a recovered
// sign-up draft.
type ProfileDirectory interface {
	Exists(ctx context.Context, driverID string) (bool, error)
	CreateFromSignupForm(ctx context.Context, driverID string, form draft.SignupForm) error
}

// ReferralRecorder credits a referral code once a referred driver's account
// exists. The milestone service satisfies it; a mistyped code never fails
// the sign-up.
type ReferralRecorder interface {
	RecordReferral(ctx context.Context, code string)
}

// Config carries the tunables for the Service.
type Config struct {
	SessionTTL time.Duration
	ResetTTL   time.Duration
	BaseURL    string
	BcryptCost int
}

// Service holds the account business rules. Storage and HTTP concerns live
// in other layers.
type Service struct {
	users     UserStore
	sessions  SessionStore
	resets    ResetTokenStore
	drafts    draft.Store
	profiles  ProfileDirectory
	referrals ReferralRecorder
	provider  oauth.Provider
	mailer    identity.Mailer
	tokens    *identity.TokenCodec
	audit     audit.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	config    Config
	now       func() time.Time
}

func New(
	users UserStore,
	sessions SessionStore,
	resets ResetTokenStore,
	drafts draft.Store,
	profiles ProfileDirectory,
	referrals ReferralRecorder,
	provider oauth.Provider,
	mailer identity.Mailer,
	tokens *identity.TokenCodec,
	auditor audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
	config Config,
) *Service {
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	if config.ResetTTL <= 0 {
		config.ResetTTL = time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:     users,
		sessions:  sessions,
		resets:    resets,
		drafts:    drafts,
		profiles:  profiles,
		referrals: referrals,
		provider:  provider,
		mailer:    mailer,
		tokens:    tokens,
		audit:     auditor,
		metrics:   m,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
}

// WithClock overrides the clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// SignUpInput is the credential sign-up form.
type SignUpInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	ReferralCode    string
}

// SignUp registers a driver account with credentials. Local validation runs
// before any store access, so a mismatched confirmation never reaches the
// network.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (identity.Session, error) {
	if in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return identity.Session{}, ErrFieldsRequired
	}
	if !govalidator.IsEmail(in.Email) {
		return identity.Session{}, ErrInvalidEmail
	}
	if in.Password != in.ConfirmPassword {
		return identity.Session{}, ErrPasswordMismatch
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return identity.Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := identity.User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		PasswordHash: string(passwordHash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return identity.Session{}, ErrEmailTaken
		}
		return identity.Session{}, fmt.Errorf("create user: %w", err)
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return identity.Session{}, err
	}

	if s.metrics != nil {
		s.metrics.SignUps.Inc()
	}
	s.publishAudit(ctx, audit.CategorySecurity, audit.ActionDriverSignedUp, user.ID, user.Email)
	s.logger.InfoContext(ctx, "driver signed up", "user_id", user.ID)
	s.recordReferral(ctx, in.ReferralCode)

	return session, nil
}

// recordReferral credits the referring driver once the new account exists.
func (s *Service) recordReferral(ctx context.Context, code string) {
	if code == "" || s.referrals == nil {
		return
	}
	s.referrals.RecordReferral(ctx, code)
}

// SignIn authenticates a driver with credentials.
func (s *Service) SignIn(ctx context.Context, email, password string) (identity.Session, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordSignIn(ctx, "failure", "", email)
			return identity.Session{}, ErrInvalidCredentials
		}
		return identity.Session{}, fmt.Errorf("find user: %w", err)
	}

	// Accounts created through a third-party provider have no password.
	if user.PasswordHash == "" {
		s.recordSignIn(ctx, "failure", user.ID, user.Email)
		return identity.Session{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordSignIn(ctx, "failure", user.ID, user.Email)
		return identity.Session{}, ErrInvalidCredentials
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return identity.Session{}, err
	}

	s.recordSignIn(ctx, "success", user.ID, user.Email)
	return session, nil
}

// SignOut revokes the session.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// IssueToken mints the signed cookie token for a session.
func (s *Service) IssueToken(session identity.Session) (string, error) {
	return s.tokens.Issue(session)
}

// ResolveSession validates a cookie token and loads the session it
// references. Any failure is reported as-is; callers treat all failures as
// "no session" (fail closed).
func (s *Service) ResolveSession(ctx context.Context, token string) (identity.Session, error) {
	sessionID, _, err := s.tokens.Parse(token)
	if err != nil {
		return identity.Session{}, err
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return identity.Session{}, err
	}
	if session.Expired(s.now()) {
		return identity.Session{}, sentinel.ErrExpired
	}
	return session, nil
}

// HasProfile reports whether the session's driver completed bootstrap.
func (s *Service) HasProfile(ctx context.Context, driverID string) (bool, error) {
	return s.profiles.Exists(ctx, driverID)
}

func (s *Service) createSession(ctx context.Context, user identity.User) (identity.Session, error) {
	now := s.now()
	session := identity.Session{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return identity.Session{}, fmt.Errorf("save session: %w", err)
	}
	return session, nil
}

func (s *Service) recordSignIn(ctx context.Context, result, userID, email string) {
	if s.metrics != nil {
		s.metrics.SignIns.WithLabelValues(result).Inc()
	}
	action := audit.ActionDriverSignedIn
	if result != "success" {
		action = audit.ActionSignInFailed
	}
	s.publishAudit(ctx, audit.CategorySecurity, action, userID, email)
}

func (s *Service) publishAudit(ctx context.Context, category audit.EventCategory, action, userID, email string) {
	if s.audit == nil {
		return
	}
	s.audit.Publish(ctx, audit.Event{
		Category:  category,
		Action:    action,
		DriverID:  userID,
		Email:     email,
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: s.now().UTC(),
	})
}
