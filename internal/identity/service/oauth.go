package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"driverportal/internal/draft"
	"driverportal/internal/identity"
	"driverportal/pkg/email"
	"driverportal/pkg/platform/audit"
	"driverportal/pkg/platform/sentinel"
)

// Redirect targets for the provider callback. The handler translates these
// into 303 responses.
const (
	RedirectDashboard = "/dashboard"
	RedirectForm      = "/form"
	RedirectSignUp    = "/signup"
	RedirectSignIn    = "/signin"
)

// OAuthStart stashes a draft record keyed by a fresh state nonce and returns
// the provider authorization URL. The form is nil for sign-in flavored
// starts; either way the record is what later proves the state was ours.
func (s *Service) OAuthStart(ctx context.Context, form *draft.SignupForm) (string, error) {
	state := uuid.New().String()
	rec := draft.Record{Form: form, CreatedAt: s.now()}
	if err := s.drafts.Put(ctx, state, rec); err != nil {
		return "", fmt.Errorf("store signup draft: %w", err)
	}
	return s.provider.LoginURL(state), nil
}

// CallbackResult tells the handler where to send the driver and, when
// authentication succeeded, which session to establish.
type CallbackResult struct {
	Session    identity.Session
	RedirectTo string
}

// OAuthCallback completes the provider round trip: validate state, exchange
// the code, find or create the account, establish a session, and recover the
// sign-up draft into a profile when one was carried.
//
// The draft is deleted only after its profile insert is confirmed. On insert
// failure the draft survives for the TTL so a retry does not lose the form.
func (s *Service) OAuthCallback(ctx context.Context, code, state string) (CallbackResult, error) {
	rec, err := s.drafts.Get(ctx, state)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.observeCallback(ctx, "invalid_state")
			return CallbackResult{RedirectTo: RedirectSignUp}, ErrOAuthFailed
		}
		return CallbackResult{}, fmt.Errorf("load signup draft: %w", err)
	}

	info, err := s.provider.Exchange(ctx, code)
	if err != nil {
		s.observeCallback(ctx, "exchange_failed")
		s.logger.WarnContext(ctx, "oauth code exchange failed", "error", err)
		return CallbackResult{RedirectTo: RedirectSignUp}, ErrOAuthFailed
	}

	user, err := s.findOrCreateFederatedUser(ctx, info.Provider, info.ProviderUserID, info.Email)
	if err != nil {
		s.observeCallback(ctx, "account_failed")
		return CallbackResult{}, err
	}

	session, err := s.createSession(ctx, user)
	if err != nil {
		return CallbackResult{}, err
	}

	exists, err := s.profiles.Exists(ctx, user.ID)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("check profile: %w", err)
	}
	if exists {
		// Returning driver. The nonce record has served its purpose.
		s.deleteDraft(ctx, state)
		s.observeCallback(ctx, "success")
		return CallbackResult{Session: session, RedirectTo: RedirectDashboard}, nil
	}

	if rec.Form == nil {
		// Sign-in flavored round trip with no profile yet: the driver still
		// owes us the onboarding form.
		s.deleteDraft(ctx, state)
		s.observeCallback(ctx, "success")
		return CallbackResult{Session: session, RedirectTo: RedirectForm}, nil
	}

	form := *rec.Form
	// Older sign-up pages let the name fields through empty; fall back to a
	// name derived from the account email so the insert still validates.
	if form.FirstName == "" || form.LastName == "" {
		first, last := email.DeriveNameFromEmail(user.Email)
		if form.FirstName == "" {
			form.FirstName = first
		}
		if form.LastName == "" {
			form.LastName = last
		}
	}

	if err := s.profiles.CreateFromSignupForm(ctx, user.ID, form); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// A concurrent callback already created it. Same outcome, but
			// the referral was credited by the winning callback.
			s.deleteDraft(ctx, state)
			s.observeCallback(ctx, "success")
			return CallbackResult{Session: session, RedirectTo: RedirectDashboard}, nil
		}
		s.observeCallback(ctx, "profile_failed")
		s.logger.ErrorContext(ctx, "profile creation from draft failed",
			"user_id", user.ID, "error", err)
		return CallbackResult{RedirectTo: RedirectSignUp}, ErrOAuthFailed
	}

	s.recordReferral(ctx, form.ReferralCode)
	s.deleteDraft(ctx, state)
	s.observeCallback(ctx, "success")
	return CallbackResult{Session: session, RedirectTo: RedirectDashboard}, nil
}

func (s *Service) findOrCreateFederatedUser(ctx context.Context, provider, providerUserID, email string) (identity.User, error) {
	user, err := s.users.FindByProviderID(ctx, provider, providerUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return identity.User{}, fmt.Errorf("find federated user: %w", err)
	}

	now := s.now()
	user = identity.User{
		ID:        uuid.New().String(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ident := identity.Identity{
		ID:             uuid.New().String(),
		UserID:         user.ID,
		Provider:       provider,
		ProviderUserID: providerUserID,
		CreatedAt:      now,
	}
	if err := s.users.CreateWithIdentity(ctx, user, ident); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost a race with another callback for the same identity.
			if existing, findErr := s.users.FindByProviderID(ctx, provider, providerUserID); findErr == nil {
				return existing, nil
			}
		}
		return identity.User{}, fmt.Errorf("create federated user: %w", err)
	}

	s.publishAudit(ctx, audit.CategorySecurity, audit.ActionDriverSignedUp, user.ID, user.Email)
	s.logger.InfoContext(ctx, "federated driver signed up",
		"user_id", user.ID, "provider", provider)
	return user, nil
}

func (s *Service) deleteDraft(ctx context.Context, state string) {
	if err := s.drafts.Delete(ctx, state); err != nil {
		s.logger.WarnContext(ctx, "signup draft delete failed", "error", err)
	}
}

func (s *Service) observeCallback(_ context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.OAuthCallbacks.WithLabelValues(outcome).Inc()
	}
}
