package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"driverportal/pkg/platform/audit"
	"driverportal/pkg/platform/sentinel"
)

// RequestPasswordReset issues a one-time reset token and mails the link.
// Unknown addresses succeed silently so the endpoint does not leak which
// emails hold accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return ErrEmailRequired
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}

	token := uuid.New().String()
	if err := s.resets.Put(ctx, token, user.ID, s.config.ResetTTL); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := s.config.BaseURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	s.publishAudit(ctx, audit.CategorySecurity, audit.ActionPasswordResetSent, user.ID, user.Email)
	return nil
}

// CompletePasswordReset consumes a reset token and sets the new password.
func (s *Service) CompletePasswordReset(ctx context.Context, token, password, confirmPassword string) error {
	if token == "" || password == "" || confirmPassword == "" {
		return ErrFieldsRequired
	}
	if password != confirmPassword {
		return ErrPasswordMismatch
	}

	userID, err := s.resets.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return ErrResetInvalid
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(passwordHash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		user.ID = userID
	}
	s.publishAudit(ctx, audit.CategorySecurity, audit.ActionPasswordChanged, userID, user.Email)
	s.logger.InfoContext(ctx, "password reset completed", "user_id", userID)
	return nil
}

// ChangePassword sets a new password for a signed-in driver. Unlike the
// reset flow it needs no token; the session already proves who is asking.
func (s *Service) ChangePassword(ctx context.Context, userID, password, confirmPassword string) error {
	if password == "" || confirmPassword == "" {
		return ErrFieldsRequired
	}
	if password != confirmPassword {
		return ErrPasswordMismatch
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(passwordHash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		user.ID = userID
	}
	s.publishAudit(ctx, audit.CategorySecurity, audit.ActionPasswordChanged, userID, user.Email)
	s.logger.InfoContext(ctx, "password changed", "user_id", userID)
	return nil
}
