package handler

import "driverportal/internal/draft"

type signUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	ReferralCode    string `json:"referral_code,omitempty"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetCompleteRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type passwordChangeRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// signUpDraftRequest carries the onboarding form a driver fills in before
// being sent to the third-party provider.
type signUpDraftRequest struct {
	draft.SignupForm
}

type sessionResponse struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	ExpiresAt   string `json:"expires_at"`
}

type authURLResponse struct {
	AuthURL string `json:"auth_url"`
}
