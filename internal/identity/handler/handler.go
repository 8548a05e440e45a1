// Package handler exposes the account flows over HTTP.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"driverportal/internal/identity"
	"driverportal/internal/identity/service"
	"driverportal/pkg/email"
	"driverportal/pkg/platform/httputil"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "driver_session"

// Handler serves the /auth routes.
type Handler struct {
	service       *service.Service
	logger        *slog.Logger
	secureCookies bool
}

func New(svc *service.Service, logger *slog.Logger, secureCookies bool) *Handler {
	return &Handler{service: svc, logger: logger, secureCookies: secureCookies}
}

// Register mounts the auth routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/signup", h.signUp)
	r.Post("/auth/signin", h.signIn)
	r.Post("/auth/signout", h.signOut)
	r.Post("/auth/reset-password", h.requestReset)
	r.Post("/auth/reset-password/complete", h.completeReset)
	r.Post("/auth/password", h.changePassword)
	r.Post("/auth/signup/draft", h.startSignUpDraft)
	r.Get("/auth/oauth/google", h.startOAuthSignIn)
	r.Get("/auth/callback", h.callback)
}

func newSessionResponse(session identity.Session) sessionResponse {
	return sessionResponse{
		UserID:      session.UserID,
		Email:       session.Email,
		DisplayName: email.DisplayName(session.Email),
		ExpiresAt:   session.ExpiresAt.Format(time.RFC3339),
	}
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}

	session, err := h.service.SignUp(r.Context(), service.SignUpInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		ReferralCode:    req.ReferralCode,
	})
	if err != nil {
		h.respondAuthError(w, r, err)
		return
	}

	if !h.setSessionCookie(w, r, session) {
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, newSessionResponse(session))
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}

	session, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAuthError(w, r, err)
		return
	}

	if !h.setSessionCookie(w, r, session) {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, newSessionResponse(session))
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if session, err := h.service.ResolveSession(r.Context(), cookie.Value); err == nil {
			if err := h.service.SignOut(r.Context(), session.ID); err != nil {
				h.logger.ErrorContext(r.Context(), "sign out failed", "error", err)
				httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
				return
			}
		}
	}
	h.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.respondAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) completeReset(w http.ResponseWriter, r *http.Request) {
	var req resetCompleteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}
	if err := h.service.CompletePasswordReset(r.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		h.respondAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// changePassword updates the password for the signed-in driver. The route
// sits with the other auth endpoints, so the session check happens here
// rather than in the gate middleware.
func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "session_required", "Sign in to continue.")
		return
	}
	session, err := h.service.ResolveSession(r.Context(), cookie.Value)
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, "session_required", "Sign in to continue.")
		return
	}

	var req passwordChangeRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}
	if err := h.service.ChangePassword(r.Context(), session.UserID, req.Password, req.ConfirmPassword); err != nil {
		h.respondAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// startSignUpDraft stores the onboarding form against a fresh state nonce and
// hands back the provider URL for the browser to navigate to.
func (h *Handler) startSignUpDraft(w http.ResponseWriter, r *http.Request) {
	var req signUpDraftRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}

	form := req.SignupForm
	authURL, err := h.service.OAuthStart(r.Context(), &form)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "oauth start failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, authURLResponse{AuthURL: authURL})
}

// startOAuthSignIn begins a sign-in flavored round trip with no form state.
func (h *Handler) startOAuthSignIn(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.service.OAuthStart(r.Context(), nil)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "oauth start failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
		return
	}
	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// callback completes the provider round trip. All outcomes are redirects;
// failures land back on the sign-up page with an error marker the page can
// render.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	result, err := h.service.OAuthCallback(r.Context(), code, state)
	if err != nil {
		if errors.Is(err, service.ErrOAuthFailed) {
			http.Redirect(w, r, result.RedirectTo+"?error=auth_failed", http.StatusSeeOther)
			return
		}
		h.logger.ErrorContext(r.Context(), "oauth callback failed", "error", err)
		http.Redirect(w, r, service.RedirectSignUp+"?error=auth_failed", http.StatusSeeOther)
		return
	}

	if !h.setSessionCookie(w, r, result.Session) {
		return
	}
	http.Redirect(w, r, result.RedirectTo, http.StatusSeeOther)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, session identity.Session) bool {
	token, err := h.service.IssueToken(session)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "session token issue failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// respondAuthError maps service errors to the user-facing error envelope.
func (h *Handler) respondAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrFieldsRequired):
		httputil.RespondError(w, http.StatusBadRequest, "fields_required", "All fields are required.")
	case errors.Is(err, service.ErrInvalidEmail):
		httputil.RespondError(w, http.StatusBadRequest, "invalid_email", "Invalid email address.")
	case errors.Is(err, service.ErrPasswordMismatch):
		httputil.RespondError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match.")
	case errors.Is(err, service.ErrEmailTaken):
		httputil.RespondError(w, http.StatusConflict, "email_taken", "An account with this email already exists.")
	case errors.Is(err, service.ErrInvalidCredentials):
		httputil.RespondError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.")
	case errors.Is(err, service.ErrEmailRequired):
		httputil.RespondError(w, http.StatusBadRequest, "email_required", "Email is required.")
	case errors.Is(err, service.ErrResetInvalid):
		httputil.RespondError(w, http.StatusBadRequest, "reset_invalid", "This reset link is invalid or has expired.")
	default:
		h.logger.ErrorContext(r.Context(), "auth request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
	}
}
