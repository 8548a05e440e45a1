// Package gate enforces the session and onboarding requirements in front of
// pages and API routes. Decisions are made once per request in middleware, so
// individual handlers never re-check authentication.
//
// Pages answer with redirects a browser can follow; API routes answer with
// the JSON error envelope. Any failure resolving the session counts as no
// session at all, so the gate fails closed.
package gate

import (
	"context"
	"log/slog"
	"net/http"

	"driverportal/internal/identity"
	"driverportal/internal/identity/handler"
	"driverportal/internal/platform/metrics"
	"driverportal/pkg/platform/httputil"
	"driverportal/pkg/requestcontext"
)

// SessionSource resolves cookie tokens into sessions and answers whether a
// driver finished onboarding. *service.Service satisfies it.
type SessionSource interface {
	ResolveSession(ctx context.Context, token string) (identity.Session, error)
	HasProfile(ctx context.Context, driverID string) (bool, error)
}

// Gate builds the middlewares guarding pages and API routes.
type Gate struct {
	sessions SessionSource
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func New(sessions SessionSource, m *metrics.Metrics, logger *slog.Logger) *Gate {
	return &Gate{sessions: sessions, metrics: m, logger: logger}
}

// resolve extracts and validates the session cookie. ok is false whenever
// anything goes wrong.
func (g *Gate) resolve(r *http.Request) (identity.Session, bool) {
	cookie, err := r.Cookie(handler.SessionCookie)
	if err != nil || cookie.Value == "" {
		return identity.Session{}, false
	}
	session, err := g.sessions.ResolveSession(r.Context(), cookie.Value)
	if err != nil {
		return identity.Session{}, false
	}
	return session, true
}

func withSession(r *http.Request, session identity.Session) *http.Request {
	ctx := requestcontext.WithDriverID(r.Context(), session.UserID)
	ctx = requestcontext.WithSessionID(ctx, session.ID)
	return r.WithContext(ctx)
}

func (g *Gate) redirect(w http.ResponseWriter, r *http.Request, target string) {
	if g.metrics != nil {
		g.metrics.GateRedirects.WithLabelValues(target).Inc()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// RequireSessionPage sends visitors without a valid session to the sign-in
// page.
func (g *Gate) RequireSessionPage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := g.resolve(r)
		if !ok {
			g.redirect(w, r, "/signin")
			return
		}
		next.ServeHTTP(w, withSession(r, session))
	})
}

// RequireProfilePage sends authenticated drivers without a profile to the
// onboarding form. It must run after RequireSessionPage.
func (g *Gate) RequireProfilePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		driverID := requestcontext.DriverID(r.Context())
		exists, err := g.sessions.HasProfile(r.Context(), driverID)
		if err != nil {
			g.logger.ErrorContext(r.Context(), "profile check failed", "error", err)
			g.redirect(w, r, "/signin")
			return
		}
		if !exists {
			g.redirect(w, r, "/form")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SkipIfProfiled sends drivers who already completed onboarding past the form
// to the dashboard. It must run after RequireSessionPage.
func (g *Gate) SkipIfProfiled(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		driverID := requestcontext.DriverID(r.Context())
		exists, err := g.sessions.HasProfile(r.Context(), driverID)
		if err != nil {
			g.logger.ErrorContext(r.Context(), "profile check failed", "error", err)
			g.redirect(w, r, "/signin")
			return
		}
		if exists {
			g.redirect(w, r, "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSessionAPI rejects unauthenticated API calls with 401.
func (g *Gate) RequireSessionAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := g.resolve(r)
		if !ok {
			httputil.RespondError(w, http.StatusUnauthorized, "session_required", "Sign in to continue.")
			return
		}
		next.ServeHTTP(w, withSession(r, session))
	})
}

// RequireProfileAPI rejects API calls from drivers who have not finished
// onboarding with 409. It must run after RequireSessionAPI.
func (g *Gate) RequireProfileAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		driverID := requestcontext.DriverID(r.Context())
		exists, err := g.sessions.HasProfile(r.Context(), driverID)
		if err != nil {
			g.logger.ErrorContext(r.Context(), "profile check failed", "error", err)
			httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
			return
		}
		if !exists {
			httputil.RespondError(w, http.StatusConflict, "profile_required", "Complete your driver profile to continue.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
