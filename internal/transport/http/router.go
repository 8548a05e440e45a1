// Package http assembles the application's routes: pages, the JSON API, the
// auth flows, and the operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	earningshandler "driverportal/internal/earnings/handler"
	"driverportal/internal/gate"
	identityhandler "driverportal/internal/identity/handler"
	milestonehandler "driverportal/internal/milestone/handler"
	"driverportal/internal/platform/metrics"
	"driverportal/internal/platform/middleware"
	profilehandler "driverportal/internal/profile/handler"
	"driverportal/pkg/platform/httputil"
)

// Deps collects everything the router mounts.
type Deps struct {
	Logger *slog.Logger

	Identity   *identityhandler.Handler
	Profile    *profilehandler.Handler
	Earnings   *earningshandler.Handler
	Milestones *milestonehandler.Handler

	Gate        *gate.Gate
	RateLimiter *middleware.AuthRateLimiter

	Gatherer prometheus.Gatherer

	// HealthChecks run on /healthz; a failing check degrades the response.
	HealthChecks map[string]func(context.Context) error

	// FilesDir serves uploaded documents under /files/.
	FilesDir string
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	// Auth flows are unauthenticated and throttled per client IP.
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware)
		deps.Identity.Register(r)
	})

	// Profile API: a session is enough; bootstrap runs before a profile
	// exists.
	r.Group(func(r chi.Router) {
		r.Use(deps.Gate.RequireSessionAPI)
		deps.Profile.Register(r)
	})

	// Dashboard data APIs additionally require a completed profile.
	r.Group(func(r chi.Router) {
		r.Use(deps.Gate.RequireSessionAPI)
		r.Use(deps.Gate.RequireProfileAPI)
		deps.Earnings.Register(r)
		deps.Milestones.Register(r)
	})

	registerPages(r, deps.Gate)

	if deps.FilesDir != "" {
		fileServer := http.StripPrefix("/files/", http.FileServer(http.Dir(deps.FilesDir)))
		r.Get("/files/*", fileServer.ServeHTTP)
	}

	r.Get("/healthz", healthHandler(deps))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	return r
}

func healthHandler(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := make(map[string]string, len(deps.HealthChecks))
		for name, check := range deps.HealthChecks {
			if err := check(r.Context()); err != nil {
				deps.Logger.WarnContext(r.Context(), "health check failed", "check", name, "error", err)
				checks[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		result := "ok"
		if status != http.StatusOK {
			result = "degraded"
		}
		httputil.RespondJSON(w, status, map[string]any{
			"status": result,
			"checks": checks,
		})
	}
}
