package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics shared across the application.
type Metrics struct {
	SignUps          prometheus.Counter
	SignIns          *prometheus.CounterVec
	ProfilesCreated  prometheus.Counter
	ProfileUpdates   prometheus.Counter
	InsuranceUploads *prometheus.CounterVec
	Withdrawals      prometheus.Counter
	OAuthCallbacks   *prometheus.CounterVec
	GateRedirects    *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SignUps: factory.NewCounter(prometheus.CounterOpts{
			Name: "driver_portal_signups_total",
			Help: "Total number of driver accounts created",
		}),
		SignIns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "driver_portal_signins_total",
			Help: "Total number of sign-in attempts by result",
		}, []string{"result"}),
		ProfilesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "driver_portal_profiles_created_total",
			Help: "Total number of driver profiles bootstrapped",
		}),
		ProfileUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "driver_portal_profile_updates_total",
			Help: "Total number of account profile edits",
		}),
		InsuranceUploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "driver_portal_insurance_uploads_total",
			Help: "Total number of insurance document uploads by result",
		}, []string{"result"}),
		Withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "driver_portal_withdrawals_total",
			Help: "Total number of accepted withdrawal requests",
		}),
		OAuthCallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "driver_portal_oauth_callbacks_total",
			Help: "Total number of OAuth callback completions by outcome",
		}, []string{"outcome"}),
		GateRedirects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "driver_portal_gate_redirects_total",
			Help: "Total number of session gate redirects by target",
		}, []string{"target"}),
	}
}

// Handler exposes the /metrics endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
