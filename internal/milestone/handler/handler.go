// Package handler exposes the milestone and referral routes.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"driverportal/internal/milestone/service"
	"driverportal/pkg/platform/httputil"
	"driverportal/pkg/requestcontext"
)

// Handler serves the milestone API. The session and profile gates run before
// every route.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the milestone routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/milestones", h.milestones)
	r.Post("/api/referral-code", h.referralCode)
}

func (h *Handler) milestones(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.service.Milestones(r.Context(), requestcontext.DriverID(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "milestones request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tracks)
}

func (h *Handler) referralCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.service.ReferralCode(r.Context(), requestcontext.DriverID(r.Context()))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "referral code request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, code)
}
