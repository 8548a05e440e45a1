// Package handler exposes the earnings routes.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"driverportal/internal/earnings/service"
	"driverportal/pkg/platform/httputil"
	"driverportal/pkg/requestcontext"
)

// Handler serves the earnings API. The session and profile gates run before
// every route.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// Register mounts the earnings routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/earnings", h.summary)
	r.Get("/api/earnings/transactions", h.transactions)
	r.Post("/api/withdrawals", h.withdraw)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context(), requestcontext.DriverID(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, summary)
}

func (h *Handler) transactions(w http.ResponseWriter, r *http.Request) {
	feed, err := h.service.Transactions(r.Context(), requestcontext.DriverID(r.Context()))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, feed)
}

type withdrawRequest struct {
	AmountPence int64 `json:"amount_pence"`
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}

	withdrawal, err := h.service.Withdraw(r.Context(), requestcontext.DriverID(r.Context()), req.AmountPence)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, withdrawal)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		httputil.RespondError(w, http.StatusBadRequest, "invalid_amount", "Enter an amount greater than zero.")
	case errors.Is(err, service.ErrInsufficientBalance):
		httputil.RespondError(w, http.StatusUnprocessableEntity, "insufficient_balance", "The amount exceeds your available balance.")
	default:
		h.logger.ErrorContext(r.Context(), "earnings request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
	}
}
