// Package handler exposes the driver profile over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"driverportal/internal/draft"
	"driverportal/internal/profile"
	"driverportal/internal/profile/events"
	"driverportal/internal/profile/service"
	"driverportal/pkg/platform/httputil"
	"driverportal/pkg/platform/sentinel"
	"driverportal/pkg/requestcontext"
)

// maxUploadBytes caps insurance document uploads.
const maxUploadBytes = 10 << 20

// Handler serves the /api/profile routes. The session gate runs before every
// route, so the driver ID is always present in the request context.
type Handler struct {
	service *service.Service
	bus     *events.Bus
	logger  *slog.Logger
}

func New(svc *service.Service, bus *events.Bus, logger *slog.Logger) *Handler {
	return &Handler{service: svc, bus: bus, logger: logger}
}

// Register mounts the profile routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/profile", h.get)
	r.Post("/api/profile", h.bootstrap)
	r.Patch("/api/profile", h.update)
	r.Put("/api/profile/insurance", h.uploadInsurance)
	r.Get("/api/profile/events", h.streamEvents)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	driverID := requestcontext.DriverID(r.Context())
	p, err := h.service.Get(r.Context(), driverID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, p)
}

// bootstrap creates the profile from the onboarding form. The form arrives
// as multipart when it carries the insurance document, plain JSON otherwise.
func (h *Handler) bootstrap(w http.ResponseWriter, r *http.Request) {
	driverID := requestcontext.DriverID(r.Context())

	input, cleanup, err := h.decodeBootstrap(r)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}
	defer cleanup()

	p, err := h.service.Bootstrap(r.Context(), driverID, input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var update profile.Update
	if err := httputil.DecodeJSON(r, &update); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Malformed request body.")
		return
	}

	driverID := requestcontext.DriverID(r.Context())
	p, err := h.service.Update(r.Context(), driverID, update)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) uploadInsurance(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Expected a multipart upload.")
		return
	}
	file, header, err := r.FormFile("insurance_file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid_request", "Missing insurance_file field.")
		return
	}
	defer file.Close()

	driverID := requestcontext.DriverID(r.Context())
	p, err := h.service.UploadInsurance(r.Context(), driverID, header.Filename, file)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, p)
}

// streamEvents pushes this driver's profile changes as server-sent events.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming is not supported.")
		return
	}

	driverID := requestcontext.DriverID(r.Context())
	ch, cancel := h.bus.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, open := <-ch:
			if !open {
				return
			}
			if event.Profile.ID != driverID {
				continue
			}
			payload, err := json.Marshal(event.Profile)
			if err != nil {
				h.logger.ErrorContext(r.Context(), "event encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, payload)
			flusher.Flush()
		}
	}
}

func (h *Handler) decodeBootstrap(r *http.Request) (service.BootstrapInput, func(), error) {
	cleanup := func() {}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return service.BootstrapInput{}, cleanup, err
		}
		input := service.BootstrapInput{Form: formFromValues(r)}
		file, header, err := r.FormFile("insurance_file")
		if err == nil {
			input.InsuranceFileName = header.Filename
			input.InsuranceContent = file
			cleanup = func() { file.Close() }
		} else if !errors.Is(err, http.ErrMissingFile) {
			return service.BootstrapInput{}, cleanup, err
		}
		return input, cleanup, nil
	}

	var form draft.SignupForm
	if err := httputil.DecodeJSON(r, &form); err != nil {
		return service.BootstrapInput{}, cleanup, err
	}
	return service.BootstrapInput{Form: form}, cleanup, nil
}

func formFromValues(r *http.Request) draft.SignupForm {
	return draft.SignupForm{
		FirstName:             r.FormValue("first_name"),
		MiddleName:            r.FormValue("middle_name"),
		LastName:              r.FormValue("last_name"),
		PhoneNumber:           r.FormValue("phone_number"),
		Address:               r.FormValue("address"),
		CarBrand:              r.FormValue("car_brand"),
		CarModel:              r.FormValue("car_model"),
		CarRegistrationNumber: r.FormValue("car_registration_number"),
		DriversLicenseNumber:  r.FormValue("drivers_license_number"),
	}
}

// respondError maps domain errors to the error envelope.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "profile_not_found", "Complete your driver profile first.")
	case errors.Is(err, service.ErrMissingFields):
		httputil.RespondError(w, http.StatusBadRequest, "fields_required", "All fields are required.")
	case errors.Is(err, service.ErrAlreadyExists):
		httputil.RespondError(w, http.StatusConflict, "profile_exists", "Your driver profile already exists.")
	case errors.Is(err, service.ErrNoChanges):
		httputil.RespondError(w, http.StatusBadRequest, "no_changes", "The update carries no changes.")
	case errors.As(err, &maxBytes):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "upload_too_large", "The document exceeds the upload limit.")
	default:
		h.logger.ErrorContext(r.Context(), "profile request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal_error", "Something went wrong.")
	}
}
