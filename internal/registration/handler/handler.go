// Package handler exposes registration forms and the degree catalog over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"studentreg/internal/catalog"
	"studentreg/internal/platform/metrics"
	"studentreg/internal/platform/middleware"
	ratelimit "studentreg/internal/ratelimit/middleware"
	rlmodels "studentreg/internal/ratelimit/models"
	"studentreg/internal/registration/models"
	"studentreg/internal/registration/service"
	id "studentreg/pkg/domain"
	dErrors "studentreg/pkg/domain-errors"
	"studentreg/pkg/platform/httputil"
	"studentreg/pkg/platform/middleware/metadata"
	"studentreg/pkg/platform/middleware/request"
	"studentreg/pkg/platform/middleware/requesttime"
)

// Service is the registration surface the handler drives.
type Service interface {
	Start(ctx context.Context) (service.Snapshot, error)
	Get(ctx context.Context, formID id.FormID) (service.Snapshot, error)
	ChangeField(ctx context.Context, formID id.FormID, field models.Field, value string) (service.Snapshot, error)
	BlurField(ctx context.Context, formID id.FormID, field models.Field) (service.Snapshot, error)
	Submit(ctx context.Context, formID id.FormID) (service.Snapshot, error)
	Discard(ctx context.Context, formID id.FormID) error
	Catalog() []catalog.Degree
	DegreeOptions(code string) (catalog.Degree, error)
}

// Handler serves /registrations and /catalog.
type Handler struct {
	service        Service
	logger         *slog.Logger
	metrics        *metrics.Metrics
	requestTimeout time.Duration
	rateLimit      *ratelimit.Middleware
}

type Option func(*Handler)

// WithRateLimit throttles form creation and submission per client IP.
func WithRateLimit(rl *ratelimit.Middleware) Option {
	return func(h *Handler) {
		h.rateLimit = rl
	}
}

// New creates a Handler. metrics may be nil.
func New(svc Service, logger *slog.Logger, m *metrics.Metrics, requestTimeout time.Duration, opts ...Option) *Handler {
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}
	h := &Handler{service: svc, logger: logger, metrics: m, requestTimeout: requestTimeout}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on r.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(request.Recovery(h.logger))
	router.Use(request.RequestID)
	router.Use(requesttime.Middleware)
	router.Use(metadata.ClientMetadata)
	router.Use(request.Logger(h.logger))
	router.Use(request.Timeout(h.requestTimeout))
	router.Use(request.ContentTypeJSON)
	router.Use(middleware.LatencyMiddleware(h.metrics))

	router.With(h.rateLimit.RateLimit(rlmodels.ClassCreate)).Post("/registrations", h.handleStart)
	router.Get("/registrations/{id}", h.handleGet)
	router.Delete("/registrations/{id}", h.handleDiscard)
	router.Put("/registrations/{id}/fields/{field}", h.handleChangeField)
	router.Post("/registrations/{id}/fields/{field}/blur", h.handleBlurField)
	router.With(h.rateLimit.RateLimit(rlmodels.ClassSubmit)).Post("/registrations/{id}/submit", h.handleSubmit)

	router.Get("/catalog/degrees", h.handleListDegrees)
	router.Get("/catalog/degrees/{degree}", h.handleGetDegree)

	r.Mount("/", router)
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap, err := h.service.Start(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to start registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toFormResponse(snap))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	formID, ok := h.formID(w, r)
	if !ok {
		return
	}
	snap, err := h.service.Get(ctx, formID)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFormResponse(snap))
}

func (h *Handler) handleDiscard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	formID, ok := h.formID(w, r)
	if !ok {
		return
	}
	if err := h.service.Discard(ctx, formID); err != nil {
		h.writeServiceError(ctx, w, "failed to discard registration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleChangeField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	formID, ok := h.formID(w, r)
	if !ok {
		return
	}
	field, ok := h.field(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FieldValueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	snap, err := h.service.ChangeField(ctx, formID, field, *req.Value)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to change field", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFormResponse(snap))
}

func (h *Handler) handleBlurField(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	formID, ok := h.formID(w, r)
	if !ok {
		return
	}
	field, ok := h.field(w, r)
	if !ok {
		return
	}
	snap, err := h.service.BlurField(ctx, formID, field)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to blur field", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toFormResponse(snap))
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	formID, ok := h.formID(w, r)
	if !ok {
		return
	}
	snap, err := h.service.Submit(ctx, formID)
	switch {
	case err == nil:
		httputil.WriteJSON(w, http.StatusCreated, toFormResponse(snap))
	case dErrors.Is(err, dErrors.CodeValidation), dErrors.Is(err, dErrors.CodeBadGateway):
		code := dErrors.CodeOf(err)
		httputil.WriteJSON(w, httputil.StatusFor(code), submitErrorResponse{
			Error:            string(code),
			ErrorDescription: dErrors.MessageOf(err),
			Form:             toFormResponse(snap),
		})
	default:
		h.writeServiceError(ctx, w, "failed to submit registration", err)
	}
}

func (h *Handler) handleListDegrees(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"degrees": h.service.Catalog()})
}

func (h *Handler) handleGetDegree(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.DegreeOptions(chi.URLParam(r, "degree"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) formID(w http.ResponseWriter, r *http.Request) (id.FormID, bool) {
	formID, err := id.ParseFormID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.FormID{}, false
	}
	return formID, true
}

func (h *Handler) field(w http.ResponseWriter, r *http.Request) (models.Field, bool) {
	field, err := models.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return field, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", request.GetRequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
