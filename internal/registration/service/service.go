// Package service runs registration form instances: it loads a form, applies
// one user event through the controller, saves the result and reports it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"studentreg/internal/catalog"
	"studentreg/internal/registration/form"
	"studentreg/internal/registration/gateway"
	"studentreg/internal/registration/metrics"
	"studentreg/internal/registration/models"
	"studentreg/internal/registration/resolver"
	"studentreg/internal/registration/rules"
	"studentreg/internal/registration/store"
	id "studentreg/pkg/domain"
	dErrors "studentreg/pkg/domain-errors"
	"studentreg/pkg/platform/audit"
	"studentreg/pkg/platform/middleware/request"
	"studentreg/pkg/platform/sentinel"
	"studentreg/pkg/requestcontext"
)

// Store keeps form instances between events.
type Store interface {
	Create(ctx context.Context, st form.State) error
	FindByID(ctx context.Context, formID id.FormID) (form.State, error)
	Update(ctx context.Context, formID id.FormID, fn func(form.State) (form.State, error)) (form.State, error)
	Delete(ctx context.Context, formID id.FormID) error
}

// Gateway delivers a validated registration to the account backend.
type Gateway interface {
	SubmitRegistration(ctx context.Context, form models.Form) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Snapshot is a form state together with the dependent options it renders.
type Snapshot struct {
	State   form.State
	Options resolver.DependentOptions
}

// Service orchestrates form events.
type Service struct {
	store          Store
	gateway        Gateway
	catalog        *catalog.Catalog
	controller     *form.Controller
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a Service. A nil catalog selects the embedded default.
func New(st Store, gw Gateway, c *catalog.Catalog, opts ...Option) (*Service, error) {
	if st == nil {
		return nil, errors.New("registration store is required")
	}
	if gw == nil {
		return nil, errors.New("registration gateway is required")
	}
	if c == nil {
		c = catalog.Default()
	}
	s := &Service{
		store:      st,
		gateway:    gw,
		catalog:    c,
		controller: form.NewController(rules.New(c), resolver.New(c)),
		logger:     slog.Default(),
		tracer:     noop.NewTracerProvider().Tracer("registration"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start opens a new, empty form.
func (s *Service) Start(ctx context.Context) (Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "registration.start")
	defer span.End()

	st := s.controller.New(id.NewFormID(), requestcontext.Now(ctx))
	if err := s.store.Create(ctx, st); err != nil {
		return Snapshot{}, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create form"))
	}
	span.SetAttributes(attribute.String("form_id", st.ID.String()))

	if s.metrics != nil {
		s.metrics.IncrementFormsStarted()
	}
	s.logAudit(ctx, audit.ActionRegistrationStarted, st.ID, "", "")
	return s.snapshot(st), nil
}

// Get returns the current state of a form.
func (s *Service) Get(ctx context.Context, formID id.FormID) (Snapshot, error) {
	st, err := s.store.FindByID(ctx, formID)
	if err != nil {
		return Snapshot{}, storeError(err)
	}
	return s.snapshot(st), nil
}

// ChangeField applies a value change. A stream or year the degree does not
// offer fails with a validation error and leaves the form as it was.
func (s *Service) ChangeField(ctx context.Context, formID id.FormID, field models.Field, value string) (Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "registration.change_field", trace.WithAttributes(
		attribute.String("form_id", formID.String()),
		attribute.String("field", field.String()),
	))
	defer span.End()

	now := requestcontext.Now(ctx)
	st, err := s.store.Update(ctx, formID, func(cur form.State) (form.State, error) {
		return s.controller.ChangeField(cur, field, value, now)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) && s.metrics != nil {
			s.metrics.IncrementDependentRejection(field.String())
		}
		return Snapshot{}, s.fail(span, storeError(err))
	}
	if s.metrics != nil {
		s.metrics.IncrementFieldChange(field.String())
	}
	return s.snapshot(st), nil
}

// BlurField marks a field as visited so its error becomes visible.
func (s *Service) BlurField(ctx context.Context, formID id.FormID, field models.Field) (Snapshot, error) {
	now := requestcontext.Now(ctx)
	st, err := s.store.Update(ctx, formID, func(cur form.State) (form.State, error) {
		return s.controller.BlurField(cur, field, now)
	})
	if err != nil {
		return Snapshot{}, storeError(err)
	}
	return s.snapshot(st), nil
}

// Submit validates the form and, when valid, hands it to the gateway.
//
// The returned snapshot is meaningful for every outcome except a missing form:
// on local validation failure it carries all errors (every field touched) and
// the error has CodeValidation; on gateway rejection the form is back in
// editing with Rejection set and the error has CodeBadGateway.
func (s *Service) Submit(ctx context.Context, formID id.FormID) (Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "registration.submit", trace.WithAttributes(
		attribute.String("form_id", formID.String()),
	))
	defer span.End()

	var (
		snapshotValues models.Form
		invalid        error
	)
	st, err := s.store.Update(ctx, formID, func(cur form.State) (form.State, error) {
		snapshotValues, invalid = models.Form{}, nil
		next, values, err := s.controller.BeginSubmit(cur, requestcontext.Now(ctx))
		if errors.Is(err, form.ErrValidationFailed) {
			invalid = err
			return next, nil
		}
		if err != nil {
			return cur, err
		}
		snapshotValues = values
		return next, nil
	})
	if err != nil {
		return Snapshot{}, s.fail(span, storeError(err))
	}
	if invalid != nil {
		if s.metrics != nil {
			s.metrics.IncrementSubmission(metrics.OutcomeInvalid)
		}
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeInvalid))
		return s.snapshot(st), invalid
	}
	s.logAudit(ctx, audit.ActionRegistrationSubmitted, formID, "", "")

	// Once handed to the gateway the call runs to completion and its outcome
	// is saved even if the caller has gone away. The gateway's own client
	// timeout is the only bound.
	detached := context.WithoutCancel(ctx)
	outcome := s.callGateway(detached, snapshotValues)

	now := requestcontext.Now(ctx)
	st, err = s.store.Update(detached, formID, func(cur form.State) (form.State, error) {
		next, err := s.controller.CompleteSubmit(cur, outcome, now)
		if err != nil {
			return cur, err
		}
		if next.Status == models.StatusSucceeded {
			next.Values = next.Values.Redacted()
		}
		return next, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to settle submission",
			"request_id", request.GetRequestID(ctx),
			"form_id", formID.String(),
			"accepted", outcome.Accepted,
			"error", err,
		)
		return Snapshot{}, s.fail(span, storeError(err))
	}

	if outcome.Accepted {
		if s.metrics != nil {
			s.metrics.IncrementSubmission(metrics.OutcomeAccepted)
		}
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeAccepted))
		s.logAudit(ctx, audit.ActionRegistrationAccepted, formID, "accepted", "")
		return s.snapshot(st), nil
	}

	if s.metrics != nil {
		s.metrics.IncrementSubmission(metrics.OutcomeRejected)
	}
	span.SetAttributes(attribute.String("outcome", metrics.OutcomeRejected))
	s.logAudit(ctx, audit.ActionRegistrationRejected, formID, "rejected", outcome.Reason)
	return s.snapshot(st), dErrors.New(dErrors.CodeBadGateway, outcome.Reason)
}

func (s *Service) callGateway(ctx context.Context, values models.Form) form.Outcome {
	ctx, span := s.tracer.Start(ctx, "registration.gateway")
	defer span.End()

	start := time.Now()
	if s.metrics != nil {
		done := s.metrics.TrackInFlight()
		defer done()
		defer s.metrics.ObserveGateway(start)
	}

	err := s.gateway.SubmitRegistration(ctx, values)
	if err == nil {
		return form.Outcome{Accepted: true}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "rejected")
	s.logger.WarnContext(ctx, "registration rejected by gateway",
		"request_id", request.GetRequestID(ctx),
		"error", err,
	)
	return form.Outcome{Reason: gateway.Reason(err)}
}

// Discard drops a form, e.g. when the user navigates away.
func (s *Service) Discard(ctx context.Context, formID id.FormID) error {
	if err := s.store.Delete(ctx, formID); err != nil {
		return storeError(err)
	}
	s.logAudit(ctx, audit.ActionRegistrationDiscarded, formID, "", "")
	return nil
}

// Catalog lists every degree with its options.
func (s *Service) Catalog() []catalog.Degree {
	return s.catalog.Degrees()
}

// DegreeOptions returns one degree's years and streams.
func (s *Service) DegreeOptions(code string) (catalog.Degree, error) {
	d, ok := s.catalog.Degree(code)
	if !ok {
		return catalog.Degree{}, dErrors.New(dErrors.CodeNotFound, "degree not found")
	}
	return d, nil
}

func (s *Service) snapshot(st form.State) Snapshot {
	return Snapshot{State: st, Options: s.controller.Options(st)}
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, dErrors.MessageOf(err))
	return err
}

// storeError maps store sentinels onto coded errors and leaves coded errors
// from the controller alone.
func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "form not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "form was modified concurrently, retry")
	case dErrors.CodeOf(err) != dErrors.CodeInternal:
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "form store failure")
	}
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, formID id.FormID, decision, reason string) {
	requestID := request.GetRequestID(ctx)
	s.logger.InfoContext(ctx, string(action),
		"request_id", requestID,
		"form_id", formID.String(),
		"log_type", "audit",
	)
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Subject:   formID.String(),
		Action:    action,
		Decision:  decision,
		Reason:    reason,
		RequestID: requestID,
		ClientIP:  requestcontext.ClientIP(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}
