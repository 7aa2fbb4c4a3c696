// Package form is the state machine behind a registration form instance.
//
// Every user event is an explicit transition from one State to the next:
//
//	ChangeField / BlurField   editing or submitting → same status
//	BeginSubmit               editing → submitting (or editing with all fields touched)
//	CompleteSubmit            submitting → succeeded | editing
//
// The gateway call itself happens between BeginSubmit and CompleteSubmit and is
// owned by the caller, which keeps this package free of I/O.
package form

import (
	"time"

	"studentreg/internal/registration/models"
	"studentreg/internal/registration/resolver"
	"studentreg/internal/registration/rules"
	id "studentreg/pkg/domain"
	dErrors "studentreg/pkg/domain-errors"
)

var (
	// ErrValidationFailed is returned by BeginSubmit when local rules fail.
	ErrValidationFailed = dErrors.New(dErrors.CodeValidation, "form has validation errors")
	// ErrSubmitInProgress is returned by BeginSubmit while a gateway call is pending.
	ErrSubmitInProgress = dErrors.New(dErrors.CodeInvalidState, "submission already in progress")
	// ErrFormConsumed is returned for any event after a successful submission.
	ErrFormConsumed = dErrors.New(dErrors.CodeInvalidState, "form has already been submitted")
	// ErrNotSubmitting is returned by CompleteSubmit when no submission is pending.
	ErrNotSubmitting = dErrors.New(dErrors.CodeInvalidState, "no submission in progress")
)

// Outcome is the settled result of a gateway call.
type Outcome struct {
	Accepted bool
	// Reason is the gateway's human-readable rejection reason, used verbatim.
	Reason string
}

// Controller applies events to form states using the rule set and resolver.
type Controller struct {
	rules    *rules.RuleSet
	resolver *resolver.Resolver
}

// NewController wires the rules and resolver. Both must share one catalog.
func NewController(r *rules.RuleSet, res *resolver.Resolver) *Controller {
	return &Controller{rules: r, resolver: res}
}

// New creates an empty form in the editing status.
func (c *Controller) New(formID id.FormID, now time.Time) State {
	return State{
		ID:        formID,
		Values:    models.Form{},
		Touched:   models.TouchedSet{},
		Errors:    models.FieldErrors{},
		Status:    models.StatusEditing,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChangeField sets a field through the resolver and re-validates every field
// whose value changed. Rejected dependent values leave the state untouched.
func (c *Controller) ChangeField(s State, field models.Field, value string, now time.Time) (State, error) {
	if !s.Status.AcceptsEdits() {
		return s, ErrFormConsumed
	}
	values, changed, err := c.resolver.Apply(s.Values, field, value)
	if err != nil {
		return s, err
	}

	next := s.clone()
	next.Values = values
	for _, f := range changed {
		msg, _ := c.rules.ValidateField(values, f)
		next.Errors.Set(f, msg)
	}
	return next.bump(now), nil
}

// BlurField marks a field touched and validates it so its error, if any,
// becomes visible. Values are never altered.
func (c *Controller) BlurField(s State, field models.Field, now time.Time) (State, error) {
	if !s.Status.AcceptsEdits() {
		return s, ErrFormConsumed
	}
	next := s.clone()
	next.Touched[field] = true
	msg, _ := c.rules.ValidateField(next.Values, field)
	next.Errors.Set(field, msg)
	return next.bump(now), nil
}

// BeginSubmit runs whole-form validation. On failure every field is marked
// touched and the state stays editing; the returned error is
// ErrValidationFailed. On success the state moves to submitting and the exact
// snapshot to hand to the gateway is returned.
func (c *Controller) BeginSubmit(s State, now time.Time) (State, models.Form, error) {
	switch s.Status {
	case models.StatusSucceeded:
		return s, models.Form{}, ErrFormConsumed
	case models.StatusSubmitting:
		return s, models.Form{}, ErrSubmitInProgress
	}

	next := s.clone()
	next.SubmitAttempted = true
	next.Errors = c.rules.ValidateForm(s.Values)
	if !next.Errors.Empty() {
		for _, f := range models.Fields {
			next.Touched[f] = true
		}
		return next.bump(now), models.Form{}, ErrValidationFailed
	}

	sent := next.Values
	next.Status = models.StatusSubmitting
	next.Rejection = ""
	next.Submitted = &sent
	return next.bump(now), sent, nil
}

// CompleteSubmit settles a pending submission. Acceptance is absorbing and
// the terminal values are the snapshot the gateway received, so edits made
// during the call are dropped. Rejection returns to editing with the current
// values preserved and the reason kept for display.
func (c *Controller) CompleteSubmit(s State, out Outcome, now time.Time) (State, error) {
	if s.Status != models.StatusSubmitting {
		return s, ErrNotSubmitting
	}
	next := s.clone()
	next.Submitted = nil
	if out.Accepted {
		next.Status = models.StatusSucceeded
		next.Rejection = ""
		if s.Submitted != nil {
			next.Values = *s.Submitted
		}
		next.Errors = c.rules.ValidateForm(next.Values)
	} else {
		next.Status = models.StatusEditing
		next.Rejection = out.Reason
		// Fields edited while the call was in flight get a fresh check.
		next.Errors = c.rules.ValidateForm(next.Values)
	}
	return next.bump(now), nil
}

// Options returns the dependent option lists for the state's current degree.
func (c *Controller) Options(s State) resolver.DependentOptions {
	return c.resolver.Options(s.Values)
}
