package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"studentreg/internal/registration/models"
	"studentreg/pkg/platform/circuit"
)

// ErrCircuitOpen marks submissions refused without contacting the backend.
var ErrCircuitOpen = errors.New("signup backend circuit open")

// Submitter is anything that can deliver a registration.
type Submitter interface {
	SubmitRegistration(ctx context.Context, form models.Form) error
}

// Guarded stops calling a failing backend. Only transport errors and 5xx
// responses count as failures; a 4xx rejection means the backend is healthy.
type Guarded struct {
	next    Submitter
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// NewGuarded wraps next with breaker.
func NewGuarded(next Submitter, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{next: next, breaker: breaker, logger: logger}
}

func (g *Guarded) SubmitRegistration(ctx context.Context, form models.Form) error {
	if !g.breaker.Allow() {
		return &RejectedError{Reason: DefaultReason, Err: ErrCircuitOpen}
	}

	err := g.next.SubmitRegistration(ctx, form)
	if isBackendFailure(err) {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "signup backend circuit opened", "breaker", g.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "signup backend circuit closed", "breaker", g.breaker.Name())
	}
	return err
}

func isBackendFailure(err error) bool {
	if err == nil {
		return false
	}
	var rej *RejectedError
	if !errors.As(err, &rej) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return rej.StatusCode == 0 || rej.StatusCode >= http.StatusInternalServerError
}
