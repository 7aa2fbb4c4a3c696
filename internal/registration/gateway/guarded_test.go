package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentreg/internal/registration/models"
	"studentreg/pkg/platform/circuit"
)

type scriptedSubmitter struct {
	results []error
	calls   int
}

func (s *scriptedSubmitter) SubmitRegistration(context.Context, models.Form) error {
	err := s.results[s.calls%len(s.results)]
	s.calls++
	return err
}

func TestGuarded_OpensOnBackendFailures(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	breaker := circuit.New("signup",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	down := &scriptedSubmitter{results: []error{&RejectedError{Reason: DefaultReason, StatusCode: http.StatusBadGateway}}}
	g := NewGuarded(down, breaker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.Error(t, g.SubmitRegistration(ctx, models.Form{}))
	require.Error(t, g.SubmitRegistration(ctx, models.Form{}))
	assert.True(t, breaker.IsOpen())
	assert.Equal(t, 2, down.calls)

	err := g.SubmitRegistration(ctx, models.Form{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, DefaultReason, Reason(err))
	assert.Equal(t, 2, down.calls, "open breaker must not reach the backend")

	down.results = []error{nil}
	now = now.Add(time.Minute)
	require.NoError(t, g.SubmitRegistration(ctx, models.Form{}))
	assert.False(t, breaker.IsOpen())
}

func TestGuarded_BusinessRejectionKeepsCircuitClosed(t *testing.T) {
	breaker := circuit.New("signup", circuit.WithFailureThreshold(1))
	rejecting := &scriptedSubmitter{results: []error{&RejectedError{Reason: "Email already registered", StatusCode: http.StatusConflict}}}
	g := NewGuarded(rejecting, breaker, nil)

	err := g.SubmitRegistration(context.Background(), models.Form{})
	assert.Equal(t, "Email already registered", Reason(err))
	assert.False(t, breaker.IsOpen())
}

func TestIsBackendFailure(t *testing.T) {
	assert.False(t, isBackendFailure(nil))
	assert.True(t, isBackendFailure(errors.New("dial tcp: refused")))
	assert.True(t, isBackendFailure(&RejectedError{Reason: DefaultReason}))
	assert.False(t, isBackendFailure(&RejectedError{Reason: DefaultReason, Err: context.Canceled}))
	assert.False(t, isBackendFailure(&RejectedError{Reason: "taken", StatusCode: http.StatusBadRequest}))
}
