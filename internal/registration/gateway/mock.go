package gateway

import (
	"context"
	"strings"
	"time"

	"studentreg/internal/registration/models"
)

// Mock accepts every registration after a fixed latency, except for emails
// listed in Reject, which fail with the mapped reason. Used when no backend URL
// is configured.
type Mock struct {
	Latency time.Duration
	Reject  map[string]string
}

func (m Mock) SubmitRegistration(ctx context.Context, form models.Form) error {
	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return &RejectedError{Reason: DefaultReason, Err: ctx.Err()}
		case <-t.C:
		}
	}
	if reason, ok := m.Reject[strings.ToLower(form.Email)]; ok {
		return &RejectedError{Reason: reason}
	}
	return nil
}
