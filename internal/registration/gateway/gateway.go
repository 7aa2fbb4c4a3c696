// Package gateway adapts the account-creation backend that receives validated
// registrations. The core treats a submission as opaque: it either succeeds or
// fails with a human-readable reason.
package gateway

import (
	"errors"
	"fmt"
)

// DefaultReason is reported when the backend gives no usable reason.
const DefaultReason = "Something went wrong!"

// RejectedError is a failed submission. Reason is shown to the user verbatim.
type RejectedError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *RejectedError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("registration rejected: %s: %v", e.Reason, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("registration rejected (status %d): %s", e.StatusCode, e.Reason)
	default:
		return "registration rejected: " + e.Reason
	}
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Reason extracts the user-facing reason from a submission error.
func Reason(err error) string {
	var rej *RejectedError
	if errors.As(err, &rej) && rej.Reason != "" {
		return rej.Reason
	}
	return DefaultReason
}
