// Package store keeps live registration form instances between user events.
//
// A form lives until it is submitted successfully, discarded, or idle for
// longer than the configured TTL. Both implementations serialize updates per
// form: Update runs the mutation against the latest stored state and saves the
// result, so concurrent events on one form resolve as last write wins.
package store

import (
	"time"

	"studentreg/pkg/platform/sentinel"
)

// DefaultTTL is how long an untouched form instance is retained.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned for unknown, discarded or expired forms.
var ErrNotFound = sentinel.ErrNotFound

// Clock returns the current time; injected for tests.
type Clock func() time.Time
