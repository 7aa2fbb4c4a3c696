// Package models holds rate limiting types shared by the buckets and the
// middleware.
package models

import "time"

// Class groups routes that share one budget.
type Class string

const (
	// ClassCreate covers starting new registration forms.
	ClassCreate Class = "create"
	// ClassSubmit covers submissions, which reach the signup backend.
	ClassSubmit Class = "submit"
)

// Limit is a request budget per sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result reports one admission decision.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until a slot frees up; zero when allowed.
	RetryAfter int
}
