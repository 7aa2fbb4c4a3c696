package models

// Status is the lifecycle position of a form instance.
//
// Transitions:
//
//	editing → submitting   (local validation passed)
//	submitting → editing   (gateway rejected; values preserved)
//	submitting → succeeded (gateway accepted; absorbing)
type Status string

const (
	StatusEditing    Status = "editing"
	StatusSubmitting Status = "submitting"
	StatusSucceeded  Status = "succeeded"
)

// IsTerminal reports whether the status accepts no further events.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded
}

// AcceptsEdits reports whether field changes and blurs are allowed.
// Edits stay open while the gateway call is in flight; only submit is locked.
func (s Status) AcceptsEdits() bool {
	return s == StatusEditing || s == StatusSubmitting
}
