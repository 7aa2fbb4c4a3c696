package form

import (
	"time"

	"studentreg/internal/registration/models"
	id "studentreg/pkg/domain"
)

// State is one registration form instance. It is a value: transitions return a
// new State and never mutate the receiver's maps.
type State struct {
	ID              id.FormID          `json:"id"`
	Values          models.Form        `json:"values"`
	Touched         models.TouchedSet  `json:"touched"`
	Errors          models.FieldErrors `json:"errors"`
	Status          models.Status      `json:"status"`
	SubmitAttempted bool               `json:"submit_attempted"`
	// Rejection is the last gateway failure reason, cleared by the next submit.
	Rejection string `json:"rejection,omitempty"`
	// Submitted is the snapshot handed to the gateway, set while submitting.
	Submitted *models.Form `json:"submitted,omitempty"`
	Version   uint64       `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// clone copies the maps so the caller's State stays untouched.
func (s State) clone() State {
	s.Touched = s.Touched.Clone()
	s.Errors = s.Errors.Clone()
	return s
}

func (s State) bump(now time.Time) State {
	s.Version++
	s.UpdatedAt = now
	return s
}

// VisibleErrors returns the violations the user should see: those of touched
// fields. A failed submit touches every field, so all errors become visible.
func (s State) VisibleErrors() models.FieldErrors {
	out := models.FieldErrors{}
	for f, msg := range s.Errors {
		if s.Touched.Has(f) {
			out[f] = msg
		}
	}
	return out
}
