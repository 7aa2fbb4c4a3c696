package handler

import (
	"time"

	"studentreg/internal/registration/models"
	"studentreg/internal/registration/service"
	dErrors "studentreg/pkg/domain-errors"
)

// FormResponse is what clients render. The password is never echoed; only
// whether one has been entered.
type FormResponse struct {
	FormID          string            `json:"form_id"`
	Status          models.Status     `json:"status"`
	Values          map[string]string `json:"values"`
	PasswordSet     bool              `json:"password_set"`
	Errors          map[string]string `json:"errors"`
	SubmitAttempted bool              `json:"submit_attempted"`
	Rejection       string            `json:"rejection,omitempty"`
	Options         OptionsResponse   `json:"options"`
	Version         uint64            `json:"version"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// OptionsResponse lists the dependent choices for the selected degree.
type OptionsResponse struct {
	Renderable bool     `json:"renderable"`
	Years      []string `json:"years"`
	Streams    []string `json:"streams"`
}

type submitErrorResponse struct {
	Error            string        `json:"error"`
	ErrorDescription string        `json:"error_description,omitempty"`
	Form             *FormResponse `json:"form"`
}

// FieldValueRequest carries one field change.
type FieldValueRequest struct {
	Value *string `json:"value"`
}

func (r *FieldValueRequest) Validate() error {
	if r.Value == nil {
		return dErrors.New(dErrors.CodeBadRequest, "value is required")
	}
	return nil
}

func toFormResponse(snap service.Snapshot) *FormResponse {
	st := snap.State
	values := make(map[string]string, len(models.Fields)-1)
	for _, f := range models.Fields {
		if f == models.FieldPassword {
			continue
		}
		values[f.String()] = st.Values.Get(f)
	}
	visible := st.VisibleErrors()
	errs := make(map[string]string, len(visible))
	for f, msg := range visible {
		errs[f.String()] = msg
	}
	return &FormResponse{
		FormID:          st.ID.String(),
		Status:          st.Status,
		Values:          values,
		PasswordSet:     st.Values.Password != "",
		Errors:          errs,
		SubmitAttempted: st.SubmitAttempted,
		Rejection:       st.Rejection,
		Options: OptionsResponse{
			Renderable: snap.Options.Renderable(),
			Years:      nonNil(snap.Options.Years),
			Streams:    nonNil(snap.Options.Streams),
		},
		Version:   st.Version,
		UpdatedAt: st.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
