// Package resolver keeps the degree-dependent fields consistent with the degree.
//
// Changing the degree always clears stream and year of study, even when the old
// values would still be offered by the new degree. Setting a dependent field to
// a value the current degree does not offer is refused, so a committed form
// never holds a dangling stream or year.
package resolver

import (
	"fmt"

	"studentreg/internal/catalog"
	"studentreg/internal/registration/models"
	dErrors "studentreg/pkg/domain-errors"
)

// DependentOptions are the values currently selectable for the dependent fields.
// Both lists are empty, never nil, while no known degree is selected.
type DependentOptions struct {
	Years   []string `json:"years"`
	Streams []string `json:"streams"`
}

// Renderable reports whether the dependent fields have anything to offer.
func (o DependentOptions) Renderable() bool {
	return len(o.Years) > 0 || len(o.Streams) > 0
}

// Resolver applies field changes through the catalog.
type Resolver struct {
	catalog *catalog.Catalog
}

// New returns a resolver bound to c.
func New(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Options returns the dependent option lists for the form's current degree.
func (r *Resolver) Options(form models.Form) DependentOptions {
	return DependentOptions{
		Years:   r.catalog.Years(form.Degree),
		Streams: r.catalog.Streams(form.Degree),
	}
}

// Apply sets field to value and returns the updated form together with the
// fields whose values changed as a consequence (the field itself first).
//
// A degree change clears stream and year of study unconditionally. A non-empty
// stream or year outside the current degree's options is rejected with a
// validation error and the form is returned unchanged.
func (r *Resolver) Apply(form models.Form, field models.Field, value string) (models.Form, []models.Field, error) {
	switch field {
	case models.FieldDegree:
		if value == form.Degree {
			return form, []models.Field{field}, nil
		}
		next := form.With(models.FieldDegree, value)
		next.Stream = ""
		next.YearOfStudy = ""
		return next, []models.Field{models.FieldDegree, models.FieldStream, models.FieldYearOfStudy}, nil

	case models.FieldStream:
		if value != "" && !r.catalog.ContainsStream(form.Degree, value) {
			return form, nil, notOffered(field, value, form.Degree)
		}
	case models.FieldYearOfStudy:
		if value != "" && !r.catalog.ContainsYear(form.Degree, value) {
			return form, nil, notOffered(field, value, form.Degree)
		}
	}
	return form.With(field, value), []models.Field{field}, nil
}

func notOffered(field models.Field, value, degree string) error {
	if degree == "" {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("select a degree before choosing %s", field))
	}
	return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s %q is not offered for degree %s", field, value, degree))
}
