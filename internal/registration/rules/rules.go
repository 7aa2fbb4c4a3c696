// Package rules is the validation rule table for the registration form.
//
// Every field owns an ordered list of checks; the first failing check supplies
// the field's message. Checks are pure functions of the form snapshot and the
// catalog. Dependent fields look up the current degree on every call, so a
// stale option list can never validate a value.
package rules

import (
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"studentreg/internal/catalog"
	"studentreg/internal/registration/models"
)

// MinPasswordLength is the shortest accepted password, in characters.
const MinPasswordLength = 6

const (
	MsgNameRequired     = "Name is required"
	MsgEmailRequired    = "Email is required"
	MsgEmailInvalid     = "Invalid email"
	MsgPhoneRequired    = "Phone number is required"
	MsgPhoneInvalid     = "Invalid phone number"
	MsgCollegeRequired  = "College name is required"
	MsgDegreeRequired   = "Degree is required"
	MsgStreamRequired   = "Stream is required"
	MsgYearRequired     = "Year is required"
	MsgBirthRequired    = "Birth date is required"
	MsgPasswordRequired = "Password is required"
	MsgPasswordShort    = "Password must be at least 6 characters"
)

// phonePattern is a 10-digit local mobile number starting with 6, 7, 8 or 9.
var phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

var emailValidator = validator.New(validator.WithRequiredStructEnabled())

// check returns a violation message, or "" when the value passes.
type check func(form models.Form, c *catalog.Catalog) string

// RuleSet evaluates the rule table against a catalog.
type RuleSet struct {
	catalog *catalog.Catalog
	table   map[models.Field][]check
}

// New builds the rule set bound to c.
func New(c *catalog.Catalog) *RuleSet {
	return &RuleSet{
		catalog: c,
		table: map[models.Field][]check{
			models.FieldFullName: {
				required(models.FieldFullName, MsgNameRequired),
			},
			models.FieldEmail: {
				required(models.FieldEmail, MsgEmailRequired),
				email(models.FieldEmail, MsgEmailInvalid),
			},
			models.FieldPhone: {
				required(models.FieldPhone, MsgPhoneRequired),
				matches(models.FieldPhone, phonePattern, MsgPhoneInvalid),
			},
			models.FieldCollegeName: {
				required(models.FieldCollegeName, MsgCollegeRequired),
			},
			models.FieldDegree: {
				required(models.FieldDegree, MsgDegreeRequired),
				knownDegree(MsgDegreeRequired),
			},
			models.FieldStream: {
				required(models.FieldStream, MsgStreamRequired),
				offeredStream(MsgStreamRequired),
			},
			models.FieldYearOfStudy: {
				required(models.FieldYearOfStudy, MsgYearRequired),
				offeredYear(MsgYearRequired),
			},
			models.FieldBirthDate: {
				required(models.FieldBirthDate, MsgBirthRequired),
			},
			models.FieldPassword: {
				required(models.FieldPassword, MsgPasswordRequired),
				minLength(models.FieldPassword, MinPasswordLength, MsgPasswordShort),
			},
		},
	}
}

// Catalog returns the catalog the rules validate against.
func (r *RuleSet) Catalog() *catalog.Catalog {
	return r.catalog
}

// ValidateField evaluates a single field against the current snapshot.
// It returns the violation message and false when the field is invalid.
func (r *RuleSet) ValidateField(form models.Form, field models.Field) (string, bool) {
	for _, c := range r.table[field] {
		if msg := c(form, r.catalog); msg != "" {
			return msg, false
		}
	}
	return "", true
}

// ValidateForm evaluates every field and returns the complete error map.
// An empty map means the form may be submitted.
func (r *RuleSet) ValidateForm(form models.Form) models.FieldErrors {
	errs := models.FieldErrors{}
	for _, f := range models.Fields {
		if msg, ok := r.ValidateField(form, f); !ok {
			errs[f] = msg
		}
	}
	return errs
}

// Valid reports whether the whole form passes.
func (r *RuleSet) Valid(form models.Form) bool {
	return r.ValidateForm(form).Empty()
}

// required accepts any non-empty value, whitespace included.
func required(f models.Field, msg string) check {
	return func(form models.Form, _ *catalog.Catalog) string {
		if form.Get(f) == "" {
			return msg
		}
		return ""
	}
}

func email(f models.Field, msg string) check {
	return func(form models.Form, _ *catalog.Catalog) string {
		if emailValidator.Var(form.Get(f), "email") != nil {
			return msg
		}
		return ""
	}
}

func matches(f models.Field, re *regexp.Regexp, msg string) check {
	return func(form models.Form, _ *catalog.Catalog) string {
		if !re.MatchString(form.Get(f)) {
			return msg
		}
		return ""
	}
}

func minLength(f models.Field, n int, msg string) check {
	return func(form models.Form, _ *catalog.Catalog) string {
		if utf8.RuneCountInString(form.Get(f)) < n {
			return msg
		}
		return ""
	}
}

func knownDegree(msg string) check {
	return func(form models.Form, c *catalog.Catalog) string {
		if !c.Has(form.Degree) {
			return msg
		}
		return ""
	}
}

func offeredStream(msg string) check {
	return func(form models.Form, c *catalog.Catalog) string {
		if !c.ContainsStream(form.Degree, form.Stream) {
			return msg
		}
		return ""
	}
}

func offeredYear(msg string) check {
	return func(form models.Form, c *catalog.Catalog) string {
		if !c.ContainsYear(form.Degree, form.YearOfStudy) {
			return msg
		}
		return ""
	}
}
