package models

import (
	"slices"

	dErrors "studentreg/pkg/domain-errors"
)

// Field names a registration form input. The string value is the name used by
// clients on the wire and as the key of FieldErrors.
type Field string

const (
	FieldFullName    Field = "fullName"
	FieldEmail       Field = "email"
	FieldPhone       Field = "phone"
	FieldCollegeName Field = "collegeName"
	FieldDegree      Field = "degree"
	FieldStream      Field = "stream"
	FieldYearOfStudy Field = "yearOfStudy"
	FieldBirthDate   Field = "birthDate"
	FieldPassword    Field = "password"
)

// Fields lists every form field in display order.
var Fields = []Field{
	FieldFullName,
	FieldEmail,
	FieldPhone,
	FieldCollegeName,
	FieldDegree,
	FieldStream,
	FieldYearOfStudy,
	FieldBirthDate,
	FieldPassword,
}

// ParseField validates a client-supplied field name.
func ParseField(s string) (Field, error) {
	f := Field(s)
	if !slices.Contains(Fields, f) {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown field: "+s)
	}
	return f, nil
}

func (f Field) String() string { return string(f) }

// IsDependent reports whether the field's options come from the degree.
func (f Field) IsDependent() bool {
	return f == FieldStream || f == FieldYearOfStudy
}

// Form is the value set edited by the student. The zero value is the empty form.
//
// Invariants (maintained by the resolver, not by this type):
//   - Stream, when non-empty, is offered for the current Degree
//   - YearOfStudy, when non-empty, is offered for the current Degree
type Form struct {
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	CollegeName string `json:"collegeName"`
	Degree      string `json:"degree"`
	Stream      string `json:"stream"`
	YearOfStudy string `json:"yearOfStudy"`
	BirthDate   string `json:"birthDate"`
	Password    string `json:"password"`
}

// Get returns the value of f.
func (fm Form) Get(f Field) string {
	switch f {
	case FieldFullName:
		return fm.FullName
	case FieldEmail:
		return fm.Email
	case FieldPhone:
		return fm.Phone
	case FieldCollegeName:
		return fm.CollegeName
	case FieldDegree:
		return fm.Degree
	case FieldStream:
		return fm.Stream
	case FieldYearOfStudy:
		return fm.YearOfStudy
	case FieldBirthDate:
		return fm.BirthDate
	case FieldPassword:
		return fm.Password
	}
	return ""
}

// With returns a copy of the form with f set to value. Unknown fields leave the
// form unchanged.
func (fm Form) With(f Field, value string) Form {
	switch f {
	case FieldFullName:
		fm.FullName = value
	case FieldEmail:
		fm.Email = value
	case FieldPhone:
		fm.Phone = value
	case FieldCollegeName:
		fm.CollegeName = value
	case FieldDegree:
		fm.Degree = value
	case FieldStream:
		fm.Stream = value
	case FieldYearOfStudy:
		fm.YearOfStudy = value
	case FieldBirthDate:
		fm.BirthDate = value
	case FieldPassword:
		fm.Password = value
	}
	return fm
}

// Redacted returns a copy safe to echo back to clients or logs.
func (fm Form) Redacted() Form {
	fm.Password = ""
	return fm
}
