package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "studentreg/pkg/domain-errors"
)

// FormID identifies one registration form instance.
type FormID uuid.UUID

// StudentID identifies a row on the admin status board.
type StudentID uuid.UUID

// NewFormID returns a random form identifier.
func NewFormID() FormID {
	return FormID(uuid.New())
}

func (f FormID) String() string { return uuid.UUID(f).String() }

// IsNil reports whether the ID is the zero UUID.
func (f FormID) IsNil() bool { return uuid.UUID(f) == uuid.Nil }

func (f FormID) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *FormID) UnmarshalText(b []byte) error {
	parsed, err := ParseFormID(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func (s StudentID) String() string { return uuid.UUID(s).String() }

// IsNil reports whether the ID is the zero UUID.
func (s StudentID) IsNil() bool { return uuid.UUID(s) == uuid.Nil }

func (s StudentID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *StudentID) UnmarshalText(b []byte) error {
	parsed, err := ParseStudentID(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseFormID validates a path or body value as a form identifier.
func ParseFormID(s string) (FormID, error) {
	u, err := parseUUID(s, "form")
	return FormID(u), err
}

// ParseStudentID validates a path or body value as a student identifier.
func ParseStudentID(s string) (StudentID, error) {
	u, err := parseUUID(s, "student")
	return StudentID(u), err
}

func parseUUID(s, kind string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind+" id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return u, nil
}
