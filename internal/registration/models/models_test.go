package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "studentreg/pkg/domain-errors"
)

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		got, err := ParseField(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := ParseField("Email")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	_, err = ParseField("")
	assert.Error(t, err)
}

func TestFormWithAndGet(t *testing.T) {
	var form Form
	for i, f := range Fields {
		form = form.With(f, string(rune('a'+i)))
	}
	for i, f := range Fields {
		assert.Equal(t, string(rune('a'+i)), form.Get(f), f)
	}

	unchanged := form.With(Field("nickname"), "x")
	assert.Equal(t, form, unchanged)
	assert.Empty(t, form.Get(Field("nickname")))
}

func TestFormWithDoesNotMutateReceiver(t *testing.T) {
	base := Form{FullName: "Asha"}
	_ = base.With(FieldFullName, "Ravi")
	assert.Equal(t, "Asha", base.FullName)
}

func TestRedacted(t *testing.T) {
	form := Form{Email: "a@b.co", Password: "secret1"}
	red := form.Redacted()
	assert.Empty(t, red.Password)
	assert.Equal(t, "a@b.co", red.Email)
	assert.Equal(t, "secret1", form.Password)
}

func TestIsDependent(t *testing.T) {
	assert.True(t, FieldStream.IsDependent())
	assert.True(t, FieldYearOfStudy.IsDependent())
	assert.False(t, FieldDegree.IsDependent())
}

func TestFieldErrorsSet(t *testing.T) {
	errs := FieldErrors{}
	errs.Set(FieldEmail, "Invalid email")
	assert.False(t, errs.Empty())

	clone := errs.Clone()
	errs.Set(FieldEmail, "")
	assert.True(t, errs.Empty())
	assert.Equal(t, "Invalid email", clone[FieldEmail])
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusSucceeded.IsTerminal())
	assert.False(t, StatusSubmitting.IsTerminal())
	assert.True(t, StatusEditing.AcceptsEdits())
	assert.True(t, StatusSubmitting.AcceptsEdits())
	assert.False(t, StatusSucceeded.AcceptsEdits())
}
