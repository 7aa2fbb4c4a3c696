package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "studentreg/pkg/domain-errors"
)

// TestParseFormID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseFormID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseFormID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseFormID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseFormID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseFormID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, FormID(validUUID), id)
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE students;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, formErr := ParseFormID(tt.input)
			_, studentErr := ParseStudentID(tt.input)
			if tt.wantErr {
				require.Error(t, formErr)
				require.Error(t, studentErr)
				assert.True(t, dErrors.HasCode(formErr, dErrors.CodeInvalidInput))
				assert.True(t, dErrors.HasCode(studentErr, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, formErr)
				require.NoError(t, studentErr)
			}
		})
	}
}

func TestFormID_TextRoundTrip(t *testing.T) {
	id := NewFormID()
	text, err := id.MarshalText()
	require.NoError(t, err)

	var decoded FormID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
	assert.False(t, decoded.IsNil())

	var bad FormID
	assert.Error(t, bad.UnmarshalText([]byte("nope")))
	assert.True(t, bad.IsNil())
}
