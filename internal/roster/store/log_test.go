package store

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentreg/internal/roster/models"
	id "studentreg/pkg/domain"
)

func TestLogSink_Summarizes(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewTextHandler(&buf, nil)))

	err := sink.Save(context.Background(), []models.Student{
		{ID: id.StudentID(uuid.New()), Status: models.StatusApproved},
		{ID: id.StudentID(uuid.New()), Status: models.StatusApproved},
		{ID: id.StudentID(uuid.New()), Status: models.StatusPending},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "students=3")
	assert.Contains(t, out, "approved=2")
	assert.Contains(t, out, "pending=1")
	assert.Contains(t, out, "rejected=0")
}
