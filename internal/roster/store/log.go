package store

import (
	"context"
	"log/slog"

	"studentreg/internal/roster/models"
)

// LogSink writes submitted statuses to the log. Used when no database is
// configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Save(ctx context.Context, students []models.Student) error {
	counts := map[models.Status]int{}
	for _, st := range students {
		counts[st.Status]++
		s.logger.DebugContext(ctx, "student status",
			"student_id", st.ID.String(),
			"status", st.Status,
		)
	}
	s.logger.InfoContext(ctx, "submitted student statuses",
		"students", len(students),
		"pending", counts[models.StatusPending],
		"approved", counts[models.StatusApproved],
		"rejected", counts[models.StatusRejected],
	)
	return nil
}
