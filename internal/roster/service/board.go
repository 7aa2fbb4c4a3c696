// Package service keeps the admin status board: a fetched student list whose
// per-row statuses are edited in memory and submitted in bulk.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"studentreg/internal/roster/models"
	id "studentreg/pkg/domain"
	dErrors "studentreg/pkg/domain-errors"
	"studentreg/pkg/platform/audit"
	"studentreg/pkg/platform/middleware/request"
	"studentreg/pkg/requestcontext"
)

var (
	ErrSubmitInProgress = dErrors.New(dErrors.CodeInvalidState, "a roster submission is already in progress")
	ErrNotLoaded        = dErrors.New(dErrors.CodeInvalidState, "roster has not been loaded")
)

// Source fetches the student list.
type Source interface {
	Students(ctx context.Context) ([]models.Student, error)
}

// Sink receives the submitted statuses.
type Sink interface {
	Save(ctx context.Context, students []models.Student) error
}

// AuditPublisher records admin actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Board is safe for concurrent use.
type Board struct {
	source Source
	sink   Sink
	logger *slog.Logger
	audit  AuditPublisher
	// minSubmit keeps a submission pending for at least this long.
	minSubmit time.Duration

	loads singleflight.Group

	mu         sync.RWMutex
	rows       []models.Student
	index      map[id.StudentID]int
	loaded     bool
	submitting bool
}

// Option configures a Board.
type Option func(*Board)

func WithLogger(logger *slog.Logger) Option {
	return func(b *Board) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(b *Board) {
		b.audit = p
	}
}

// WithMinSubmitDuration holds Submit open for at least d.
func WithMinSubmitDuration(d time.Duration) Option {
	return func(b *Board) {
		b.minSubmit = d
	}
}

// New creates an empty board. Call Reload to populate it.
func New(source Source, sink Sink, opts ...Option) (*Board, error) {
	if source == nil {
		return nil, errors.New("roster source is required")
	}
	if sink == nil {
		return nil, errors.New("roster sink is required")
	}
	b := &Board{
		source: source,
		sink:   sink,
		logger: slog.Default(),
		index:  map[id.StudentID]int{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Reload replaces the rows with a fresh fetch. Concurrent reloads share one
// fetch. Rows missing a status start Pending.
func (b *Board) Reload(ctx context.Context) ([]models.Student, error) {
	v, err, _ := b.loads.Do("reload", func() (any, error) {
		students, err := b.source.Students(ctx)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeBadGateway, "failed to fetch students")
		}
		rows := make([]models.Student, 0, len(students))
		index := make(map[id.StudentID]int, len(students))
		for _, s := range students {
			if s.Status == "" {
				s.Status = models.StatusPending
			}
			if _, dup := index[s.ID]; dup {
				continue
			}
			index[s.ID] = len(rows)
			rows = append(rows, s)
		}

		b.mu.Lock()
		b.rows = rows
		b.index = index
		b.loaded = true
		b.mu.Unlock()
		return slices.Clone(rows), nil
	})
	if err != nil {
		b.logger.WarnContext(ctx, "roster reload failed",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		return nil, err
	}
	rows := v.([]models.Student)
	b.logger.InfoContext(ctx, "roster reloaded",
		"request_id", request.GetRequestID(ctx),
		"students", len(rows),
	)
	b.emit(ctx, audit.ActionRosterReloaded, "roster", "", "")
	return rows, nil
}

// Students returns the rows in source order.
func (b *Board) Students() ([]models.Student, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.loaded {
		return nil, ErrNotLoaded
	}
	return slices.Clone(b.rows), nil
}

// Submitting reports whether a submission is pending.
func (b *Board) Submitting() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.submitting
}

// SetStatus records a decision for one student. Last write wins.
func (b *Board) SetStatus(ctx context.Context, studentID id.StudentID, status models.Status) (models.Student, error) {
	if _, err := models.ParseStatus(string(status)); err != nil {
		return models.Student{}, err
	}
	b.mu.Lock()
	i, ok := b.index[studentID]
	if !ok {
		b.mu.Unlock()
		return models.Student{}, dErrors.New(dErrors.CodeNotFound, "student not found")
	}
	previous := b.rows[i].Status
	b.rows[i].Status = status
	row := b.rows[i]
	b.mu.Unlock()

	if previous != status {
		b.emit(ctx, audit.ActionStudentStatusChanged, studentID.String(), string(status), "was "+string(previous))
	}
	return row, nil
}

// Submit hands a snapshot of every row to the sink. Only one submission runs
// at a time; edits made meanwhile are kept on the board but are not part of
// the snapshot.
func (b *Board) Submit(ctx context.Context) ([]models.Student, error) {
	b.mu.Lock()
	if !b.loaded {
		b.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if b.submitting {
		b.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	b.submitting = true
	snapshot := slices.Clone(b.rows)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.submitting = false
		b.mu.Unlock()
	}()

	start := time.Now()
	if err := b.sink.Save(ctx, snapshot); err != nil {
		b.logger.ErrorContext(ctx, "roster submit failed",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save student statuses")
	}
	if wait := b.minSubmit - time.Since(start); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
		case <-t.C:
		}
		t.Stop()
	}

	b.logger.InfoContext(ctx, "roster submitted",
		"request_id", request.GetRequestID(ctx),
		"students", len(snapshot),
	)
	b.emit(ctx, audit.ActionRosterSubmitted, "roster", "submitted", "")
	return snapshot, nil
}

func (b *Board) emit(ctx context.Context, action audit.Action, subject, decision, reason string) {
	if b.audit == nil {
		return
	}
	err := b.audit.Emit(ctx, audit.Event{
		Subject:   subject,
		Action:    action,
		Decision:  decision,
		Reason:    reason,
		RequestID: request.GetRequestID(ctx),
		ActorID:   "admin",
		ClientIP:  requestcontext.ClientIP(ctx),
		Timestamp: requestcontext.Now(ctx),
	})
	if err != nil {
		b.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", err)
	}
}
