// Package store persists roster rows and receives bulk status submissions.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studentreg/internal/roster/models"
	id "studentreg/pkg/domain"
	audit "studentreg/pkg/platform/audit"
	txcontext "studentreg/pkg/platform/tx"
)

// Schema creates the roster_students table.
const Schema = `
CREATE TABLE IF NOT EXISTS roster_students (
	id          UUID PRIMARY KEY,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL,
	phone       TEXT NOT NULL DEFAULT '',
	college     TEXT NOT NULL DEFAULT '',
	degree      TEXT NOT NULL DEFAULT '',
	year        INTEGER NOT NULL DEFAULT 0,
	birth_date  TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'Pending',
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres is both a roster source and a sink. Save upserts every row in one
// transaction; when an audit store is attached the submission event is
// written in the same transaction.
type Postgres struct {
	db    *sql.DB
	audit audit.Store
	clock func() time.Time
}

type PostgresOption func(*Postgres)

// WithAuditStore records roster_persisted alongside the upserts.
func WithAuditStore(st audit.Store) PostgresOption {
	return func(p *Postgres) {
		p.audit = st
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// EnsureSchema creates the table if missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create roster schema: %w", err)
	}
	return nil
}

// Students lists persisted rows ordered by name.
func (p *Postgres) Students(ctx context.Context) ([]models.Student, error) {
	const query = `
		SELECT id, name, email, phone, college, degree, year, birth_date, status
		FROM roster_students
		ORDER BY name, id
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var out []models.Student
	for rows.Next() {
		var (
			s      models.Student
			rawID  string
			status string
		)
		if err := rows.Scan(&rawID, &s.Name, &s.Email, &s.Phone, &s.College, &s.Degree, &s.Year, &s.BirthDate, &status); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		if s.ID, err = id.ParseStudentID(rawID); err != nil {
			return nil, fmt.Errorf("roster row id %q: %w", rawID, err)
		}
		if s.Status, err = models.ParseStatus(status); err != nil {
			s.Status = models.StatusPending
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}
	return out, nil
}

// Save upserts the rows with their statuses.
func (p *Postgres) Save(ctx context.Context, students []models.Student) error {
	const query = `
		INSERT INTO roster_students (id, name, email, phone, college, degree, year, birth_date, status, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			college = EXCLUDED.college,
			degree = EXCLUDED.degree,
			year = EXCLUDED.year,
			birth_date = EXCLUDED.birth_date,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
	`
	now := p.clock()
	return txcontext.Run(ctx, p.db, func(ctx context.Context) error {
		tx, _ := txcontext.From(ctx)
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare roster upsert: %w", err)
		}
		defer stmt.Close()

		for _, s := range students {
			if _, err := stmt.ExecContext(ctx,
				s.ID.String(), s.Name, s.Email, s.Phone, s.College, s.Degree, s.Year, s.BirthDate, string(s.Status), now,
			); err != nil {
				return fmt.Errorf("upsert student %s: %w", s.ID, err)
			}
		}
		if p.audit == nil {
			return nil
		}
		return p.audit.Append(ctx, audit.Event{
			Subject:  "roster",
			Action:   audit.ActionRosterPersisted,
			Decision: fmt.Sprintf("%d students", len(students)),
			ActorID:  "admin",
		}.Normalize(now))
	})
}
