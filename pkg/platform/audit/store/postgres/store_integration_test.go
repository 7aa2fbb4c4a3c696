//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	audit "studentreg/pkg/platform/audit"
	"studentreg/pkg/platform/audit/store/postgres"
	txcontext "studentreg/pkg/platform/tx"
	"studentreg/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresAuditSuite) TestAppendAndList() {
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, action := range []audit.Action{audit.ActionRegistrationStarted, audit.ActionRegistrationSubmitted, audit.ActionRegistrationAccepted} {
		ev := audit.Event{Subject: "form-1", Action: action, RequestID: "req"}.Normalize(base.Add(time.Duration(i) * time.Minute))
		s.Require().NoError(s.store.Append(ctx, ev))
	}
	s.Require().NoError(s.store.Append(ctx, audit.Event{Subject: "form-2", Action: audit.ActionRegistrationDiscarded}.Normalize(base.Add(time.Hour))))

	events, err := s.store.ListBySubject(ctx, "form-1")
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(audit.ActionRegistrationAccepted, events[2].Action)
	s.Equal(audit.CategoryCompliance, events[2].Category)

	recent, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("form-2", recent[1].Subject)
}

func (s *PostgresAuditSuite) TestAppendJoinsTransaction() {
	ctx := context.Background()
	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)

	txCtx := txcontext.WithTx(ctx, tx)
	s.Require().NoError(s.store.Append(txCtx, audit.Event{Subject: "rolled-back", Action: audit.ActionRosterSubmitted}.Normalize(time.Now())))
	s.Require().NoError(tx.Rollback())

	events, err := s.store.ListBySubject(ctx, "rolled-back")
	s.Require().NoError(err)
	s.Empty(events)
}
