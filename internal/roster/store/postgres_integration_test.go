//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"studentreg/internal/roster/models"
	"studentreg/internal/roster/store"
	id "studentreg/pkg/domain"
	audit "studentreg/pkg/platform/audit"
	auditpostgres "studentreg/pkg/platform/audit/store/postgres"
	"studentreg/pkg/testutil/containers"
)

type PostgresRosterSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	audit    *auditpostgres.Store
	store    *store.Postgres
}

func TestPostgresRosterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRosterSuite))
}

func (s *PostgresRosterSuite) SetupSuite() {
	ctx := context.Background()
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.audit = auditpostgres.New(s.postgres.DB)
	s.Require().NoError(s.audit.EnsureSchema(ctx))
	s.store = store.NewPostgres(s.postgres.DB, store.WithAuditStore(s.audit))
	s.Require().NoError(s.store.EnsureSchema(ctx))
}

func (s *PostgresRosterSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "roster_students", "audit_events"))
}

func student(name string, status models.Status) models.Student {
	return models.Student{
		ID:        id.StudentID(uuid.New()),
		Name:      name,
		Email:     name + "@example.com",
		College:   "City College",
		Degree:    "B.Sc",
		Year:      2024,
		BirthDate: "1994-01-01",
		Status:    status,
	}
}

func (s *PostgresRosterSuite) TestSaveThenLoad() {
	ctx := context.Background()
	rows := []models.Student{student("bea", models.StatusApproved), student("al", models.StatusPending)}
	s.Require().NoError(s.store.Save(ctx, rows))

	got, err := s.store.Students(ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("al", got[0].Name)
	s.Equal(models.StatusApproved, got[1].Status)
	s.Equal(rows[0].ID, got[1].ID)
}

func (s *PostgresRosterSuite) TestSaveUpsertsStatus() {
	ctx := context.Background()
	row := student("cy", models.StatusPending)
	s.Require().NoError(s.store.Save(ctx, []models.Student{row}))
	row.Status = models.StatusRejected
	s.Require().NoError(s.store.Save(ctx, []models.Student{row}))

	got, err := s.store.Students(ctx)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(models.StatusRejected, got[0].Status)
}

func (s *PostgresRosterSuite) TestSaveWritesAuditInSameTransaction() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, []models.Student{student("di", models.StatusApproved)}))

	events, err := s.audit.ListBySubject(ctx, "roster")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.ActionRosterPersisted, events[0].Action)
}
