//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"nucleo/internal/audit"
	"nucleo/internal/entity"
	"nucleo/pkg/testutil/containers"
)

type PostgresSinkSuite struct {
	suite.Suite

	ctx      context.Context
	postgres *containers.PostgresContainer
	sink     *audit.PostgresSink
}

func TestPostgresSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSinkSuite))
}

func (s *PostgresSinkSuite) SetupSuite() {
	s.ctx = context.Background()
	s.postgres = containers.NewPostgresContainer(s.T())
	s.sink = audit.NewPostgresSink(s.postgres.DB)
	s.Require().NoError(s.sink.Migrate(s.ctx))
}

func (s *PostgresSinkSuite) SetupTest() {
	_, err := s.postgres.DB.ExecContext(s.ctx, "TRUNCATE audit_logs")
	s.Require().NoError(err)
}

func (s *PostgresSinkSuite) TestCreatePersistsFullRecord() {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	err := s.sink.Create(s.ctx, audit.Record{
		UserID:        "user-1",
		UserEmail:     "ann@acme.example",
		CompanyID:     "acme",
		CompanyName:   "Acme Corp",
		Action:        audit.ActionUpdate,
		EntityType:    entity.TypeInvoice,
		EntityID:      "inv-1",
		EntityCode:    "INV-001",
		Description:   "Updated invoice INV-001",
		OldValues:     map[string]any{"status": "draft"},
		NewValues:     map[string]any{"status": "sent"},
		ChangedFields: []string{"status"},
		IPAddress:     "203.0.113.7",
		RequestPath:   "/api/invoice/inv-1",
		RequestMethod: "PUT",
		CreatedAt:     created,
	})
	s.Require().NoError(err)

	var (
		action, entityID, description string
		oldRaw, newRaw                []byte
		createdAt                     time.Time
	)
	row := s.postgres.DB.QueryRowContext(s.ctx,
		`SELECT action, entity_id, description, old_values, new_values, created_at
		 FROM audit_logs WHERE entity_id = 'inv-1'`)
	s.Require().NoError(row.Scan(&action, &entityID, &description, &oldRaw, &newRaw, &createdAt))

	s.Equal("UPDATE", action)
	s.Equal("Updated invoice INV-001", description)
	s.True(created.Equal(createdAt))

	var oldValues, newValues map[string]any
	s.Require().NoError(json.Unmarshal(oldRaw, &oldValues))
	s.Require().NoError(json.Unmarshal(newRaw, &newValues))
	s.Equal("draft", oldValues["status"])
	s.Equal("sent", newValues["status"])
}

func (s *PostgresSinkSuite) TestAbsentSnapshotsStayNull() {
	err := s.sink.Create(s.ctx, audit.Record{
		UserID:     "user-1",
		Action:     audit.ActionCreate,
		EntityType: entity.TypeCustomer,
		EntityID:   "cust-1",
		NewValues:  map[string]any{"name": "Initech"},
		CreatedAt:  time.Now(),
	})
	s.Require().NoError(err)

	var oldIsNull bool
	row := s.postgres.DB.QueryRowContext(s.ctx,
		`SELECT old_values IS NULL FROM audit_logs WHERE entity_id = 'cust-1'`)
	s.Require().NoError(row.Scan(&oldIsNull))
	s.True(oldIsNull)
}

func (s *PostgresSinkSuite) TestIDAssignedWhenMissing() {
	err := s.sink.Create(s.ctx, audit.Record{
		UserID:     "user-1",
		Action:     audit.ActionDelete,
		EntityType: entity.TypeCustomer,
		EntityID:   "cust-2",
		CreatedAt:  time.Now(),
	})
	s.Require().NoError(err)

	var id string
	row := s.postgres.DB.QueryRowContext(s.ctx,
		`SELECT id FROM audit_logs WHERE entity_id = 'cust-2'`)
	s.Require().NoError(row.Scan(&id))
	s.NotEmpty(id)
}
