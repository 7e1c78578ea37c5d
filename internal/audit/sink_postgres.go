package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PostgresSink appends audit records to the audit_logs table. The table has no
// update or delete path in this codebase; rows are written exactly once.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink constructs a PostgreSQL-backed sink over an open database
// handle (pgx stdlib driver).
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

var _ Sink = (*PostgresSink)(nil)

const auditLogsSchema = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	user_email     TEXT,
	user_name      TEXT,
	company_id     TEXT,
	company_name   TEXT,
	action         TEXT NOT NULL,
	entity_type    TEXT NOT NULL,
	entity_id      TEXT NOT NULL,
	entity_code    TEXT,
	description    TEXT,
	old_values     JSONB,
	new_values     JSONB,
	changed_fields TEXT[] NOT NULL DEFAULT '{}',
	ip_address     TEXT,
	user_agent     TEXT,
	device         TEXT,
	request_path   TEXT,
	request_method TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Migrate creates the audit_logs table when missing.
func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditLogsSchema); err != nil {
		return fmt.Errorf("migrate audit_logs table: %w", err)
	}
	return nil
}

func (s *PostgresSink) Create(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	oldValues, err := encodeSnapshot(rec.OldValues)
	if err != nil {
		return err
	}
	newValues, err := encodeSnapshot(rec.NewValues)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_logs (
			id, user_id, user_email, user_name, company_id, company_name,
			action, entity_type, entity_id, entity_code, description,
			old_values, new_values, changed_fields,
			ip_address, user_agent, device, request_path, request_method, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12::jsonb, $13::jsonb, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.UserID, rec.UserEmail, rec.UserName, rec.CompanyID, rec.CompanyName,
		string(rec.Action), string(rec.EntityType), rec.EntityID, rec.EntityCode, rec.Description,
		oldValues, newValues, rec.ChangedFields,
		rec.IPAddress, rec.UserAgent, rec.Device, rec.RequestPath, rec.RequestMethod, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// encodeSnapshot marshals a snapshot, keeping SQL NULL for absent ones so
// "no baseline" and "empty object" stay distinguishable.
func encodeSnapshot(snapshot map[string]any) (any, error) {
	if snapshot == nil {
		return nil, nil
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode audit snapshot: %w", err)
	}
	return string(raw), nil
}
