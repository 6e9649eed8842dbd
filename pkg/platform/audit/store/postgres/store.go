package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "probata/pkg/domain"
	"probata/pkg/platform/audit"
)

// Schema is the DDL for the audit trail table.
const Schema = `
CREATE TABLE IF NOT EXISTS filing_audit_trail (
	id             UUID PRIMARY KEY,
	occurred_at    TIMESTAMPTZ NOT NULL,
	application_id UUID NOT NULL,
	action         TEXT NOT NULL,
	actor_id       TEXT NOT NULL DEFAULT '',
	request_id     TEXT NOT NULL DEFAULT '',
	ip             TEXT NOT NULL DEFAULT '',
	user_agent     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_filing_audit_application ON filing_audit_trail (application_id, occurred_at);
`

// EnsureSchema creates the audit trail table if it does not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

// Store persists audit events in PostgreSQL.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	query := `
		INSERT INTO filing_audit_trail (
			id, occurred_at, application_id, action,
			actor_id, request_id, ip, user_agent
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		uuid.UUID(event.ApplicationID),
		event.Action,
		event.ActorID,
		event.RequestID,
		event.IP,
		event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByApplication returns an application's trail oldest first.
func (s *Store) ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]audit.Event, error) {
	query := `
		SELECT occurred_at, application_id, action,
		       actor_id, request_id, ip, user_agent
		FROM filing_audit_trail
		WHERE application_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(applicationID))
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent returns the N most recent events across all applications,
// newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT occurred_at, application_id, action,
		       actor_id, request_id, ip, user_agent
		FROM filing_audit_trail
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit trail: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event         audit.Event
			applicationID uuid.UUID
		)
		err := rows.Scan(
			&event.Timestamp,
			&applicationID,
			&event.Action,
			&event.ActorID,
			&event.RequestID,
			&event.IP,
			&event.UserAgent,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.ApplicationID = id.ApplicationID(applicationID)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit trail: %w", err)
	}
	return events, nil
}
