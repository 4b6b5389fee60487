// Package postgres implements the audit store as an append-only log table
// on PostgreSQL. Rows are only ever inserted and read back per session;
// the streaming sink is fed separately through the fanout, so an audit
// write survives broker outages.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "facelive/pkg/domain"
	"facelive/pkg/platform/audit"
)

// Schema for the log table:
//
//	CREATE TABLE IF NOT EXISTS audit_log (
//	    id          UUID PRIMARY KEY,
//	    session_id  UUID NOT NULL,
//	    category    TEXT NOT NULL,
//	    action      TEXT NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    payload     JSONB NOT NULL
//	);
//	CREATE INDEX IF NOT EXISTS audit_log_session_idx ON audit_log (session_id);

// Store implements audit.Store backed by the audit_log table.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append writes one audit event row.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	const q = `
		INSERT INTO audit_log (id, session_id, category, action, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := s.db.ExecContext(ctx, q,
		uuid.New(),
		event.SessionID.String(),
		string(event.Category),
		string(event.Action),
		event.Timestamp,
		payload,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListBySession returns a session's events in occurrence order.
func (s *Store) ListBySession(ctx context.Context, sessionID id.SessionID) ([]audit.Event, error) {
	const q = `
		SELECT payload FROM audit_log
		WHERE session_id = $1
		ORDER BY occurred_at ASC`
	rows, err := s.db.QueryContext(ctx, q, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var event audit.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal audit event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
