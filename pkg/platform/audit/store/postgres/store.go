package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "idregistry/pkg/platform/audit"
	txcontext "idregistry/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

const eventColumns = `id, registry_id, sequence, action, caller, subject, detail, request_id, client_ip, user_agent, timestamp`

// Store implements audit.Store on the audit_events table. Append writes through
// the transaction in context when present, so an event commits or rolls back
// with the registry change that produced it.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit_events table if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	query := `
		INSERT INTO audit_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := txcontext.ExecutorFrom(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		event.RegistryID,
		event.Sequence,
		event.Action,
		event.Caller,
		event.Subject,
		event.Detail,
		event.RequestID,
		event.ClientIP,
		event.UserAgent,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByRegistry returns events for a registry, newest first.
func (s *Store) ListByRegistry(ctx context.Context, registryID string, limit int) ([]audit.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE registry_id = $1
		ORDER BY sequence DESC, timestamp DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, registryID, audit.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Store) ListByActions(ctx context.Context, registryID string, actions []string, limit int) ([]audit.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE registry_id = $1 AND action = ANY($2)
		ORDER BY sequence DESC, timestamp DESC
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, query, registryID, pq.Array(actions), audit.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit events by action: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var event audit.Event
		err := rows.Scan(
			&event.ID,
			&event.RegistryID,
			&event.Sequence,
			&event.Action,
			&event.Caller,
			&event.Subject,
			&event.Detail,
			&event.RequestID,
			&event.ClientIP,
			&event.UserAgent,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
