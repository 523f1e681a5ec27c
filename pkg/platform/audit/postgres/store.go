package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "libregistry/pkg/platform/audit"
)

// Store implements audit.Store on PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	var libraryID any
	if event.LibraryID != uuid.Nil {
		libraryID = event.LibraryID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, action, library_id, opds_url, detail, client_ip, request_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Action, libraryID, nullable(event.OPDSURL),
		nullable(event.Detail), nullable(event.ClientIP),
		nullable(event.RequestID), event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, library_id, opds_url, detail, client_ip, request_id, occurred_at
		FROM audit_events ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event     audit.Event
			libraryID uuid.NullUUID
			opdsURL   sql.NullString
			detail    sql.NullString
			clientIP  sql.NullString
			requestID sql.NullString
		)
		if err := rows.Scan(&event.ID, &event.Action, &libraryID, &opdsURL,
			&detail, &clientIP, &requestID, &event.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.LibraryID = libraryID.UUID
		event.OPDSURL = opdsURL.String
		event.Detail = detail.String
		event.ClientIP = clientIP.String
		event.RequestID = requestID.String
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
