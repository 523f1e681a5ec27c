package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is emitted from domain logic to capture key registry actions. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Action     string    `json:"action"`
	LibraryID  uuid.UUID `json:"library_id,omitempty"`
	OPDSURL    string    `json:"opds_url,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Registry actions recorded in the audit trail.
const (
	EventLibraryCreated     = "library_created"
	EventLibraryUpdated     = "library_updated"
	EventRegistrationFailed = "registration_failed"
	EventEndpointsUpdated   = "endpoints_updated"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter is the write-side interface domain code depends on.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Discard is an Emitter that drops every event. Useful in tests and when
// auditing is disabled.
type Discard struct{}

func (Discard) Emit(context.Context, Event) error { return nil }
