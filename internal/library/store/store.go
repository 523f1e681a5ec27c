// Package store persists library records keyed uniquely by OPDS URL.
package store

import (
	"context"

	"libregistry/internal/library/models"
)

// ReconcileFunc decides the outcome of one registration handshake. It
// receives the current record (nil when the OPDS URL is unknown) and returns
// the record to persist. Returning an error aborts the handshake with nothing
// written.
//
// The function runs under the store's per-key exclusivity for the OPDS URL,
// so two concurrent handshakes for the same library cannot interleave their
// secret verification and field writes.
type ReconcileFunc func(existing *models.Library) (*models.Library, error)

// Store is the persistence contract for library records.
type Store interface {
	// FindByOPDSURL returns the library registered at the given catalog URL.
	// Returns sentinel.ErrNotFound (possibly wrapped) when absent.
	FindByOPDSURL(ctx context.Context, opdsURL string) (*models.Library, error)

	// List returns all registered libraries ordered by name.
	List(ctx context.Context) ([]*models.Library, error)

	// Reconcile runs fn with exclusive access to the record for opdsURL and
	// persists its result in the same critical section. Reports whether the
	// record was created rather than updated. Exactly one write, and only
	// when fn succeeds.
	Reconcile(ctx context.Context, opdsURL string, fn ReconcileFunc) (lib *models.Library, created bool, err error)
}
