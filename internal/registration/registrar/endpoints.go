package registrar

import (
	"context"
	"errors"

	"libregistry/internal/library/models"
	"libregistry/internal/library/secrets"
	"libregistry/pkg/platform/audit"
	"libregistry/pkg/platform/sentinel"
	"libregistry/pkg/problemdetail"
	"libregistry/pkg/requestcontext"
)

// UpdateEndpoints changes a registered library's authentication and catalog
// URLs. An empty value leaves the corresponding field unchanged, so calling
// with two empty URLs never modifies the record. A library holding a secret
// only accepts the change when the caller presents that secret.
func (r *Registrar) UpdateEndpoints(ctx context.Context, opdsURL, providedSecret, newAuthURL, newOPDSURL string) (*models.Library, *problemdetail.ProblemDetail) {
	lib, _, err := r.store.Reconcile(ctx, opdsURL, func(existing *models.Library) (*models.Library, error) {
		if existing == nil {
			return nil, sentinel.ErrNotFound
		}
		if existing.HasSecret() && !secrets.Verify(existing.SharedSecret, providedSecret) {
			return nil, errSecretMismatch
		}
		if newAuthURL != "" {
			existing.AuthenticationURL = newAuthURL
		}
		if newOPDSURL != "" {
			existing.OPDSURL = newOPDSURL
		}
		existing.UpdatedAt = r.now()
		return existing, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errSecretMismatch):
			pd := problemdetail.AuthenticationFailure().
				WithDetail("Provided shared secret is invalid")
			return nil, &pd
		case errors.Is(err, sentinel.ErrNotFound):
			pd := problemdetail.NoOPDSURL().
				WithDetailf("No library is registered at %s", opdsURL)
			return nil, &pd
		default:
			r.logger.Error("endpoint update failed", "opds_url", opdsURL, "error", err)
			pd := problemdetail.InternalError()
			return nil, &pd
		}
	}

	if newAuthURL != "" || newOPDSURL != "" {
		_ = r.audit.Emit(ctx, audit.Event{
			Action:     audit.EventEndpointsUpdated,
			LibraryID:  lib.ID,
			OPDSURL:    lib.OPDSURL,
			ClientIP:   requestcontext.ClientIP(ctx),
			RequestID:  requestcontext.RequestID(ctx),
			OccurredAt: r.now(),
		})
	}
	return lib, nil
}
