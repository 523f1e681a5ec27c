// Package registrar orchestrates the registration handshake: fetch the
// candidate catalog, discover and fetch its authentication document,
// validate it, and reconcile the result into a library record. The
// handshake is an explicit state machine so partial progress is never
// mistaken for success; every failure leaves it in the single terminal
// failed state carrying a problem detail.
package registrar

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"libregistry/internal/library/metrics"
	"libregistry/internal/library/models"
	"libregistry/internal/library/secrets"
	"libregistry/internal/library/store"
	"libregistry/internal/registration/authdoc"
	"libregistry/internal/registration/fetch"
	"libregistry/internal/registration/opds"
	"libregistry/pkg/platform/audit"
	"libregistry/pkg/problemdetail"
	"libregistry/pkg/requestcontext"
)

var tracer = otel.Tracer("libregistry/registrar")

// state names one step of the handshake.
type state int

const (
	stateStart state = iota
	stateFetchCatalog
	stateDiscoverAuthLink
	stateFetchAuthDoc
	stateValidateAuthDoc
	stateReconcileLibrary
	stateDone
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateFetchCatalog:
		return "fetch_catalog"
	case stateDiscoverAuthLink:
		return "discover_auth_link"
	case stateFetchAuthDoc:
		return "fetch_auth_doc"
	case stateValidateAuthDoc:
		return "validate_auth_doc"
	case stateReconcileLibrary:
		return "reconcile_library"
	case stateDone:
		return "done"
	default:
		return "failed"
	}
}

// Result is the outcome of a successful handshake. Status carries the
// HTTP intent: 201 for a first registration, 200 for an update.
type Result struct {
	Library *models.Library
	Created bool
	Status  int
}

// Registrar runs registration handshakes against an injected fetch
// capability and the library store.
type Registrar struct {
	store   store.Store
	fetcher fetch.Fetcher
	metrics *metrics.Metrics
	audit   audit.Emitter
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithMetrics records handshake outcomes and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registrar) { r.metrics = m }
}

// WithAudit emits audit events for handshake outcomes.
func WithAudit(e audit.Emitter) Option {
	return func(r *Registrar) { r.audit = e }
}

// WithLogger sets the handshake logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registrar) { r.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registrar) { r.now = now }
}

// New creates a Registrar.
func New(st store.Store, f fetch.Fetcher, opts ...Option) *Registrar {
	r := &Registrar{
		store:   st,
		fetcher: f,
		audit:   audit.Discard{},
		logger:  slog.New(slog.DiscardHandler),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// attempt carries the working set of one handshake through the states.
type attempt struct {
	opdsURL        string
	providedSecret string

	catalog *fetch.Response
	authURL string
	authDoc *fetch.Response
	doc     *authdoc.Document

	result  *Result
	problem *problemdetail.ProblemDetail
}

// errSecretMismatch marks the reconcile callback's authentication failure
// so it can be told apart from storage faults.
var errSecretMismatch = errors.New("shared secret mismatch")

// Register runs one handshake for the catalog at opdsURL. providedSecret
// is the caller's claim to an existing registration; it is ignored for
// first-time binds. Exactly one persistence write occurs, and only when
// the handshake reaches its final state successfully.
func (r *Registrar) Register(ctx context.Context, opdsURL, providedSecret string) (*Result, *problemdetail.ProblemDetail) {
	ctx, span := tracer.Start(ctx, "registrar.Register",
		trace.WithAttributes(attribute.String("library.opds_url", opdsURL)))
	defer span.End()

	start := r.now()
	a := &attempt{opdsURL: strings.TrimSpace(opdsURL), providedSecret: providedSecret}

	st := stateStart
	for st != stateDone && st != stateFailed {
		next := r.step(ctx, st, a)
		r.logger.Debug("handshake transition",
			"from", st.String(), "to", next.String(), "opds_url", a.opdsURL)
		st = next
	}

	if r.metrics != nil {
		r.metrics.ObserveRegistration(start)
	}

	if st == stateFailed {
		span.SetAttributes(attribute.String("handshake.problem", a.problem.Type))
		r.recordFailure(ctx, a)
		return nil, a.problem
	}

	span.SetAttributes(attribute.Bool("library.created", a.result.Created))
	r.recordSuccess(ctx, a)
	return a.result, nil
}

func (r *Registrar) step(ctx context.Context, st state, a *attempt) state {
	switch st {
	case stateStart:
		return r.start(a)
	case stateFetchCatalog:
		return r.fetchCatalog(ctx, a)
	case stateDiscoverAuthLink:
		return r.discoverAuthLink(a)
	case stateFetchAuthDoc:
		return r.fetchAuthDoc(ctx, a)
	case stateValidateAuthDoc:
		return r.validateAuthDoc(a)
	case stateReconcileLibrary:
		return r.reconcileLibrary(ctx, a)
	default:
		return stateFailed
	}
}

func (a *attempt) fail(pd problemdetail.ProblemDetail) state {
	a.problem = &pd
	return stateFailed
}

func (r *Registrar) start(a *attempt) state {
	if a.opdsURL == "" {
		return a.fail(problemdetail.NoOPDSURL())
	}
	return stateFetchCatalog
}

// fetchCatalog retrieves the candidate catalog. A 401 or 403 challenge is
// the expected discovery signal for catalogs that embed or reference their
// authentication document in the challenge, and any response advertising
// links still moves the handshake forward. Transport failure and other
// error statuses with nothing discoverable are fatal here.
func (r *Registrar) fetchCatalog(ctx context.Context, a *attempt) state {
	resp, err := r.fetcher.Get(ctx, a.opdsURL)
	if err != nil {
		return a.fail(problemdetail.InvalidOPDSFeed().
			WithDetailf("Could not retrieve OPDS feed at %s", a.opdsURL))
	}
	if resp.StatusCode >= 400 &&
		resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden &&
		len(opds.ResponseLinks(resp)) == 0 {
		return a.fail(problemdetail.InvalidOPDSFeed().
			WithDetailf("OPDS feed at %s returned status %d", a.opdsURL, resp.StatusCode))
	}
	a.catalog = resp
	return stateDiscoverAuthLink
}

// discoverAuthLink applies link discovery to the catalog response. A direct
// authentication document link wins; a shelf link is followed on the
// expectation that its challenge carries the document. A catalog whose own
// body is the authentication document skips the second fetch entirely.
func (r *Registrar) discoverAuthLink(a *attempt) state {
	links := opds.ResponseLinks(a.catalog)

	if link, ok := opds.FindLink(links, opds.AuthDocumentRel); ok {
		a.authURL = link.Href
		if strings.HasPrefix(a.catalog.ContentType(), opds.AuthDocumentMediaType) {
			a.authDoc = a.catalog
			return stateValidateAuthDoc
		}
		return stateFetchAuthDoc
	}
	if link, ok := opds.FindLink(links, opds.ShelfRel); ok {
		a.authURL = link.Href
		return stateFetchAuthDoc
	}
	return a.fail(problemdetail.NoShelfLink())
}

// fetchAuthDoc retrieves the discovered document. A 401 response is normal
// here and carries the document in its body. Transport failure is retried
// exactly once before surfacing.
func (r *Registrar) fetchAuthDoc(ctx context.Context, a *attempt) state {
	resp, err := r.fetcher.Get(ctx, a.authURL)
	if err != nil {
		resp, err = r.fetcher.Get(ctx, a.authURL)
	}
	if err != nil {
		return a.fail(problemdetail.InvalidAuthDocument().
			WithDetailf("Could not retrieve authentication document at %s", a.authURL))
	}
	a.authDoc = resp
	return stateValidateAuthDoc
}

func (r *Registrar) validateAuthDoc(a *attempt) state {
	doc, pd := authdoc.Validate(a.authDoc.Body)
	if pd != nil {
		return a.fail(*pd)
	}
	a.doc = doc
	// The document's id is its canonical location; prefer it over however
	// the document was discovered.
	a.authURL = doc.ID
	return stateReconcileLibrary
}

// reconcileLibrary projects the validated document onto the library record
// under the store's per-key exclusivity. A library with no secret accepts
// the handshake as a first-time bind and mints one; a library with a
// secret requires the caller to present it before any field is touched.
func (r *Registrar) reconcileLibrary(ctx context.Context, a *attempt) state {
	now := r.now()
	meta, pd := r.projectMetadata(a)
	if pd != nil {
		return a.fail(*pd)
	}

	lib, created, err := r.store.Reconcile(ctx, a.opdsURL, func(existing *models.Library) (*models.Library, error) {
		if existing == nil {
			secret, err := secrets.Mint()
			if err != nil {
				return nil, err
			}
			lib := models.New(uuid.New(), a.opdsURL, now)
			lib.SharedSecret = secret
			lib.ApplyMetadata(meta, now)
			return lib, nil
		}
		if existing.HasSecret() && !secrets.Verify(existing.SharedSecret, a.providedSecret) {
			return nil, errSecretMismatch
		}
		if !existing.HasSecret() {
			secret, err := secrets.Mint()
			if err != nil {
				return nil, err
			}
			existing.SharedSecret = secret
		}
		existing.ApplyMetadata(meta, now)
		return existing, nil
	})
	if err != nil {
		if errors.Is(err, errSecretMismatch) {
			return a.fail(problemdetail.AuthenticationFailure().
				WithDetail("Provided shared secret is invalid"))
		}
		r.logger.Error("library reconcile failed", "opds_url", a.opdsURL, "error", err)
		return a.fail(problemdetail.InternalError())
	}

	status := 200
	if created {
		status = 201
	}
	a.result = &Result{Library: lib, Created: created, Status: status}
	return stateDone
}

// projectMetadata builds the overwrite set from the validated document.
// Contact emails are taken from the first mailto link under their
// relations. A document may omit a contact relation entirely (the stored
// value clears), but a relation it does advertise must carry at least one
// valid mailto link.
func (r *Registrar) projectMetadata(a *attempt) (models.Metadata, *problemdetail.ProblemDetail) {
	doc := a.doc
	meta := models.Metadata{
		AuthenticationURL: a.authURL,
		Name:              doc.Title,
		Description:       doc.ServiceDescription,
		WebURL:            doc.WebURL(),
		Logo:              doc.Logo(),
	}
	if links := doc.LinksFor(authdoc.RelHelp); len(links) > 0 {
		mails, pd := authdoc.LocateEmailAddresses(authdoc.RelHelp, links, "Help contact")
		if pd != nil {
			return models.Metadata{}, pd
		}
		meta.HelpEmail = mails[0]
	}
	if links := doc.LinksFor(authdoc.RelCopyright); len(links) > 0 {
		mails, pd := authdoc.LocateEmailAddresses(authdoc.RelCopyright, links, "Copyright designated agent")
		if pd != nil {
			return models.Metadata{}, pd
		}
		meta.ContactEmail = mails[0]
	}
	return meta, nil
}

func (r *Registrar) recordSuccess(ctx context.Context, a *attempt) {
	action := audit.EventLibraryUpdated
	if a.result.Created {
		action = audit.EventLibraryCreated
		if r.metrics != nil {
			r.metrics.IncrementRegistered()
		}
	} else if r.metrics != nil {
		r.metrics.IncrementUpdated()
	}

	_ = r.audit.Emit(ctx, audit.Event{
		Action:     action,
		LibraryID:  a.result.Library.ID,
		OPDSURL:    a.opdsURL,
		ClientIP:   requestcontext.ClientIP(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: r.now(),
	})
}

func (r *Registrar) recordFailure(ctx context.Context, a *attempt) {
	if r.metrics != nil {
		r.metrics.IncrementFailure(a.problem.Type)
	}
	r.logger.Info("registration failed",
		"opds_url", a.opdsURL, "problem", a.problem.Type, "detail", a.problem.Detail)

	_ = r.audit.Emit(ctx, audit.Event{
		Action:     audit.EventRegistrationFailed,
		OPDSURL:    a.opdsURL,
		Detail:     a.problem.Title,
		ClientIP:   requestcontext.ClientIP(ctx),
		RequestID:  requestcontext.RequestID(ctx),
		OccurredAt: r.now(),
	})
}
