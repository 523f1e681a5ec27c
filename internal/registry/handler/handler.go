// Package handler exposes the registry over HTTP: the registration
// endpoint, the discovery feeds, and the admin surface.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"libregistry/internal/discovery"
	"libregistry/internal/feed"
	"libregistry/internal/jwtauth"
	"libregistry/internal/library/models"
	"libregistry/internal/platform/middleware"
	"libregistry/internal/registration/registrar"
	"libregistry/pkg/problemdetail"
	"libregistry/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/registry-mocks.go -package=mocks

// Registrar runs registration handshakes.
type Registrar interface {
	Register(ctx context.Context, opdsURL, providedSecret string) (*registrar.Result, *problemdetail.ProblemDetail)
	UpdateEndpoints(ctx context.Context, opdsURL, providedSecret, newAuthURL, newOPDSURL string) (*models.Library, *problemdetail.ProblemDetail)
}

// Discovery answers nearby and search queries.
type Discovery interface {
	Nearby(ctx context.Context, clientIP string) ([]discovery.Result, error)
	Search(ctx context.Context, query, clientIP string) ([]discovery.Result, error)
}

// LibraryLister exposes the full register to admins.
type LibraryLister interface {
	List(ctx context.Context) ([]*models.Library, error)
}

// AdminAuth exchanges the operator token for a JWT and validates bearers.
type AdminAuth interface {
	Exchange(adminToken string) (string, error)
	Validate(tokenString string) (*jwtauth.Claims, error)
}

// Handler wires the registry endpoints onto a chi router.
type Handler struct {
	registrar Registrar
	discovery Discovery
	libraries LibraryLister
	auth      AdminAuth
	feeds     *feed.Builder
	logger    *slog.Logger
}

// New creates a Handler.
func New(
	reg Registrar,
	disc Discovery,
	libraries LibraryLister,
	auth AdminAuth,
	feeds *feed.Builder,
	logger *slog.Logger) *Handler {
	return &Handler{
		registrar: reg,
		discovery: disc,
		libraries: libraries,
		auth:      auth,
		feeds:     feeds,
		logger:    logger,
	}
}

// Register registers the registry routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(h.logger))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.ClientInfo)
	router.Use(middleware.Logger(h.logger))

	router.Post("/register", h.handleRegister)
	router.Post("/endpoints", h.handleUpdateEndpoints)
	router.Get("/nearby", h.handleNearby)
	router.Get("/search", h.handleSearch)

	router.Post("/admin/token", h.handleAdminToken)
	router.Group(func(admin chi.Router) {
		admin.Use(h.requireAdmin)
		admin.Get("/admin/libraries", h.handleListLibraries)
	})

	r.Mount("/", router)
}

// registrationResponse is the JSON body returned to a registrant. The
// shared secret appears here and nowhere else.
type registrationResponse struct {
	ID                string `json:"id"`
	OPDSURL           string `json:"opds_url"`
	AuthenticationURL string `json:"authentication_url,omitempty"`
	Name              string `json:"name,omitempty"`
	Description       string `json:"description,omitempty"`
	WebURL            string `json:"web_url,omitempty"`
	SharedSecret      string `json:"shared_secret"`
	Stage             string `json:"stage"`
}

// registerRequest accepts the same fields through a form body or JSON.
type registerRequest struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
}

func decodeRegisterRequest(r *http.Request) (registerRequest, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return registerRequest{}, err
		}
		return req, nil
	}
	if err := r.ParseForm(); err != nil {
		return registerRequest{}, err
	}
	return registerRequest{
		URL:    r.PostFormValue("url"),
		Secret: r.PostFormValue("secret"),
	}, nil
}

// handleRegister runs the handshake for a candidate catalog URL. The body
// carries the catalog URL and, for re-registration, the current secret.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeRegisterRequest(r)
	if err != nil {
		writeProblem(w, problemdetail.NoOPDSURL().WithDetail("Request body could not be parsed."))
		return
	}

	result, pd := h.registrar.Register(ctx, strings.TrimSpace(req.URL), req.Secret)
	if pd != nil {
		writeProblem(w, *pd)
		return
	}

	lib := result.Library
	writeJSON(w, result.Status, registrationResponse{
		ID:                lib.ID.String(),
		OPDSURL:           lib.OPDSURL,
		AuthenticationURL: lib.AuthenticationURL,
		Name:              lib.Name,
		Description:       lib.Description,
		WebURL:            lib.WebURL,
		SharedSecret:      lib.SharedSecret,
		Stage:             string(lib.Stage),
	})
}

// handleUpdateEndpoints moves a registered library to a new authentication
// or catalog URL. The current shared secret gates every change.
func (h *Handler) handleUpdateEndpoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		writeProblem(w, problemdetail.NoOPDSURL().WithDetail("Request body could not be parsed as a form."))
		return
	}

	lib, pd := h.registrar.UpdateEndpoints(ctx,
		strings.TrimSpace(r.PostFormValue("url")),
		r.PostFormValue("secret"),
		strings.TrimSpace(r.PostFormValue("authentication_url")),
		strings.TrimSpace(r.PostFormValue("opds_url")),
	)
	if pd != nil {
		writeProblem(w, *pd)
		return
	}

	writeJSON(w, http.StatusOK, lib)
}

// handleNearby serves an OPDS navigation feed of libraries near the client.
func (h *Handler) handleNearby(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	results, err := h.discovery.Nearby(ctx, requestcontext.ClientIP(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "nearby query failed", "error", err)
		writeProblem(w, problemdetail.InternalError())
		return
	}

	h.writeFeed(w, r, "Libraries near you", results, feed.CacheControlNearby)
}

// handleSearch serves the OpenSearch description when called without a
// query, and a feed of matches otherwise.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		body, err := h.feeds.OpenSearch()
		if err != nil {
			writeProblem(w, problemdetail.InternalError())
			return
		}
		w.Header().Set("Content-Type", feed.OpenSearchType)
		w.Header().Set("Cache-Control", feed.CacheControlSearch)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	results, err := h.discovery.Search(ctx, query, requestcontext.ClientIP(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "search query failed", "query", query, "error", err)
		writeProblem(w, problemdetail.InternalError())
		return
	}

	h.writeFeed(w, r, "Search results", results, feed.CacheControlNearby)
}

func (h *Handler) writeFeed(w http.ResponseWriter, r *http.Request, title string, results []discovery.Result, cacheControl string) {
	now := requestcontext.Now(r.Context())
	if now.IsZero() {
		now = time.Now().UTC()
	}

	f := h.feeds.Navigation(title, requestURL(r), results, now)
	body, err := f.Render()
	if err != nil {
		writeProblem(w, problemdetail.InternalError())
		return
	}
	w.Header().Set("Content-Type", feed.NavigationFeedType)
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleAdminToken exchanges the operator-held admin token for a JWT.
func (h *Handler) handleAdminToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, problemdetail.AuthenticationFailure().WithDetail("Request body could not be parsed."))
		return
	}

	signed, err := h.auth.Exchange(req.Token)
	if err != nil {
		writeProblem(w, problemdetail.AuthenticationFailure())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": signed, "token_type": "Bearer"})
}

func (h *Handler) handleListLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := h.libraries.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "library listing failed", "error", err)
		writeProblem(w, problemdetail.InternalError())
		return
	}
	writeJSON(w, http.StatusOK, libs)
}

// requireAdmin guards admin routes behind a valid bearer token.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeProblem(w, problemdetail.AuthenticationFailure())
			return
		}
		if _, err := h.auth.Validate(token); err != nil {
			pd := problemdetail.AuthenticationFailure()
			if errors.Is(err, jwtauth.ErrTokenExpired) {
				pd = pd.WithDetail("Token has expired.")
			}
			writeProblem(w, pd)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeProblem(w http.ResponseWriter, pd problemdetail.ProblemDetail) {
	problemdetail.Write(w, pd)
}
