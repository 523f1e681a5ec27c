// Package discovery ranks registered libraries for end users: by proximity
// to a resolved client location, or by a free-text query over names and
// aliases. Unresolvable locations and unmatched queries degrade to empty
// results; discovery has no error-shaped outcomes for end users.
package discovery

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"libregistry/internal/discovery/geoip"
	"libregistry/internal/geo"
	"libregistry/internal/library/metrics"
	"libregistry/internal/library/models"
	"libregistry/internal/library/store"
)

// DefaultRadiusKm bounds proximity results to libraries plausibly serving
// the requester.
const DefaultRadiusKm = 150.0

// Result pairs a library with its distance from the requester. Distance is
// nil when the requester's location is unknown.
type Result struct {
	Library  *models.Library
	Distance *float64
}

// FormattedDistance renders the distance for feed display, or "".
func (r Result) FormattedDistance() string {
	if r.Distance == nil {
		return ""
	}
	return geo.FormatKm(*r.Distance)
}

// Service answers nearby and search queries over the registered libraries.
type Service struct {
	store    store.Store
	resolver geoip.Resolver
	radiusKm float64
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRadius overrides the proximity radius in kilometers.
func WithRadius(km float64) Option {
	return func(s *Service) { s.radiusKm = km }
}

// WithMetrics records query durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the query logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a discovery service.
func New(st store.Store, resolver geoip.Resolver, opts ...Option) *Service {
	s := &Service{
		store:    st,
		resolver: resolver,
		radiusKm: DefaultRadiusKm,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Nearby returns registered libraries within the service radius of the
// requester, nearest first. An unresolvable address yields an empty list.
func (s *Service) Nearby(ctx context.Context, clientIP string) ([]Result, error) {
	start := time.Now()
	defer s.observe(start)

	location, libraries, err := s.resolveAndLoad(ctx, clientIP)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return []Result{}, nil
	}

	var results []Result
	for _, lib := range libraries {
		if lib.Location == nil {
			continue
		}
		d := geo.Distance(location.Point, *lib.Location)
		if d > s.radiusKm {
			continue
		}
		distance := d
		results = append(results, Result{Library: lib, Distance: &distance})
	}
	sortByDistance(results)
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// Search returns libraries whose name, place name, or aliases match the
// query. Matches are ordered by distance from the requester when their
// location resolves, by name otherwise.
func (s *Service) Search(ctx context.Context, query, clientIP string) ([]Result, error) {
	start := time.Now()
	defer s.observe(start)

	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}, nil
	}

	location, libraries, err := s.resolveAndLoad(ctx, clientIP)
	if err != nil {
		return nil, err
	}

	var results []Result
	for _, lib := range libraries {
		if !matches(lib, query) {
			continue
		}
		r := Result{Library: lib}
		if location != nil && lib.Location != nil {
			d := geo.Distance(location.Point, *lib.Location)
			r.Distance = &d
		}
		results = append(results, r)
	}

	if location != nil {
		sortByDistance(results)
	} else {
		sort.SliceStable(results, func(i, j int) bool {
			return strings.ToLower(results[i].Library.Name) < strings.ToLower(results[j].Library.Name)
		})
	}
	if results == nil {
		results = []Result{}
	}
	return results, nil
}

// resolveAndLoad runs the IP lookup and the library scan concurrently;
// neither depends on the other and both may involve I/O.
func (s *Service) resolveAndLoad(ctx context.Context, clientIP string) (*geoip.Location, []*models.Library, error) {
	var (
		location  *geoip.Location
		libraries []*models.Library
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loc, err := s.resolver.Resolve(gctx, clientIP)
		if err != nil {
			// Best-effort: a failed lookup means no location, not a failed query.
			s.logger.Warn("geoip resolution failed", "ip", clientIP, "error", err)
			return nil
		}
		location = loc
		return nil
	})
	g.Go(func() error {
		libs, err := s.store.List(gctx)
		if err != nil {
			return err
		}
		libraries = libs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return location, libraries, nil
}

func matches(lib *models.Library, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(lib.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(lib.PlaceName), q) {
		return true
	}
	for _, alias := range lib.Aliases {
		if strings.Contains(strings.ToLower(alias), q) {
			return true
		}
	}
	return false
}

// sortByDistance orders nearest first, breaking ties by case-insensitive
// name. Entries without a distance sort last, by name.
func sortByDistance(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		di, dj := results[i].Distance, results[j].Distance
		switch {
		case di == nil && dj == nil:
		case di == nil:
			return false
		case dj == nil:
			return true
		case *di != *dj:
			return *di < *dj
		}
		return strings.ToLower(results[i].Library.Name) < strings.ToLower(results[j].Library.Name)
	})
}

func (s *Service) observe(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveSearch(start)
	}
}
