package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the library registry.
// Tracks registration outcomes and critical path durations.
type Metrics struct {
	LibrariesRegistered  prometheus.Counter
	LibrariesUpdated     prometheus.Counter
	RegistrationFailures *prometheus.CounterVec
	RegistrationDuration prometheus.Histogram
	SearchDuration       prometheus.Histogram
	GeoIPCacheHits       prometheus.Counter
	GeoIPCacheMisses     prometheus.Counter
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		LibrariesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libregistry_libraries_registered_total",
			Help: "Total number of libraries created via registration",
		}),
		LibrariesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libregistry_libraries_updated_total",
			Help: "Total number of re-registrations that updated an existing library",
		}),
		RegistrationFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "libregistry_registration_failures_total",
			Help: "Total number of failed registrations by problem type",
		}, []string{"problem"}),
		RegistrationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "libregistry_registration_duration_seconds",
			Help:    "Duration of registration handshakes (includes remote fetches)",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "libregistry_search_duration_seconds",
			Help:    "Duration of nearby/search discovery queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		GeoIPCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libregistry_geoip_cache_hits_total",
			Help: "Total number of client IP locations served from cache",
		}),
		GeoIPCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "libregistry_geoip_cache_misses_total",
			Help: "Total number of client IP lookups that missed the cache",
		}),
	}
}

// IncrementRegistered records a successful first-time registration.
func (m *Metrics) IncrementRegistered() {
	m.LibrariesRegistered.Inc()
}

// IncrementUpdated records a successful re-registration.
func (m *Metrics) IncrementUpdated() {
	m.LibrariesUpdated.Inc()
}

// IncrementFailure records a failed registration by problem type.
func (m *Metrics) IncrementFailure(problemType string) {
	m.RegistrationFailures.WithLabelValues(problemType).Inc()
}

// ObserveRegistration records the duration of a registration handshake.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegistration(start time.Time) {
	m.RegistrationDuration.Observe(time.Since(start).Seconds())
}

// ObserveSearch records the duration of a discovery query.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSearch(start time.Time) {
	m.SearchDuration.Observe(time.Since(start).Seconds())
}
