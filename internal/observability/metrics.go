package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// risk resolution service.
type Metrics struct {
	Resolutions          *prometheus.CounterVec // labels: source={primary,secondary,cache,synthetic}
	ResolutionDuration   prometheus.Histogram
	CoalescedResolutions prometheus.Counter
	AssessmentPublished  prometheus.Counter
	AssessmentErrors     prometheus.Counter

	// Provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider, outcome={success,timeout,unavailable,rate_limited,malformed}
	ProviderRetries  *prometheus.CounterVec   // labels: provider
	ProviderDuration *prometheus.HistogramVec // labels: provider

	// Spatial cache metrics.
	CacheLookups   *prometheus.CounterVec // labels: result={hit,miss,expired,corrupt}
	CacheEvictions prometheus.Counter
	CacheEntries   prometheus.Gauge

	// Location resolution metrics.
	LocationResolutions *prometheus.CounterVec // labels: step={last_known,fresh_fix,manual,default,failed}
	GeocodeRequests     *prometheus.CounterVec // labels: outcome={success,error,empty}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.Resolutions,
		m.ResolutionDuration,
		m.CoalescedResolutions,
		m.AssessmentPublished,
		m.AssessmentErrors,
		m.ProviderRequests,
		m.ProviderRetries,
		m.ProviderDuration,
		m.CacheLookups,
		m.CacheEvictions,
		m.CacheEntries,
		m.LocationResolutions,
		m.GeocodeRequests,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "resolutions_total",
			Help:      "Completed risk resolutions by result source.",
		}, []string{"source"}),
		ResolutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wildfire",
			Name:      "resolution_duration_seconds",
			Help:      "End-to-end duration of one risk resolution.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}),
		CoalescedResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "resolutions_coalesced_total",
			Help:      "Resolutions that joined an identical in-flight call instead of fanning out.",
		}),
		AssessmentPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "assessments_published_total",
			Help:      "Assessment events written to the sink topic.",
		}),
		AssessmentErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "assessment_errors_total",
			Help:      "Assessment publish failures (fire-and-forget, never fatal).",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "provider_requests_total",
			Help:      "Risk provider attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "provider_retries_total",
			Help:      "Retry attempts against a provider after a transient failure.",
		}, []string{"provider"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wildfire",
			Name:      "provider_request_duration_seconds",
			Help:      "Provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"provider"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "cache_lookups_total",
			Help:      "Spatial cache lookups by result.",
		}, []string{"result"}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "cache_evictions_total",
			Help:      "LRU evictions from the spatial cache.",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire",
			Name:      "cache_entries",
			Help:      "Current number of spatial cache entries.",
		}),
		LocationResolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "location_resolutions_total",
			Help:      "Coordinate resolutions by the fallback step that produced them.",
		}, []string{"step"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "geocode_requests_total",
			Help:      "Place-name lookups by outcome.",
		}, []string{"outcome"}),
	}
}
