package dataset

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the cache's Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "glint").
	Namespace string

	// Subsystem is the metrics subsystem (default: "dataset").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures metrics collection.
type MetricsOption func(*MetricsConfig)

// WithMetricsNamespace sets the metrics namespace.
func WithMetricsNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithMetricsRegistry sets the Prometheus registry.
func WithMetricsRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// WithMetricsConstLabels sets constant labels for all metrics.
func WithMetricsConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// metrics holds the cache's Prometheus collectors. A nil *metrics is a
// valid no-op collector, so the cache works without metrics enabled.
type metrics struct {
	fetches      *prometheus.CounterVec
	writes       *prometheus.CounterVec
	coalesced    prometheus.Counter
	cacheHits    prometheus.Counter
	fetchSeconds prometheus.Histogram
}

func newMetrics(opts []MetricsOption) *metrics {
	cfg := MetricsConfig{
		Namespace: "glint",
		Subsystem: "dataset",
		Registry:  prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registry)

	return &metrics{
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "fetches_total",
			Help:        "Dataset fetches issued to the external source, by outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"outcome"}),
		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "write_through_total",
			Help:        "Write-through operations against the source of record, by outcome.",
			ConstLabels: cfg.ConstLabels,
		}, []string{"outcome"}),
		coalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "preload_coalesced_total",
			Help:        "Preload calls that joined an already in-flight fetch.",
			ConstLabels: cfg.ConstLabels,
		}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "preload_cache_hits_total",
			Help:        "Preload calls satisfied by a fresh cached blob.",
			ConstLabels: cfg.ConstLabels,
		}),
		fetchSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "fetch_duration_seconds",
			Help:        "Duration of external fetches.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

func (m *metrics) recordFetch(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
	m.fetchSeconds.Observe(seconds)
}

func (m *metrics) recordWrite(outcome string) {
	if m == nil {
		return
	}
	m.writes.WithLabelValues(outcome).Inc()
}

func (m *metrics) recordCoalesced() {
	if m == nil {
		return
	}
	m.coalesced.Inc()
}

func (m *metrics) recordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}
