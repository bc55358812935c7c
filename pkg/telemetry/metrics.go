package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the generation pipeline. A nil
// *Metrics is valid and records nothing, so callers can invoke the Record*
// methods unconditionally.
type Metrics struct {
	config MetricsConfig

	// Generation metrics
	jobsGenerated  prometheus.Counter
	jobsSkipped    prometheus.Counter
	viewsGenerated prometheus.Counter
	runDuration    prometheus.Histogram

	// Loader metrics
	includesResolved *prometheus.CounterVec
	lazyResolutions  prometheus.Counter

	// Dispatch metrics
	macroExpansions prometheus.Counter
	dispatchErrors  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		jobsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_generated_total",
			Help:      "Total number of job configurations generated.",
		}),
		jobsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_skipped_total",
			Help:      "Total number of jobs skipped because the cache saw no change.",
		}),
		viewsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "views_generated_total",
			Help:      "Total number of view configurations generated.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of generation runs.",
			Buckets:   buckets,
		}),
		includesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "includes_resolved_total",
			Help:      "Total number of inclusion directives resolved, by directive.",
		}, []string{"directive"}),
		lazyResolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lazy_resolutions_total",
			Help:      "Total number of deferred inclusions resolved with arguments.",
		}),
		macroExpansions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "macro_expansions_total",
			Help:      "Total number of macro expansions during dispatch.",
		}),
		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_errors_total",
			Help:      "Total number of dispatch errors, by error kind.",
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{
		m.jobsGenerated, m.jobsSkipped, m.viewsGenerated, m.runDuration,
		m.includesResolved, m.lazyResolutions, m.macroExpansions, m.dispatchErrors,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.config.Enabled
}

// RecordJobGenerated increments the generated-jobs counter.
func (m *Metrics) RecordJobGenerated() {
	if m.enabled() {
		m.jobsGenerated.Inc()
	}
}

// RecordJobSkipped increments the cache-skip counter.
func (m *Metrics) RecordJobSkipped() {
	if m.enabled() {
		m.jobsSkipped.Inc()
	}
}

// RecordViewGenerated increments the generated-views counter.
func (m *Metrics) RecordViewGenerated() {
	if m.enabled() {
		m.viewsGenerated.Inc()
	}
}

// RecordRunDuration observes the duration of one generation run.
func (m *Metrics) RecordRunDuration(d time.Duration) {
	if m.enabled() {
		m.runDuration.Observe(d.Seconds())
	}
}

// RecordIncludeResolved increments the include counter for a directive.
func (m *Metrics) RecordIncludeResolved(directive string) {
	if m.enabled() {
		m.includesResolved.WithLabelValues(directive).Inc()
	}
}

// RecordLazyResolution increments the deferred-resolution counter.
func (m *Metrics) RecordLazyResolution() {
	if m.enabled() {
		m.lazyResolutions.Inc()
	}
}

// RecordMacroExpansion increments the macro-expansion counter.
func (m *Metrics) RecordMacroExpansion() {
	if m.enabled() {
		m.macroExpansions.Inc()
	}
}

// RecordDispatchError increments the dispatch-error counter for a kind.
func (m *Metrics) RecordDispatchError(kind string) {
	if m.enabled() {
		m.dispatchErrors.WithLabelValues(kind).Inc()
	}
}

// Handler returns an HTTP handler serving the metrics registry, or nil
// when metrics are disabled.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return nil
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing the metrics endpoint. It blocks, so
// callers typically run it in a goroutine. Disabled metrics return
// immediately.
func (m *Metrics) Serve() error {
	if !m.enabled() || m.config.ListenAddress == "" {
		return nil
	}
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	return http.ListenAndServe(m.config.ListenAddress, mux)
}
