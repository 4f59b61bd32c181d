// internal/monitoring/metrics.go
package monitoring

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns the Prometheus metrics for one engine instance. Every
// manager carries its own registry, so tests and embedded engines can
// coexist in a process without duplicate-registration panics. A nil
// *Manager is valid and records nothing.
type Manager struct {
	registry *prometheus.Registry

	// Pipeline metrics
	extractionsTotal   *prometheus.CounterVec
	extractionDuration prometheus.Histogram
	recordsTotal       prometheus.Counter
	recordsDropped     *prometheus.CounterVec
	discoveriesTotal   prometheus.Counter
	discoveredNodes    prometheus.Histogram
	levelsScanned      prometheus.Counter
	patternsDetected   prometheus.Counter

	// Cache fast-path metrics
	fastpathHits   prometheus.Counter
	fastpathMisses prometheus.Counter

	// Intelligence metrics
	selectorsLearned   prometheus.Counter
	reliabilityUpdates prometheus.Counter

	// Sweep metrics
	sweepBatches  *prometheus.CounterVec
	sweepRecords  *prometheus.CounterVec
	sweepDuration prometheus.Histogram

	// Timeout metrics
	timeoutsTotal *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

const (
	namespace = "karyakarta"
	subsystem = "engine"
)

// NewManager creates a metrics manager with a fresh registry.
func NewManager() *Manager {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	mm := &Manager{registry: registry}

	mm.extractionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "extractions_total",
			Help:      "Total number of extraction runs by outcome",
		},
		[]string{"outcome"},
	)

	mm.extractionDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "extraction_duration_seconds",
			Help:      "Extraction run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		},
	)

	mm.recordsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_total",
			Help:      "Total number of records emitted to sinks",
		},
	)

	mm.recordsDropped = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_dropped_total",
			Help:      "Total number of candidate records dropped",
		},
		[]string{"reason"},
	)

	mm.discoveriesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "discoveries_total",
			Help:      "Total number of BFS discovery passes",
		},
	)

	mm.discoveredNodes = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "discovered_nodes",
			Help:      "Nodes recorded per discovery pass",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8), // 10 to ~160k
		},
	)

	mm.levelsScanned = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "levels_scanned_total",
			Help:      "Total number of BFS levels walked during extraction",
		},
	)

	mm.patternsDetected = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "patterns_detected_total",
			Help:      "Total number of qualifying sibling patterns",
		},
	)

	mm.fastpathHits = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fastpath_hits_total",
			Help:      "Extractions served from cached selectors",
		},
	)

	mm.fastpathMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fastpath_misses_total",
			Help:      "Extractions that fell back to full discovery",
		},
	)

	mm.selectorsLearned = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "selectors_learned_total",
			Help:      "Total number of selectors learned",
		},
	)

	mm.reliabilityUpdates = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "reliability_updates_total",
			Help:      "Total number of tool outcome recordings",
		},
	)

	mm.sweepBatches = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_batches_total",
			Help:      "Batches emitted per sweep category",
		},
		[]string{"category"},
	)

	mm.sweepRecords = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_records_total",
			Help:      "Records emitted per sweep category",
		},
		[]string{"category"},
	)

	mm.sweepDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sweep_duration_seconds",
			Help:      "Category sweep duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 15.0, 30.0, 60.0, 120.0},
		},
	)

	mm.timeoutsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "timeouts_total",
			Help:      "Soft timeouts by pipeline stage",
		},
		[]string{"stage"},
	)

	mm.httpRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests served",
		},
		[]string{"method", "path", "status_code"},
	)

	mm.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	return mm
}

// Registry exposes the manager's registry for custom collectors.
func (mm *Manager) Registry() *prometheus.Registry {
	if mm == nil {
		return nil
	}
	return mm.registry
}

// Pipeline metrics

func (mm *Manager) RecordExtraction(outcome string, records int, duration time.Duration) {
	if mm == nil {
		return
	}
	mm.extractionsTotal.WithLabelValues(outcome).Inc()
	mm.extractionDuration.Observe(duration.Seconds())
	mm.recordsTotal.Add(float64(records))
}

func (mm *Manager) RecordDiscovery(nodes int) {
	if mm == nil {
		return
	}
	mm.discoveriesTotal.Inc()
	mm.discoveredNodes.Observe(float64(nodes))
}

func (mm *Manager) RecordLevelScanned() {
	if mm == nil {
		return
	}
	mm.levelsScanned.Inc()
}

func (mm *Manager) RecordPatterns(count int) {
	if mm == nil {
		return
	}
	mm.patternsDetected.Add(float64(count))
}

func (mm *Manager) RecordDrop(reason string) {
	if mm == nil {
		return
	}
	mm.recordsDropped.WithLabelValues(reason).Inc()
}

// Cache fast-path metrics

func (mm *Manager) RecordFastPath(hit bool) {
	if mm == nil {
		return
	}
	if hit {
		mm.fastpathHits.Inc()
	} else {
		mm.fastpathMisses.Inc()
	}
}

// Intelligence metrics

func (mm *Manager) RecordSelectorsLearned(count int) {
	if mm == nil {
		return
	}
	mm.selectorsLearned.Add(float64(count))
}

func (mm *Manager) RecordReliabilityUpdate() {
	if mm == nil {
		return
	}
	mm.reliabilityUpdates.Inc()
}

// Sweep metrics

func (mm *Manager) RecordSweepBatch(category string, records int) {
	if mm == nil {
		return
	}
	mm.sweepBatches.WithLabelValues(category).Inc()
	mm.sweepRecords.WithLabelValues(category).Add(float64(records))
}

func (mm *Manager) RecordSweepDuration(duration time.Duration) {
	if mm == nil {
		return
	}
	mm.sweepDuration.Observe(duration.Seconds())
}

// Timeout metrics

func (mm *Manager) RecordTimeout(stage string) {
	if mm == nil {
		return
	}
	mm.timeoutsTotal.WithLabelValues(stage).Inc()
}

// HTTP metrics

func (mm *Manager) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if mm == nil {
		return
	}
	mm.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	mm.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// MetricsHandler returns the HTTP handler serving this manager's
// registry.
func (mm *Manager) MetricsHandler() http.Handler {
	if mm == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer serves the metrics endpoint until ctx is done.
func (mm *Manager) StartMetricsServer(ctx context.Context, address, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, mm.MetricsHandler())

	server := &http.Server{
		Addr:    address,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	return server.ListenAndServe()
}
