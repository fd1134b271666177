// Package metrics provides Prometheus metrics for the simulator.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the simulator.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Simulation (Monte Carlo driver) metrics.
	ralliesSimulated  prometheus.Counter
	simulationBatches prometheus.Counter
	simulationErrors  *prometheus.CounterVec
	simulationLatency prometheus.Histogram
	shardsActive      prometheus.Gauge

	// Perturbation generator metrics.
	datasetRowsGenerated prometheus.Counter
	generationLatency    prometheus.Histogram

	// Attribution engine metrics.
	attributionFits        *prometheus.CounterVec
	attributionFitLatency  *prometheus.HistogramVec
	attributionHoldoutAUC  prometheus.Histogram
	attributionFitFailures *prometheus.CounterVec

	// Model cache metrics.
	modelCacheHits      prometheus.Counter
	modelCacheMisses    prometheus.Counter
	modelCacheEvictions prometheus.Counter
	modelCacheSize      prometheus.Gauge

	// System Performance Metrics.
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bvsim",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.ralliesSimulated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rallies_simulated_total",
		Help:      "Total number of rallies simulated across all batches",
	})

	m.simulationBatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "simulation_batches_total",
		Help:      "Total number of completed simulation batches",
	})

	m.simulationErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "simulation_errors_total",
			Help:      "Total number of simulation batch failures by kind",
		},
		[]string{"kind"},
	)

	m.simulationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "simulation_batch_latency_milliseconds",
		Help:      "Latency of a full simulation batch in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.shardsActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "simulation_shards_active",
		Help:      "Number of Monte Carlo shards currently running",
	})

	m.datasetRowsGenerated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "perturbation_rows_generated_total",
		Help:      "Total number of perturbed dataset rows generated",
	})

	m.generationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "perturbation_generation_latency_milliseconds",
		Help:      "Latency of a full dataset generation run in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.attributionFits = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "attribution_fits_total",
			Help:      "Total number of attribution model fits by family",
		},
		[]string{"family"},
	)

	m.attributionFitLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "attribution_fit_latency_milliseconds",
			Help:      "Latency of an attribution model fit in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"family"},
	)

	m.attributionHoldoutAUC = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "attribution_holdout_auc",
		Help:      "Holdout AUC of fitted attribution models",
		Buckets:   []float64{0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1.0},
	})

	m.attributionFitFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "attribution_fit_failures_total",
			Help:      "Total number of attribution fit failures by kind",
		},
		[]string{"kind"},
	)

	m.modelCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_cache_hits_total",
		Help:      "Total number of model cache hits",
	})

	m.modelCacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_cache_misses_total",
		Help:      "Total number of model cache misses",
	})

	m.modelCacheEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_cache_evictions_total",
		Help:      "Total number of model cache evictions",
	})

	m.modelCacheSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_cache_size",
		Help:      "Current number of entries held in the model cache",
	})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordSimulationBatch records the number of rallies in a completed batch.
func RecordSimulationBatch(rallies int) {
	globalManager.ralliesSimulated.Add(float64(rallies))
	globalManager.simulationBatches.Inc()
}

// RecordSimulationError increments the simulation error counter for kind.
func RecordSimulationError(kind string) {
	globalManager.simulationErrors.WithLabelValues(kind).Inc()
}

// RecordSimulationLatency records the latency of a simulation batch in
// milliseconds.
func RecordSimulationLatency(latencyMs float64) {
	globalManager.simulationLatency.Observe(latencyMs)
}

// UpdateShardsActive sets the number of currently running shards.
func UpdateShardsActive(count int) {
	globalManager.shardsActive.Set(float64(count))
}

// RecordDatasetRowsGenerated adds n to the generated-rows counter.
func RecordDatasetRowsGenerated(n int) {
	globalManager.datasetRowsGenerated.Add(float64(n))
}

// RecordGenerationLatency records dataset generation latency in
// milliseconds.
func RecordGenerationLatency(latencyMs float64) {
	globalManager.generationLatency.Observe(latencyMs)
}

// RecordAttributionFit records a completed attribution fit for family
// ("gbt" or "logistic").
func RecordAttributionFit(family string) {
	globalManager.attributionFits.WithLabelValues(family).Inc()
}

// RecordAttributionFitLatency records fit latency in milliseconds for
// family.
func RecordAttributionFitLatency(family string, latencyMs float64) {
	globalManager.attributionFitLatency.WithLabelValues(family).Observe(latencyMs)
}

// RecordAttributionHoldoutAUC records the holdout AUC of a fitted model.
func RecordAttributionHoldoutAUC(auc float64) {
	globalManager.attributionHoldoutAUC.Observe(auc)
}

// RecordAttributionFitFailure increments the fit-failure counter for kind
// ("model_fit_failure" or "degenerate_outcome").
func RecordAttributionFitFailure(kind string) {
	globalManager.attributionFitFailures.WithLabelValues(kind).Inc()
}

// RecordModelCacheHit increments the cache hit counter.
func RecordModelCacheHit() { globalManager.modelCacheHits.Inc() }

// RecordModelCacheMiss increments the cache miss counter.
func RecordModelCacheMiss() { globalManager.modelCacheMisses.Inc() }

// RecordModelCacheEviction increments the cache eviction counter.
func RecordModelCacheEviction() { globalManager.modelCacheEvictions.Inc() }

// UpdateModelCacheSize sets the current cache size.
func UpdateModelCacheSize(n int) { globalManager.modelCacheSize.Set(float64(n)) }

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
