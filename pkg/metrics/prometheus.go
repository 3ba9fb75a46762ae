// Package metrics provides Prometheus metrics for the cutline threshold service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors of the service.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	solutionBuckets []float64
	registry        prometheus.Registerer

	// Solver metrics
	solvesTotal   *prometheus.CounterVec
	solveLatency  prometheus.Histogram
	solutions     prometheus.Histogram
	activeQueries prometheus.Gauge

	// Threshold metrics
	evaluationsTotal  prometheus.Counter
	noScenarioTotal   prometheus.Counter
	lastThreshold     prometheus.Gauge
	evaluationLatency prometheus.Histogram

	// Run history metrics
	runLookups *prometheus.CounterVec
	storedRuns prometheus.Gauge

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount      prometheus.Gauge
	workerErrors     prometheus.Counter
	workerLatency    prometheus.Histogram
	errorByComponent *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorByEndpoint     *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "cutline",
		subsystem:       "threshold",
		latencyBuckets:  []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		solutionBuckets: prometheus.LinearBuckets(1, 1, 10),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.solvesTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solves_total",
		Help:      "Solver invocations by terminal status",
	}, []string{"status"})

	m.solveLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solve_latency_milliseconds",
		Help:      "Wall-clock time of a single solver invocation",
		Buckets:   m.latencyBuckets,
	})

	m.solutions = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "improving_solutions",
		Help:      "Improving solutions found per solver invocation",
		Buckets:   m.solutionBuckets,
	})

	m.activeQueries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_queries",
		Help:      "Threshold queries currently being solved",
	})

	m.evaluationsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluations_total",
		Help:      "Field-wide threshold evaluations completed",
	})

	m.noScenarioTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "no_elimination_scenario_total",
		Help:      "Queries proven to have no elimination scenario",
	})

	m.lastThreshold = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_threshold_points",
		Help:      "Most recently computed qualification threshold",
	})

	m.evaluationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_latency_milliseconds",
		Help:      "Wall-clock time of a field-wide evaluation",
		Buckets:   m.latencyBuckets,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Queries waiting in the job queue",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum capacity of the job queue",
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueued_total",
		Help:      "Queries accepted by the job queue",
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeued_total",
		Help:      "Queries handed to workers",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Queries rejected by the job queue",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Workers in the solver pool",
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Queries that ended with an error",
	})

	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Time a worker spends on one query including model construction",
		Buckets:   m.latencyBuckets,
	})

	m.runLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "run_lookups_total",
		Help:      "Run history lookups by result",
	}, []string{"result"})

	m.storedRuns = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stored_runs",
		Help:      "Finished runs held in the history",
	})

	m.errorByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and error type",
	}, []string{"component", "error_type"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "HTTP errors by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})

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

// RecordSolve records one solver invocation with its terminal status.
func RecordSolve(status string, latencyMs float64, solutions int64) {
	globalManager.solvesTotal.WithLabelValues(status).Inc()
	globalManager.solveLatency.Observe(latencyMs)
	globalManager.solutions.Observe(float64(solutions))
}

// IncActiveQueries marks a query as started.
func IncActiveQueries() {
	globalManager.activeQueries.Inc()
}

// DecActiveQueries marks a query as finished.
func DecActiveQueries() {
	globalManager.activeQueries.Dec()
}

// RecordNoScenario counts a query proven to have no elimination scenario.
func RecordNoScenario() {
	globalManager.noScenarioTotal.Inc()
}

// RecordEvaluation records a completed field-wide evaluation and its threshold.
func RecordEvaluation(threshold int64, latencyMs float64) {
	globalManager.evaluationsTotal.Inc()
	globalManager.lastThreshold.Set(float64(threshold))
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordRunLookup counts a run history lookup.
func RecordRunLookup(found bool) {
	result := "missing"
	if found {
		result = "found"
	}
	globalManager.runLookups.WithLabelValues(result).Inc()
}

// UpdateStoredRuns sets the number of runs held in the history.
func UpdateStoredRuns(count int) {
	globalManager.storedRuns.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue counts an accepted job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a job handed to a worker.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected job.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of pool workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError counts a failed query.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerProcessingLatency records time spent on one query.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records the HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

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
