// Package metrics provides Prometheus metrics for the curio ranking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// digestSizeBuckets covers typical noise caps.
var digestSizeBuckets = []float64{0, 1, 2, 5, 10, 20, 50} //nolint:gochecknoglobals // histogram layout

// Manager manages all Prometheus metrics for the curio service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ranking
	papersRanked   prometheus.Counter
	rankingErrors  prometheus.Counter
	rankingLatency prometheus.Histogram

	// Feedback
	feedbackApplied   prometheus.Counter
	feedbackSkipped   prometheus.Counter
	feedbackDuplicate prometheus.Counter

	// Digest
	digestsGenerated prometheus.Counter
	digestSize       prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueue           prometheus.Counter
	queueDequeue           prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Artifacts
	artifactCacheHits         *prometheus.CounterVec
	artifactCacheMisses       *prometheus.CounterVec
	artifactGenerationLatency *prometheus.HistogramVec

	// Store
	storeLatency *prometheus.HistogramVec

	// Scheduler
	schedulerRuns *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
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
		namespace:        "curio",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.papersRanked = m.counter("papers_ranked_total", "Total number of papers scored and persisted")
	m.rankingErrors = m.counter("ranking_errors_total", "Total number of papers that failed to rank")
	m.rankingLatency = m.histogram("ranking_latency_milliseconds", "Latency of ranking a single paper in milliseconds", m.histogramBuckets)

	m.feedbackApplied = m.counter("feedback_applied_total", "Feedback events that moved an interest vector")
	m.feedbackSkipped = m.counter("feedback_skipped_total", "Feedback events recorded without a vector update")
	m.feedbackDuplicate = m.counter("feedback_duplicate_total", "Feedback events dropped as redeliveries")

	m.digestsGenerated = m.counter("digests_generated_total", "Total number of daily briefings generated")
	m.digestSize = m.histogram("digest_size", "Number of papers per generated briefing", digestSizeBuckets)

	m.queueSize = m.gauge("queue_size", "Current size of the feedback queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum feedback queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Total number of feedback events enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Total number of feedback events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueues")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time a feedback event spent queued in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Current number of feedback workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Feedback processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of feedback processing errors")

	m.artifactCacheHits = m.counterVec("artifact_cache_hits_total", "Artifact cache hits by kind", "kind")
	m.artifactCacheMisses = m.counterVec("artifact_cache_misses_total", "Artifact cache misses by kind", "kind")
	m.artifactGenerationLatency = m.histogramVec("artifact_generation_latency_milliseconds", "Artifact generation latency in milliseconds", "kind")

	m.storeLatency = m.histogramVec("store_operation_latency_milliseconds", "Store operation latency in milliseconds", "operation")

	m.schedulerRuns = m.counterVec("scheduler_runs_total", "Scheduler cycles by outcome", "status")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of running goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Average GC pause time in milliseconds", []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50})
}

// RecordPaperRanked increments the papers ranked counter.
func RecordPaperRanked() {
	globalManager.papersRanked.Inc()
}

// RecordRankingError increments the ranking error counter.
func RecordRankingError() {
	globalManager.rankingErrors.Inc()
}

// RecordRankingLatency records per-paper ranking latency in milliseconds.
func RecordRankingLatency(latencyMs float64) {
	globalManager.rankingLatency.Observe(latencyMs)
}

// RecordFeedbackApplied increments the applied feedback counter.
func RecordFeedbackApplied() {
	globalManager.feedbackApplied.Inc()
}

// RecordFeedbackSkipped increments the skipped feedback counter.
func RecordFeedbackSkipped() {
	globalManager.feedbackSkipped.Inc()
}

// RecordFeedbackDuplicate increments the duplicate feedback counter.
func RecordFeedbackDuplicate() {
	globalManager.feedbackDuplicate.Inc()
}

// RecordDigestGenerated counts a briefing and observes its size.
func RecordDigestGenerated(size int) {
	globalManager.digestsGenerated.Inc()
	globalManager.digestSize.Observe(float64(size))
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long an event waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordArtifactCacheHit increments the cache hit counter for kind.
func RecordArtifactCacheHit(kind string) {
	globalManager.artifactCacheHits.WithLabelValues(kind).Inc()
}

// RecordArtifactCacheMiss increments the cache miss counter for kind.
func RecordArtifactCacheMiss(kind string) {
	globalManager.artifactCacheMisses.WithLabelValues(kind).Inc()
}

// RecordArtifactGenerationLatency records generator latency for kind.
func RecordArtifactGenerationLatency(kind string, latencyMs float64) {
	globalManager.artifactGenerationLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordStoreLatency records the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordSchedulerRun counts a scheduler cycle with its outcome ("ok" or "error").
func RecordSchedulerRun(status string) {
	globalManager.schedulerRuns.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap memory in use.
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
