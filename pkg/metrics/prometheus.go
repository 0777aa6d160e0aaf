// Package metrics provides Prometheus metrics for the credit scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scoring service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	registry         prometheus.Registerer

	// Scoring metrics
	predictions       prometheus.Counter
	predictionLatency prometheus.Histogram
	explanations      prometheus.Counter
	explainLatency    prometheus.Histogram

	// Feedback metrics
	feedbackReceived  prometheus.Counter
	feedbackDuplicate prometheus.Counter
	feedbackPending   prometheus.Gauge

	// Training metrics
	retrains           prometheus.Counter
	retrainFailures    prometheus.Counter
	retrainDuration    prometheus.Histogram
	validationFailures *prometheus.CounterVec
	modelAccuracy      prometheus.Gauge
	modelSamplesUsed   prometheus.Gauge

	// Artifact metrics
	artifactCommits  prometheus.Counter
	artifactIOErrors prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System performance metrics
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

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "crisk",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
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

	m.predictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictions_total",
		Help:      "Total number of predictions served",
	})

	m.predictionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_latency_milliseconds",
		Help:      "Histogram of prediction latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.explanations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "explanations_total",
		Help:      "Total number of explanations served",
	})

	m.explainLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "explanation_latency_milliseconds",
		Help:      "Histogram of explanation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.feedbackReceived = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_received_total",
		Help:      "Total number of feedback records accepted",
	})

	m.feedbackDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_duplicate_total",
		Help:      "Total number of duplicate feedback submissions rejected",
	})

	m.feedbackPending = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "feedback_pending",
		Help:      "Feedback records accumulated since the last retrain",
	})

	m.retrains = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "retrains_total",
		Help:      "Total number of completed training runs",
	})

	m.retrainFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "retrain_failures_total",
		Help:      "Total number of training runs that failed after validation",
	})

	m.retrainDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "retrain_duration_milliseconds",
		Help:      "Histogram of training run duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.validationFailures = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "validation_failures_total",
			Help:      "Total number of rejected retraining batches by failure kind",
		},
		[]string{"kind"},
	)

	m.modelAccuracy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_accuracy",
		Help:      "Accuracy reported by the most recent training run",
	})

	m.modelSamplesUsed = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "model_samples_used",
		Help:      "Samples used by the most recent training run",
	})

	m.artifactCommits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "artifact_commits_total",
		Help:      "Total number of committed artifact versions",
	})

	m.artifactIOErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "artifact_io_errors_total",
		Help:      "Total number of artifact store failures",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

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

// GetRegistry returns the registry backing the global manager, for exposure
// through promhttp.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RecordPrediction increments the predictions counter.
func RecordPrediction() {
	globalManager.predictions.Inc()
}

// RecordPredictionLatency records prediction latency in milliseconds.
func RecordPredictionLatency(latencyMs float64) {
	globalManager.predictionLatency.Observe(latencyMs)
}

// RecordExplanation increments the explanations counter.
func RecordExplanation() {
	globalManager.explanations.Inc()
}

// RecordExplanationLatency records explanation latency in milliseconds.
func RecordExplanationLatency(latencyMs float64) {
	globalManager.explainLatency.Observe(latencyMs)
}

// RecordFeedbackReceived increments the accepted feedback counter.
func RecordFeedbackReceived() {
	globalManager.feedbackReceived.Inc()
}

// RecordFeedbackDuplicate increments the duplicate feedback counter.
func RecordFeedbackDuplicate() {
	globalManager.feedbackDuplicate.Inc()
}

// UpdateFeedbackPending sets the accumulated feedback gauge.
func UpdateFeedbackPending(count int) {
	globalManager.feedbackPending.Set(float64(count))
}

// RecordRetrain increments the completed training runs counter.
func RecordRetrain() {
	globalManager.retrains.Inc()
}

// RecordRetrainFailure increments the failed training runs counter.
func RecordRetrainFailure() {
	globalManager.retrainFailures.Inc()
}

// RecordRetrainDuration records training run duration in milliseconds.
func RecordRetrainDuration(durationMs float64) {
	globalManager.retrainDuration.Observe(durationMs)
}

// RecordValidationFailure increments the rejected batch counter for a kind.
func RecordValidationFailure(kind string) {
	globalManager.validationFailures.WithLabelValues(kind).Inc()
}

// UpdateModelAccuracy sets the model accuracy gauge.
func UpdateModelAccuracy(accuracy float64) {
	globalManager.modelAccuracy.Set(accuracy)
}

// UpdateModelSamplesUsed sets the samples used gauge.
func UpdateModelSamplesUsed(count int) {
	globalManager.modelSamplesUsed.Set(float64(count))
}

// RecordArtifactCommit increments the committed versions counter.
func RecordArtifactCommit() {
	globalManager.artifactCommits.Inc()
}

// RecordArtifactIOError increments the artifact failure counter.
func RecordArtifactIOError() {
	globalManager.artifactIOErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
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
