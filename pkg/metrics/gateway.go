package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics holds all metrics for the sighting gateway.
type GatewayMetrics struct {
	// Submission metrics
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration *prometheus.HistogramVec

	// Platform delivery metrics
	PlatformRequestDuration *prometheus.HistogramVec
	PlatformRequestsTotal   *prometheus.CounterVec

	// Credential resolution metrics
	CredentialResolutionsTotal *prometheus.CounterVec
	SecretStoreRequestsTotal   *prometheus.CounterVec

	// API metrics
	APIRequestDuration *prometheus.HistogramVec
	APIRequestsTotal   *prometheus.CounterVec

	// WebSocket metrics
	WebSocketConnections   prometheus.Gauge
	WebSocketMessagesTotal *prometheus.CounterVec

	// Journal metrics
	JournalWritesTotal *prometheus.CounterVec
	JournalWriteErrors prometheus.Counter

	// Archive metrics
	ArchiveUploadsTotal *prometheus.CounterVec
}

// newGatewayMetrics creates and registers all gateway metrics.
func newGatewayMetrics(registry *prometheus.Registry) *GatewayMetrics {
	m := &GatewayMetrics{
		SubmissionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "gateway",
				Name:      "submissions_total",
				Help:      "Total number of sighting submissions by outcome.",
			},
			[]string{"outcome"},
		),

		SubmissionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sightgate",
				Subsystem: "gateway",
				Name:      "submission_duration_seconds",
				Help:      "End-to-end duration of sighting submissions in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"outcome"},
		),

		PlatformRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sightgate",
				Subsystem: "platform",
				Name:      "request_duration_seconds",
				Help:      "Intelligence platform request latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"status"},
		),

		PlatformRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "platform",
				Name:      "requests_total",
				Help:      "Total number of intelligence platform requests.",
			},
			[]string{"status"},
		),

		CredentialResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "credentials",
				Name:      "resolutions_total",
				Help:      "Total number of credential resolutions by role and result.",
			},
			[]string{"role", "result"},
		),

		SecretStoreRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "credentials",
				Name:      "store_requests_total",
				Help:      "Total number of secret store listing requests.",
			},
			[]string{"status"},
		),

		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sightgate",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP API request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP API requests.",
			},
			[]string{"method", "path", "status"},
		),

		WebSocketConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sightgate",
				Subsystem: "websocket",
				Name:      "connections_active",
				Help:      "Number of active WebSocket connections.",
			},
		),

		WebSocketMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "websocket",
				Name:      "messages_total",
				Help:      "Total number of WebSocket messages.",
			},
			[]string{"direction", "type"},
		),

		JournalWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "journal",
				Name:      "writes_total",
				Help:      "Total number of journal writes by driver.",
			},
			[]string{"driver"},
		),

		JournalWriteErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "journal",
				Name:      "write_errors_total",
				Help:      "Total number of failed journal writes.",
			},
		),

		ArchiveUploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sightgate",
				Subsystem: "archive",
				Name:      "uploads_total",
				Help:      "Total number of archived entity documents.",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.SubmissionsTotal,
		m.SubmissionDuration,
		m.PlatformRequestDuration,
		m.PlatformRequestsTotal,
		m.CredentialResolutionsTotal,
		m.SecretStoreRequestsTotal,
		m.APIRequestDuration,
		m.APIRequestsTotal,
		m.WebSocketConnections,
		m.WebSocketMessagesTotal,
		m.JournalWritesTotal,
		m.JournalWriteErrors,
		m.ArchiveUploadsTotal,
	)

	return m
}

// RecordSubmission records a completed sighting submission.
func (m *GatewayMetrics) RecordSubmission(outcome string, durationSeconds float64) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	m.SubmissionDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// RecordPlatformRequest records an intelligence platform request.
func (m *GatewayMetrics) RecordPlatformRequest(status string, durationSeconds float64) {
	m.PlatformRequestDuration.WithLabelValues(status).Observe(durationSeconds)
	m.PlatformRequestsTotal.WithLabelValues(status).Inc()
}

// RecordCredentialResolution records a per-role credential resolution result.
func (m *GatewayMetrics) RecordCredentialResolution(role, result string) {
	m.CredentialResolutionsTotal.WithLabelValues(role, result).Inc()
}

// RecordSecretStoreRequest records a secret store listing request.
func (m *GatewayMetrics) RecordSecretStoreRequest(status string) {
	m.SecretStoreRequestsTotal.WithLabelValues(status).Inc()
}

// RecordAPIRequest records an HTTP API request.
func (m *GatewayMetrics) RecordAPIRequest(method, path, status string, durationSeconds float64) {
	m.APIRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	m.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// SetWebSocketConnections sets the count of active WebSocket connections.
func (m *GatewayMetrics) SetWebSocketConnections(count float64) {
	m.WebSocketConnections.Set(count)
}

// RecordWebSocketMessage records a WebSocket message.
func (m *GatewayMetrics) RecordWebSocketMessage(direction, msgType string) {
	m.WebSocketMessagesTotal.WithLabelValues(direction, msgType).Inc()
}

// RecordJournalWrite records a journal write.
func (m *GatewayMetrics) RecordJournalWrite(driver string, err error) {
	m.JournalWritesTotal.WithLabelValues(driver).Inc()
	if err != nil {
		m.JournalWriteErrors.Inc()
	}
}

// RecordArchiveUpload records an archive upload attempt.
func (m *GatewayMetrics) RecordArchiveUpload(status string) {
	m.ArchiveUploadsTotal.WithLabelValues(status).Inc()
}
