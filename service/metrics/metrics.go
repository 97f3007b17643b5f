// Package metrics defines the Prometheus collectors for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Backend API metrics
	backendAPICallsTotal   *prometheus.CounterVec
	backendAPICallDuration *prometheus.HistogramVec

	// Resolution metrics
	resolutionsTotal *prometheus.CounterVec

	// Send flow metrics
	sendsTotal   *prometheus.CounterVec
	sendDuration *prometheus.HistogramVec

	// Claim metrics
	claimsTotal *prometheus.CounterVec

	// Ledger metrics
	ledgerSize        *prometheus.GaugeVec
	ledgerWritesTotal *prometheus.CounterVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		backendAPICallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_api_calls_total",
				Help: "Total number of backend API calls by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),
		backendAPICallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_api_call_duration_seconds",
				Help:    "Duration of backend API calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint"},
		),
		resolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recipient_resolutions_total",
				Help: "Total number of recipient resolutions by resulting flow",
			},
			[]string{"flow"},
		),
		sendsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sends_total",
				Help: "Total number of send attempts by flow and outcome",
			},
			[]string{"flow", "status"},
		),
		sendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "send_duration_seconds",
				Help:    "Duration of complete send flows in seconds",
				Buckets: []float64{0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"flow"},
		),
		claimsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "claims_total",
				Help: "Total number of escrow claim attempts by outcome",
			},
			[]string{"status"},
		),
		ledgerSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ledger_entries",
				Help: "Current number of entries in the transaction history ledger",
			},
			[]string{"store"},
		),
		ledgerWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_writes_total",
				Help: "Total number of ledger write operations by kind and status",
			},
			[]string{"kind", "status"},
		),
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of payment events published to NATS",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"subject"},
		),
	}
}

// RecordAPICall records a backend API call with its status and duration.
func (m *Metrics) RecordAPICall(endpoint, status string, durationSeconds float64) {
	m.backendAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	m.backendAPICallDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordResolution records a recipient resolution outcome.
func (m *Metrics) RecordResolution(flow string) {
	m.resolutionsTotal.WithLabelValues(flow).Inc()
}

// RecordSend records a completed or failed send attempt.
func (m *Metrics) RecordSend(flow, status string, durationSeconds float64) {
	m.sendsTotal.WithLabelValues(flow, status).Inc()
	m.sendDuration.WithLabelValues(flow).Observe(durationSeconds)
}

// RecordClaim records an escrow claim attempt.
func (m *Metrics) RecordClaim(status string) {
	m.claimsTotal.WithLabelValues(status).Inc()
}

// SetLedgerSize records the current ledger entry count.
func (m *Metrics) SetLedgerSize(store string, n int) {
	m.ledgerSize.WithLabelValues(store).Set(float64(n))
}

// RecordLedgerWrite records a ledger mutation.
func (m *Metrics) RecordLedgerWrite(kind, status string) {
	m.ledgerWritesTotal.WithLabelValues(kind, status).Inc()
}

// RecordNATSPublish records a NATS publish attempt.
func (m *Metrics) RecordNATSPublish(subject, status string, durationSeconds float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(durationSeconds)
}
