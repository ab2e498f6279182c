// Package prometheus contains the Prometheus-backed implementations of
// the metrics interfaces.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/filegate/filegate/pkg/metrics"
)

// gatewayMetrics is the Prometheus implementation of metrics.GatewayMetrics.
type gatewayMetrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	rateLimited      *prometheus.CounterVec
	policyDenials    *prometheus.CounterVec
	bytesTransferred *prometheus.CounterVec
}

// NewGatewayMetrics creates a new Prometheus-backed GatewayMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewGatewayMetrics() metrics.GatewayMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopGatewayMetrics()
	}

	reg := metrics.GetRegistry()

	return &gatewayMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filegate_requests_total",
				Help: "Total number of requests by operation and status",
			},
			[]string{"operation", "status"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "filegate_request_duration_seconds",
				Help: "Duration of requests in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
				},
			},
			[]string{"operation"},
		),
		rateLimited: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filegate_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
			[]string{"operation"},
		),
		policyDenials: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filegate_policy_denials_total",
				Help: "Total number of requests refused by a policy rule",
			},
			[]string{"operation", "kind"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "filegate_bytes_transferred_total",
				Help: "Total payload bytes moved through the gateway",
			},
			[]string{"direction"}, // read or write
		),
	}
}

func (m *gatewayMetrics) RecordRequest(op, status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(op, status).Inc()
	m.requestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *gatewayMetrics) RecordRateLimited(op string) {
	m.rateLimited.WithLabelValues(op).Inc()
}

func (m *gatewayMetrics) RecordPolicyDenial(op, kind string) {
	m.policyDenials.WithLabelValues(op, kind).Inc()
}

func (m *gatewayMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}
