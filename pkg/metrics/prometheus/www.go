// Package prometheus implements the metric interfaces of package metrics
// with client_golang collectors.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/wwwserver/pkg/metrics"
)

// wwwMetrics is the Prometheus implementation of metrics.WWWMetrics.
type wwwMetrics struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	tickDuration        *prometheus.HistogramVec
	bytesSent           prometheus.Counter
	connectionsAccepted prometheus.Counter
	connectionsRejected prometheus.Counter
	connectionsClosed   prometheus.Counter
}

// NewWWWMetrics registers the engine metrics with the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewWWWMetrics() metrics.WWWMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopWWWMetrics()
	}
	return NewWWWMetricsWith(metrics.GetRegistry())
}

// NewWWWMetricsWith registers the engine metrics with reg.
func NewWWWMetricsWith(reg prometheus.Registerer) metrics.WWWMetrics {
	return &wwwMetrics{
		requestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "wwwserver_requests_total",
				Help: "Total number of completed requests by method, status and handler",
			},
			[]string{"method", "status", "handler"},
		),
		requestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wwwserver_request_duration_milliseconds",
				Help: "Duration of requests from accept to disconnect in milliseconds",
				Buckets: []float64{
					1,     // 1ms
					10,    // 10ms
					100,   // 100ms
					1000,  // 1s
					2500,  // 2.5s, default drain delay included
					10000, // 10s
				},
			},
			[]string{"method"},
		),
		tickDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "wwwserver_tick_duration_microseconds",
				Help: "Duration of engine ticks in microseconds by starting state",
				Buckets: []float64{
					10,
					100,
					1000,
					10000,
					100000,
				},
			},
			[]string{"state"},
		),
		bytesSent: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "wwwserver_bytes_sent_total",
				Help: "Total response bytes written to clients",
			},
		),
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "wwwserver_connections_accepted_total",
				Help: "Total number of connections handed to the engine",
			},
		),
		connectionsRejected: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "wwwserver_connections_rejected_total",
				Help: "Total number of connections refused by admission control",
			},
		),
		connectionsClosed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "wwwserver_connections_closed_total",
				Help: "Total number of connections released by the engine",
			},
		),
	}
}

func (m *wwwMetrics) RecordRequest(method, status, handler string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, status, handler).Inc()
	m.requestDuration.WithLabelValues(method).Observe(float64(duration.Microseconds()) / 1000)
}

func (m *wwwMetrics) RecordTick(state string, duration time.Duration) {
	m.tickDuration.WithLabelValues(state).Observe(float64(duration.Microseconds()))
}

func (m *wwwMetrics) RecordBytesSent(bytes int64) {
	m.bytesSent.Add(float64(bytes))
}

func (m *wwwMetrics) RecordConnectionAccepted() {
	m.connectionsAccepted.Inc()
}

func (m *wwwMetrics) RecordConnectionRejected() {
	m.connectionsRejected.Inc()
}

func (m *wwwMetrics) RecordConnectionClosed() {
	m.connectionsClosed.Inc()
}
