// Package observability holds the metric instruments and tracing spans
// shared across the request and delivery pipelines.
package observability

import (
	"strconv"

	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for Conduit, backed by any go-utils
// MetricFactory.
type Metrics struct {
	RequestsTotal   gu.Counter
	RequestDuration gu.Histogram
	IngestsTotal    gu.Counter
	DispatchesTotal gu.Counter
	DispatchLatency gu.Histogram
	QueueDepth      gu.Gauge
}

// NewMetrics creates Conduit metric instruments using the supplied
// factory. Pass metrics.NewMetricsCollector("conduit") for standalone usage.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		RequestsTotal:   factory.Counter("conduit_requests_total"),
		RequestDuration: factory.Histogram("conduit_request_duration_seconds"),
		IngestsTotal:    factory.Counter("conduit_ingests_total"),
		DispatchesTotal: factory.Counter("conduit_dispatches_total"),
		DispatchLatency: factory.Histogram("conduit_dispatch_latency_seconds"),
		QueueDepth:      factory.Gauge("conduit_queue_depth"),
	}
}

// ObserveRequest records one endpoint request with its response status
// and duration.
func (m *Metrics) ObserveRequest(callbackType string, status int, seconds float64) {
	m.RequestsTotal.WithLabels(map[string]string{
		"callback_type": callbackType,
		"status":        strconv.Itoa(status),
	}).Inc()
	m.RequestDuration.Observe(seconds)
}

// ObserveIngest records one inbound delivery with its acknowledgment
// status.
func (m *Metrics) ObserveIngest(status int) {
	m.IngestsTotal.WithLabels(map[string]string{
		"status": strconv.Itoa(status),
	}).Inc()
}

// ObserveDispatch records one outbound delivery attempt.
func (m *Metrics) ObserveDispatch(event string, status int, latencyMs int64) {
	m.DispatchesTotal.WithLabels(map[string]string{
		"event":  event,
		"status": strconv.Itoa(status),
	}).Inc()
	m.DispatchLatency.Observe(float64(latencyMs) / 1000)
}

// SetQueueDepth reports the number of pending deliveries.
func (m *Metrics) SetQueueDepth(n int64) {
	m.QueueDepth.Set(float64(n))
}
