package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors
type Metrics struct {
	// HTTP requests by method, route and status code
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP latency by method and route
	HTTPRequestDuration *prometheus.HistogramVec

	// Tickets written, by source (single, bulk)
	TicketsIssuedTotal *prometheus.CounterVec

	// Redemption outcomes by status and source
	RedemptionsTotal *prometheus.CounterVec

	// Generated codes that were already taken
	CodeCollisionsTotal prometheus.Counter

	// Bulk rows that were not created
	BulkRowFailuresTotal prometheus.Counter

	// Activity entries consumed by the worker, by result (stored, dlq)
	ActivityEntriesTotal *prometheus.CounterVec
}

// New registers collectors on the default registerer
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors on reg
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		TicketsIssuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tickets_issued_total",
				Help: "Total number of tickets created",
			},
			[]string{"source"},
		),
		RedemptionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ticket_redemptions_total",
				Help: "Redemption outcomes",
			},
			[]string{"status", "source"},
		),
		CodeCollisionsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ticket_code_collisions_total",
				Help: "Generated ticket codes rejected as already taken",
			},
		),
		BulkRowFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "bulk_issuance_row_failures_total",
				Help: "Bulk issuance rows that were not created",
			},
		),
		ActivityEntriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_entries_total",
				Help: "Redemption events handled by the activity worker",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.TicketsIssuedTotal,
		m.RedemptionsTotal,
		m.CodeCollisionsTotal,
		m.BulkRowFailuresTotal,
		m.ActivityEntriesTotal,
	)

	return m
}

// ObserveHTTPRequest records one served request
func (m *Metrics) ObserveHTTPRequest(method, path, status string, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// TicketsIssued counts n created tickets
func (m *Metrics) TicketsIssued(source string, n int) {
	if n <= 0 {
		return
	}
	m.TicketsIssuedTotal.WithLabelValues(source).Add(float64(n))
}

// Redemption counts one redemption outcome
func (m *Metrics) Redemption(status, source string) {
	m.RedemptionsTotal.WithLabelValues(status, source).Inc()
}

// CodeCollision counts one rejected code
func (m *Metrics) CodeCollision() {
	m.CodeCollisionsTotal.Inc()
}

// BulkRowsFailed counts n failed bulk rows
func (m *Metrics) BulkRowsFailed(n int) {
	if n <= 0 {
		return
	}
	m.BulkRowFailuresTotal.Add(float64(n))
}

// ActivityEntry counts one worker outcome
func (m *Metrics) ActivityEntry(result string) {
	m.ActivityEntriesTotal.WithLabelValues(result).Inc()
}
