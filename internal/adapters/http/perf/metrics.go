package perf

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fitadmin"

// Metrics holds the prometheus collectors for the service on a private registry.
// All methods are safe on a nil receiver so callers can run without metrics.
type Metrics struct {
	registry         *prometheus.Registry
	requestDuration  *prometheus.HistogramVec
	queryDuration    *prometheus.HistogramVec
	paymentsRecorded *prometheus.CounterVec
	paymentAmount    *prometheus.CounterVec
	membersByStatus  *prometheus.GaugeVec
	statusRefreshes  *prometheus.CounterVec
	reportsSent      *prometheus.CounterVec
	outboxEntries    *prometheus.GaugeVec
}

// NewMetrics registers all collectors, plus the Go runtime and process collectors.
// POST: Returns Metrics whose Handler serves every registered series
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database call latency by statement label.",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, 1},
		}, []string{"op"}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Payments recorded by payment type.",
		}, []string{"payment_type"}),
		paymentAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_total",
			Help:      "Sum of recorded payment amounts by payment type.",
		}, []string{"payment_type"}),
		membersByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members",
			Help:      "Members by derived membership status at the last refresh.",
		}, []string{"status"}),
		statusRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_refresh_runs_total",
			Help:      "Status refresh runs by result.",
		}, []string{"result"}),
		reportsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fee_reports_sent_total",
			Help:      "Fee summary report emails by result.",
		}, []string{"result"}),
		outboxEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_entries",
			Help:      "Queued report deliveries by status after the last outbox pass.",
		}, []string{"status"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.queryDuration,
		m.paymentsRecorded,
		m.paymentAmount,
		m.membersByStatus,
		m.statusRefreshes,
		m.reportsSent,
		m.outboxEntries,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveQuery records one database call.
func (m *Metrics) ObserveQuery(op string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(op).Observe(d.Seconds())
}

// PaymentRecorded counts a new payment and adds its amount.
func (m *Metrics) PaymentRecorded(paymentType string, amount float64) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(paymentType).Inc()
	m.paymentAmount.WithLabelValues(paymentType).Add(amount)
}

// SetStatusCounts replaces the members-by-status gauge.
func (m *Metrics) SetStatusCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.membersByStatus.Reset()
	for status, n := range counts {
		m.membersByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// SetOutboxCounts replaces the outbox-entries-by-status gauge.
func (m *Metrics) SetOutboxCounts(counts map[string]int) {
	if m == nil {
		return
	}
	m.outboxEntries.Reset()
	for status, n := range counts {
		m.outboxEntries.WithLabelValues(status).Set(float64(n))
	}
}

// StatusRefreshed counts one refresh run.
func (m *Metrics) StatusRefreshed(err error) {
	if m == nil {
		return
	}
	m.statusRefreshes.WithLabelValues(result(err)).Inc()
}

// ReportSent counts one fee report delivery attempt.
func (m *Metrics) ReportSent(err error) {
	if m == nil {
		return
	}
	m.reportsSent.WithLabelValues(result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
