package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	queryTotal        *prometheus.CounterVec
	queryDuration     *prometheus.HistogramVec
	pollTotal         *prometheus.CounterVec
	inFlight          prometheus.Gauge
	reportsTotal      *prometheus.CounterVec
}

// New creates the collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reebalance_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reebalance_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reebalance_graphql_queries_total",
			Help: "GraphQL operations sent to the balance API by operation and outcome.",
		}, []string{"operation", "outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "reebalance_graphql_query_duration_seconds",
			Help:    "Histogram of GraphQL round-trip durations by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		pollTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reebalance_poll_ticks_total",
			Help: "Refresh ticks by poller and outcome.",
		}, []string{"poller", "outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "reebalance_aggregator_fetches_in_flight",
			Help: "Aggregator fetches dispatched and not yet settled.",
		}),
		reportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reebalance_reports_generated_total",
			Help: "Report bundles generated by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.queryTotal,
		m.queryDuration,
		m.pollTotal,
		m.inFlight,
		m.reportsTotal,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the underlying registry for gathering in tests
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and latency for route
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// QueryDone records one GraphQL round trip
func (m *Metrics) QueryDone(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.queryTotal.WithLabelValues(operation, outcome(err)).Inc()
	m.queryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// PollTick records one poller tick
func (m *Metrics) PollTick(poller string, err error) {
	if m == nil {
		return
	}
	m.pollTotal.WithLabelValues(poller, outcome(err)).Inc()
}

// FetchStarted and FetchSettled track aggregator fetches in flight
func (m *Metrics) FetchStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) FetchSettled() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

// ReportGenerated records one report bundle
func (m *Metrics) ReportGenerated(err error) {
	if m == nil {
		return
	}
	m.reportsTotal.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
