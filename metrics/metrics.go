// Package metrics exposes prometheus collectors for the HTTP API and the
// session subsystem.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for login and token verification counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultLimited = "rate_limited"
)

type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	logins              *prometheus.CounterVec
	verifications       *prometheus.CounterVec
}

// New registers every collector on a private registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Session token verifications by result and error code.",
		}, []string{"result", "code"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration, m.logins, m.verifications,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Filter records request count, latency and in-flight gauge per route template.
func (m *Metrics) Filter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	m.httpInFlight.Inc()
	defer m.httpInFlight.Dec()

	start := time.Now()
	chain.ProcessFilter(req, resp)

	route := req.SelectedRoutePath()
	if route == "" {
		route = "unmatched"
	}
	status := strconv.Itoa(resp.StatusCode())
	m.httpRequestDuration.WithLabelValues(req.Request.Method, route, status).Observe(time.Since(start).Seconds())
	m.httpRequestsTotal.WithLabelValues(req.Request.Method, route, status).Inc()
}

func (m *Metrics) ObserveLogin(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

// ObserveVerification counts a verification; code is empty on success.
func (m *Metrics) ObserveVerification(result, code string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(result, code).Inc()
}
