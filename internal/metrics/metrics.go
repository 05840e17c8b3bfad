package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "school_portal"

type Metrics struct {
	registry *prometheus.Registry

	logins    *prometheus.CounterVec
	guards    *prometheus.CounterVec
	upstreams *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		guards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_guard_decisions_total",
			Help:      "Route guard decisions by outcome.",
		}, []string{"outcome"}),
		upstreams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests made to the school API by resource, method and status code.",
		}, []string{"resource", "method", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.logins,
		m.guards,
		m.upstreams,
	)

	return m
}

// The methods below are no-ops on a nil *Metrics so callers don't have to care whether metrics are enabled

func (m *Metrics) Login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Guard(outcome string) {
	if m == nil {
		return
	}
	m.guards.WithLabelValues(outcome).Inc()
}

// Upstream records one API call. A status of 0 means the request never got a response
func (m *Metrics) Upstream(resource, method string, status int) {
	if m == nil {
		return
	}

	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.upstreams.WithLabelValues(resource, method, code).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Logins() *prometheus.CounterVec {
	return m.logins
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
