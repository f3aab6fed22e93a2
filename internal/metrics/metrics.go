// Package metrics exposes Prometheus counters for stock mutations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Mutations       *prometheus.CounterVec
	CascadeDeletes  prometheus.Counter
	ReleaseFailures prometheus.Counter
	Requests        *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zaloga",
			Name:      "mutations_total",
			Help:      "Stock mutations by operation and outcome.",
		}, []string{"op", "result"}),
		CascadeDeletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zaloga",
			Name:      "cascade_deletes_total",
			Help:      "Items removed because both stock pools reached zero.",
		}),
		ReleaseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "zaloga",
			Name:      "upload_release_failures_total",
			Help:      "Image uploads that could not be released.",
		}),
		Requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zaloga",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	reg.MustRegister(
		m.Mutations, m.CascadeDeletes, m.ReleaseFailures, m.Requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Mutation records the outcome of op. A nil err counts as "ok".
func (m *Metrics) Mutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Mutations.WithLabelValues(op, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
