// Package metrics holds the Prometheus collectors of the history fetcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mrhistory"

// Metrics holds all fetcher Prometheus metrics.
type Metrics struct {
	FetchesTotal       *prometheus.CounterVec
	FetchDuration      prometheus.Histogram
	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec
	SessionRotations   prometheus.Counter
	TokensIssued       prometheus.Counter
	TasksSampled       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. Passing a fresh prometheus.NewRegistry()
// keeps tests independent of the global registry.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Completed fetches by outcome",
			},
			[]string{"outcome"}, // succeeded, failed, error
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of a complete application fetch",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		RemoteCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "remote_calls_total",
				Help:      "Requests issued to the job history server",
			},
			[]string{"resource", "status"},
		),
		RemoteCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "remote_call_duration_seconds",
				Help:      "Latency of requests to the job history server",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
			},
			[]string{"resource"},
		),
		SessionRotations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_rotations_total",
				Help:      "Authentication sessions discarded after their rotation interval",
			},
		),
		TokensIssued: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tokens_issued_total",
				Help:      "Authentication handshakes performed",
			},
		),
		TasksSampled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_sampled_total",
				Help:      "Tasks selected for detail fetches by kind",
			},
			[]string{"kind"}, // map, reduce
		),
		gatherer: reg,
	}
}

// ObserveRemoteCall records one request to the history server.
func (m *Metrics) ObserveRemoteCall(resource, status string, elapsed time.Duration) {
	m.RemoteCallsTotal.WithLabelValues(resource, status).Inc()
	m.RemoteCallDuration.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
