package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the HTTP API. Each Server
// carries its own registry so multiple instances can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	SearchesTotal      prometheus.Counter
	SearchResultsTotal prometheus.Counter
	IngestsTotal       *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treatysearch_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "treatysearch_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		SearchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "treatysearch_searches_total",
				Help: "Total number of search queries",
			},
		),
		SearchResultsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "treatysearch_search_results_total",
				Help: "Total number of per-country search results returned",
			},
		),
		IngestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "treatysearch_ingests_total",
				Help: "Total number of ingestion attempts",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the /metrics endpoint for this server's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
