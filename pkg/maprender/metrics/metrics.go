// Package metrics holds the Prometheus collectors of the map server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RenderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maprender_render_duration_seconds",
			Help:    "Time spent building, rendering and encoding a map",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"source"},
	)

	RenderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maprender_render_errors_total",
			Help: "Failed map renders",
		},
		[]string{"source", "stage"},
	)

	RenderedBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maprender_rendered_bytes_total",
			Help: "Encoded image bytes produced",
		},
		[]string{"source"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "maprender_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "maprender_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
