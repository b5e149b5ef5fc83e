package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apsar_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apsar_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apsar_http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})

	rateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apsar_http_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

// MetricsHandler serves the prometheus registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
