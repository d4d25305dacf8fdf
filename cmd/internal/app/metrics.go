package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vidtube",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status class.",
	}, []string{"method", "class"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vidtube",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
)

func observeRequest(method, class string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, class).Inc()
	httpRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
