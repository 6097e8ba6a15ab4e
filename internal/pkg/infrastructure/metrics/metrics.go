// Package metrics exposes the broker's Prometheus collectors
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sosbroker_requests_total",
	Help: "Number of handled requests by binding, operation and status code",
}, []string{"binding", "operation", "status"})

var CacheRebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "sosbroker_cache_rebuild_duration_seconds",
	Help:    "Wall clock duration of content cache rebuilds",
	Buckets: prometheus.DefBuckets,
})

var CacheRebuildErrors = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sosbroker_cache_rebuild_errors_total",
	Help: "Number of failed cache update tasks",
})

// Handler serves the default registry on /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
