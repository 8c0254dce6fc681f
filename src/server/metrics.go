package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// -----------------------------------------------------------------------------
// Prometheus Instrumentation
// -----------------------------------------------------------------------------

// Instruments bundles the server's Prometheus collectors. Each server owns its
// registry so multiple instances (tests, smoke harness) never collide on the
// default registerer.
type Instruments struct {
	Registry *prometheus.Registry

	IngestedMetrics   prometheus.Counter
	BroadcastEvents   prometheus.Counter
	DroppedSessions   prometheus.Counter
	ConnectedSessions prometheus.Gauge

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// -----------------------------------------------------------------------------

func NewInstruments() *Instruments {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Instruments{
		Registry: registry,

		IngestedMetrics: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "volley",
			Name:      "ingested_metrics_total",
			Help:      "Total number of metric records persisted via the ingest endpoint",
		}),
		BroadcastEvents: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "volley",
			Name:      "broadcast_events_total",
			Help:      "Total number of events fanned out by the hub",
		}),
		DroppedSessions: auto.NewCounter(prometheus.CounterOpts{
			Namespace: "volley",
			Name:      "dropped_sessions_total",
			Help:      "Sessions disconnected for falling behind the broadcast stream",
		}),
		ConnectedSessions: auto.NewGauge(prometheus.GaugeOpts{
			Namespace: "volley",
			Name:      "connected_sessions",
			Help:      "Currently connected websocket sessions",
		}),

		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "volley",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "volley",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// -----------------------------------------------------------------------------

// Middleware records request counts and latencies per route.
func (i *Instruments) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		i.httpRequests.WithLabelValues(c.Request.Method, route, status).Inc()
		i.httpRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
