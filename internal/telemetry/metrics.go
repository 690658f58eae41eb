// Package telemetry exposes Prometheus metrics for exports and publishes.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "site_builder"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeNoop    = "noop"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	exports        *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	mediaFetches   *prometheus.CounterVec
	publishes      *prometheus.CounterVec
	requests       *prometheus.CounterVec
	inFlight       prometheus.Gauge
}

// New registers the collectors on a dedicated registry, alongside the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Website exports by mode and outcome.",
		}, []string{"mode", "outcome"}),
		exportDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Wall time of the export pipeline.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode"}),
		mediaFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_resolutions_total",
			Help:      "Media reference resolutions by outcome.",
		}, []string{"outcome"}),
		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publishes_total",
			Help:      "GitHub publishes by outcome.",
		}, []string{"outcome"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests being served.",
		}),
	}
}

func (m *Metrics) ExportFinished(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(mode, outcome).Inc()
	m.exportDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *Metrics) MediaFetched(outcome string) {
	if m == nil {
		return
	}
	m.mediaFetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PublishFinished(outcome string) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by matched route. Unmatched paths share one label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
