// Package telemetry exposes Prometheus metrics for the workstation service:
// HTTP request counters, upstream HIS call outcomes, draft autosave activity
// and the number of live workspaces.
package telemetry

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec
	BreakerState          prometheus.Gauge

	DraftWritesTotal  *prometheus.CounterVec
	DraftRestoreTotal prometheus.Counter

	WorkspacesActive prometheus.Gauge
	WorkspacesTotal  prometheus.Counter

	SubmissionsTotal *prometheus.CounterVec
}

func New(serviceName string) *Metrics {
	return NewWith(serviceName, prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on reg. Tests pass their own registry so
// repeated construction does not panic on duplicate registration.
func NewWith(serviceName string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		UpstreamRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "his",
			Name:      "requests_total",
			Help:      "Total upstream HIS requests by method and outcome.",
		}, []string{"method", "outcome"}),

		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "his",
			Name:      "request_duration_seconds",
			Help:      "Upstream HIS request latency distribution.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method"}),

		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "his",
			Name:      "breaker_open",
			Help:      "1 when the upstream circuit breaker is open, 0 otherwise.",
		}),

		DraftWritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "draft",
			Name:      "writes_total",
			Help:      "Draft store operations by result (saved, deleted, failed).",
		}, []string{"result"}),

		DraftRestoreTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "draft",
			Name:      "restores_total",
			Help:      "Drafts restored into a fresh workspace.",
		}),

		WorkspacesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "workspace",
			Name:      "active",
			Help:      "Current number of live workstation workspaces.",
		}),

		WorkspacesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "workspace",
			Name:      "opened_total",
			Help:      "Total workstation workspaces opened.",
		}),

		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "submissions_total",
			Help:      "Clinical submissions by kind (case, diagnosis, order, prescription) and result.",
		}, []string{"kind", "result"}),
	}
}

// Middleware records request count and latency for every handled request.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			status := strconv.Itoa(c.Response().Status)
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			m.RequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the Prometheus text exposition endpoint.
func Handler() echo.HandlerFunc {
	h := promhttp.Handler()
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
