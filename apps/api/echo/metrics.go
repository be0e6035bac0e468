package echoapi

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/uninotes/core/academic"
	"github.com/trezcool/uninotes/core/browse"
)

const metricsNamespace = "uninotes"

// Metrics are the API counters, exposed on the debug host.
type Metrics struct {
	requests      *prometheus.CounterVec
	courseQueries *prometheus.CounterVec
	liveSessions  prometheus.Gauge
}

// NewMetrics registers the API collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		courseQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "course_queries_total",
			Help:      "Course queries sent by the live browse sessions, by outcome.",
		}, []string{"outcome"}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "live_sessions",
			Help:      "Open live browse sessions.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.courseQueries, m.liveSessions)
	}
	return m
}

// Middleware counts the requests once the error handler has set the status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if err := next(ctx); err != nil {
				ctx.Error(err)
			}
			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requests.WithLabelValues(ctx.Request().Method, route, strconv.Itoa(ctx.Response().Status)).Inc()
			return nil
		}
	}
}

// countingCatalog counts the course queries of the live sessions.
type countingCatalog struct {
	browse.Catalog
	counter *prometheus.CounterVec
}

func (c countingCatalog) Courses(ctx context.Context, f academic.FilterState) ([]academic.Course, error) {
	courses, err := c.Catalog.Courses(ctx, f)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Cause(err) == context.Canceled {
			outcome = "canceled"
		}
	}
	c.counter.WithLabelValues(outcome).Inc()
	return courses, err
}
