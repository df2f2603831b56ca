package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts requests and measures their duration per route.
//
// Routes are labeled with the echo route template (e.g. "/api/trials/:id"),
// not the raw URL, to keep label cardinality bounded.
type Recorder struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triald_http_requests_total",
			Help: "Count of handled HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triald_http_request_duration_seconds",
			Help:    "Duration of handled HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	registry.MustRegister(requests, duration)

	return &Recorder{
		registry: registry,
		requests: requests,
		duration: duration,
	}
}

// Middleware records every request passing through it.
func (r *Recorder) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		begin := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			if httpErr, ok := err.(*echo.HTTPError); ok {
				status = httpErr.Code
			}
		}

		meth := c.Request().Method
		route := c.Path()
		r.requests.WithLabelValues(meth, route, strconv.Itoa(status)).Inc()
		r.duration.WithLabelValues(meth, route).Observe(time.Since(begin).Seconds())

		return err
	}
}

// Handler exposes the recorded metrics in prometheus text format.
func (r *Recorder) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
