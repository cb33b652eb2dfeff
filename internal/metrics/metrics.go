package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric label values.
const (
	DatasetVaccination = "vaccination"
	DatasetInfection   = "infection"

	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"

	FeedbackStored      = "stored"
	FeedbackInvalid     = "invalid"
	FeedbackRateLimited = "rate_limited"
	FeedbackFailed      = "failed"
)

var (
	// HTTPRequestsTotal counts handled requests by route template and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthdash_http_requests_total",
		Help: "Total number of handled HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthdash_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthdash_db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
	}, []string{"query"})

	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthdash_exports_total",
		Help: "Total number of generated exports",
	}, []string{"dataset", "format"})

	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthdash_cache_lookups_total",
		Help: "Total number of lookup list cache reads",
	}, []string{"result"})

	FeedbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthdash_feedback_submissions_total",
		Help: "Total number of feedback submissions by outcome",
	}, []string{"outcome"})
)

// ObserveQuery records the time since start. Intended to be deferred.
func ObserveQuery(query string, start time.Time) {
	QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// Middleware records request counts and latency per route template.
func Middleware(skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = 500
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
