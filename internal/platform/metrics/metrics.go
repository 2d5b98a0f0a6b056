// Package metrics exposes Prometheus counters for HTTP traffic and
// readmission scoring.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readmit_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readmit_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Scoring metrics
	predictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readmit_predictions_total",
			Help: "Total number of risk assessments",
		},
		[]string{"condition", "band", "mode"},
	)

	modelFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "readmit_model_fallbacks_total",
			Help: "Assessments where the heuristic replaced a failing model",
		},
	)

	followupStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readmit_followup_store_errors_total",
			Help: "Follow-up store failures by operation",
		},
		[]string{"op"},
	)
)

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency, labelled by route template
// so path parameters do not inflate cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// RecordPrediction counts one assessment.
func RecordPrediction(condition, band, mode string) {
	predictionsTotal.WithLabelValues(condition, band, mode).Inc()
}

// RecordModelFallback counts a model failure absorbed by the heuristic.
func RecordModelFallback() {
	modelFallbacksTotal.Inc()
}

// RecordStoreError counts a follow-up store failure for op.
func RecordStoreError(op string) {
	followupStoreErrors.WithLabelValues(op).Inc()
}
