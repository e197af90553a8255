package metrics

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// ActionKey is the echo context key a handler sets to the slots action it
// served ("purchase", "init"). Requests without one are labelled with their
// lower-cased method.
const ActionKey = "mosaic.action"

// Store round trips dominate; anything past a few seconds is a hung backend.
var requestBuckets = []float64{0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

type HTTPMetrics struct {
	Duration *prometheus.HistogramVec
	Requests *prometheus.CounterVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency of slot API requests, by route and action.",
			Buckets:   requestBuckets,
		}, []string{"route", "action"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Slot API requests, by route, action and status code.",
		}, []string{"route", "action", "status_code"}),
	}

	reg.MustRegister(m.Duration, m.Requests)
	return m
}

// Middleware records every request except /health/*, /version and /metrics.
// Errors that bypass the error middleware are counted with their own status.
func (m *HTTPMetrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			route := c.Path()
			if skipRoute(route) {
				return next(c)
			}
			if route == "" {
				route = "unmatched"
			}

			start := time.Now()
			err := next(c)

			action := requestAction(c)
			m.Duration.WithLabelValues(route, action).Observe(time.Since(start).Seconds())
			m.Requests.WithLabelValues(route, action, strconv.Itoa(responseStatus(c, err))).Inc()
			return err
		}
	}
}

func skipRoute(route string) bool {
	return route == "/metrics" || route == "/version" || strings.HasPrefix(route, "/health/")
}

func requestAction(c echo.Context) string {
	if action, ok := c.Get(ActionKey).(string); ok && action != "" {
		return action
	}
	return strings.ToLower(c.Request().Method)
}

func responseStatus(c echo.Context, err error) int {
	var httpErr *echo.HTTPError
	if err != nil && !c.Response().Committed && errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return c.Response().Status
}
