// Package metrics defines the custom Prometheus metrics of the task API.
// Metrics are registered with the default registry on package init via
// promauto and exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasktracker"

// AuthAttemptsTotal counts registration and login attempts.
// Labels:
//   - operation: "register" or "login"
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of registration and login attempts.",
	},
	[]string{"operation", "result"},
)

// GuardRejectionsTotal counts requests rejected by the access guard.
// Label:
//   - reason: "missing_token", "token_expired", "token_invalid", "user_not_found"
var GuardRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_rejections_total",
		Help:      "Total number of protected requests rejected before reaching a handler.",
	},
	[]string{"reason"},
)

// TaskOperationsTotal counts task use cases by outcome.
// Labels:
//   - operation: list, get, create, update, delete, done, stats, history
//   - result: "success" or "failure"
var TaskOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "task_operations_total",
		Help:      "Total number of task operations, by operation and result.",
	},
	[]string{"operation", "result"},
)

// IdempotentReplaysTotal counts task creations answered from an earlier
// Idempotency-Key.
var IdempotentReplaysTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "idempotent_replays_total",
		Help:      "Total number of task creations replayed from an idempotency key.",
	},
)

// AuditEventsDroppedTotal counts activity events dropped by the audit
// dispatcher.
var AuditEventsDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_dropped_total",
		Help:      "Total number of task activity events dropped because the audit queue was full.",
	},
)

// HTTPRequestDuration measures request latency by route template.
// Labels:
//   - method: HTTP method
//   - route: echo route path (e.g. "/api/tasks/:id")
//   - code: response status code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "code"},
)

// Result maps an error to the "result" label value.
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// Middleware records HTTPRequestDuration for every request. It must run
// inside the error handler so the final status code is observed.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(c.Response().Status)).
				Observe(time.Since(start).Seconds())
			return nil
		}
	}
}
