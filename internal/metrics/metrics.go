// Package metrics exposes Prometheus collectors for HTTP traffic and the
// review/account domain events.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goodreads"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	reviewOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reviews",
			Name:      "operations_total",
			Help:      "Review writes by operation and outcome.",
		},
		[]string{"operation", "result"},
	)

	bookUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "books",
			Name:      "updates_total",
			Help:      "Book metadata updates by outcome.",
		},
		[]string{"result"},
	)

	registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "users",
			Name:      "registrations_total",
			Help:      "Account registrations by outcome.",
		},
		[]string{"result"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "users",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		},
		[]string{"result"},
	)

	emails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mail",
			Name:      "sent_total",
			Help:      "Outgoing emails by kind and outcome.",
		},
		[]string{"kind", "result"},
	)

	tasksEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "enqueued_total",
			Help:      "Background tasks handed to the queue, by queue and outcome.",
		},
		[]string{"queue", "result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		reviewOperations,
		bookUpdates,
		registrations,
		logins,
		emails,
		tasksEnqueued,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request count and latency per matched route.
// Unmatched paths share one label so scanners cannot blow up cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordReviewOperation counts a create, update or delete of a review.
func RecordReviewOperation(operation string, err error) {
	reviewOperations.WithLabelValues(operation, result(err)).Inc()
}

func RecordBookUpdate(err error) {
	bookUpdates.WithLabelValues(result(err)).Inc()
}

func RecordRegistration(err error) {
	registrations.WithLabelValues(result(err)).Inc()
}

// RecordLogin counts a login attempt; success is false for rejected credentials.
func RecordLogin(success bool) {
	outcome := "failed"
	if success {
		outcome = "success"
	}
	logins.WithLabelValues(outcome).Inc()
}

func RecordEmail(kind string, err error) {
	emails.WithLabelValues(kind, result(err)).Inc()
}

func RecordTaskEnqueued(queue string, err error) {
	tasksEnqueued.WithLabelValues(queue, result(err)).Inc()
}
