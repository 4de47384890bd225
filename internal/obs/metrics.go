package obs

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "Total number of console HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Console HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_upstream_requests_total",
			Help: "Calls to the collections API by endpoint and outcome.",
		},
		[]string{"endpoint", "outcome"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_upstream_request_duration_seconds",
			Help:    "Collections API latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	commentSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_comment_saves_total",
			Help: "Follow-up comment saves by resulting state.",
		},
		[]string{"state"},
	)

	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_comment_reconcile_total",
			Help: "Pending comment reconciliation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_notifications_total",
			Help: "Outbound WhatsApp messages by kind and status.",
		},
		[]string{"kind", "status"},
	)

	registerOnce sync.Once
)

// Init registers all console metrics in the default registry
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			upstreamRequestsTotal,
			upstreamRequestDuration,
			commentSavesTotal,
			reconcileTotal,
			notificationsTotal,
		)
	})
}

// Handler exposes the Prometheus registry as a Fiber handler
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Middleware records request count and latency per matched route
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			}
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// ObserveUpstream records one collections API call
func ObserveUpstream(endpoint, outcome string, took time.Duration) {
	upstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	upstreamRequestDuration.WithLabelValues(endpoint).Observe(took.Seconds())
}

// CommentSaved records the state a saved comment ended in
func CommentSaved(state string) {
	commentSavesTotal.WithLabelValues(state).Inc()
}

// Reconciled records one reconciliation attempt
func Reconciled(outcome string) {
	reconcileTotal.WithLabelValues(outcome).Inc()
}

// NotificationSent records one outbound message
func NotificationSent(kind, status string) {
	notificationsTotal.WithLabelValues(kind, status).Inc()
}
