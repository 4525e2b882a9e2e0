package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

type Metrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	CheckoutSessions *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	TotalMismatches  prometheus.Counter
	Fulfillment      *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	SessionCache     *prometheus.CounterVec
}

// New registers the service collectors on reg. Tests pass a fresh
// prometheus.NewRegistry so repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route", "method"}),
		CheckoutSessions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "sessions_total",
			Help:      "Checkout session creation attempts by result.",
		}, []string{"result"}),
		WebhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Payment webhook deliveries by outcome.",
		}, []string{"outcome"}),
		TotalMismatches: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "total_mismatches_total",
			Help:      "Orders whose recomputed total differed from the provider amount.",
		}),
		Fulfillment: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "orders",
			Name:      "transitions_total",
			Help:      "Order and item status transitions.",
		}, []string{"transition"}),
		Notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications by type and result.",
		}, []string{"type", "result"}),
		SessionCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "checkout",
			Name:      "session_cache_total",
			Help:      "Session status cache lookups by result.",
		}, []string{"result"}),
	}
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
