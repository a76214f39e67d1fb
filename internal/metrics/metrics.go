package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal tracks total HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	// RequestDuration tracks HTTP request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "endpoint"},
	)

	// CircuitBreakerState tracks circuit breaker state (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service", "circuit_name"},
	)

	// CircuitBreakerFailures tracks calls rejected or failed through a breaker
	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures",
		},
		[]string{"service", "circuit_name"},
	)

	// OrdersCreated counts orders written, by type and initial status
	OrdersCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sachio_orders_created_total",
			Help: "Total number of orders created",
		},
		[]string{"type", "status"},
	)

	// OrderStatusUpdates counts admin status overwrites by resulting bucket
	OrderStatusUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sachio_order_status_updates_total",
			Help: "Total number of order status overwrites",
		},
		[]string{"bucket"},
	)

	// PaymentConfirmations counts payment confirmations by outcome
	PaymentConfirmations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sachio_payment_confirmations_total",
			Help: "Total number of payment confirmations",
		},
		[]string{"provider", "outcome"},
	)

	// CheckoutAmount tracks checkout totals in naira
	CheckoutAmount = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sachio_checkout_amount_naira",
			Help:    "Checkout totals in naira, shipping included",
			Buckets: []float64{5000, 20000, 50000, 100000, 250000, 500000, 1000000},
		},
	)

	// CartPersistFailures counts cart mutations rejected because the save failed
	CartPersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sachio_cart_persist_failures_total",
			Help: "Total number of cart saves that failed after retries",
		},
	)

	// LiveSubscriptions tracks open order streams
	LiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sachio_order_stream_subscriptions",
			Help: "Number of open order stream subscriptions",
		},
	)

	// StaleViews counts subscription errors that left a view stale
	StaleViews = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sachio_order_view_stale_total",
			Help: "Total number of subscription errors that marked a view stale",
		},
	)

	// OrderCacheLookups counts order cache reads by result
	OrderCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sachio_order_cache_lookups_total",
			Help: "Total number of order cache lookups",
		},
		[]string{"result"},
	)
)

// PrometheusMiddleware creates a Gin middleware for automatic metrics collection
func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		RequestsTotal.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()

		RequestDuration.WithLabelValues(
			serviceName,
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}
