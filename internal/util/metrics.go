package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of fulfillment orders placed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order attempts",
	}, []string{"reason"})

	OrdersDuplicateTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_duplicate_total",
		Help: "Total number of duplicate order attempts suppressed",
	})

	PriceChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "price_checks_total",
		Help: "Total number of cart pricing computations",
	})

	PriceLinesUnavailable = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "price_lines_unavailable_total",
		Help: "Total number of cart lines priced as unavailable",
	}, []string{"reason"})

	ShippingQuotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shipping_quotes_total",
		Help: "Total number of shipping quotes computed",
	}, []string{"region"})

	PaymentVerificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Total number of payment verifications against the processor",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Total number of processor webhook deliveries",
	}, []string{"result"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limited_total",
		Help: "Total number of rate-limited requests",
	}, []string{"bucket"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
