package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkoutRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_requests_total",
		Help: "Checkout session requests, labeled by response status",
	}, []string{"status"})

	checkoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_request_duration_seconds",
		Help:    "Latency of checkout session creation including the Stripe call",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Stripe webhook deliveries, labeled by terminal outcome",
	}, []string{"outcome"})

	forwardsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automation_forwards_total",
		Help: "Reconciled payloads forwarded to the automation endpoint",
	}, []string{"outcome"})
)
