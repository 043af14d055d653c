// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaldesk_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentaldesk_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RentalStatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaldesk_rental_status_transitions_total",
		Help: "Persisted rental status changes.",
	}, []string{"from", "to"})

	RenewalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaldesk_renewal_decisions_total",
		Help: "Renewal requests decided, by outcome.",
	}, []string{"decision"})

	CommissionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaldesk_commissions_created_total",
		Help: "Commissions recorded, by split policy.",
	}, []string{"policy"})

	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaldesk_events_total",
		Help: "Domain events dispatched on the bus.",
	}, []string{"type"})

	AlertCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rentaldesk_alert_cache_results_total",
		Help: "Alert feed cache lookups by result.",
	}, []string{"result"})
)
