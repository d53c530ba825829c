// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for LeadSubmissions.  One per exit of the gate chain.
const (
	OutcomeAccepted         = "accepted"
	OutcomeForbiddenOrigin  = "forbidden_origin"
	OutcomeRateLimited      = "rate_limited"
	OutcomeInvalidPayload   = "invalid_payload"
	OutcomeUnexpectedFields = "unexpected_fields"
	OutcomeValidationError  = "validation_error"
	OutcomeHoneypot         = "honeypot"
	OutcomeCSRFMismatch     = "csrf_mismatch"
	OutcomeNotConfigured    = "telegram_not_configured"
	OutcomeDeliveryFailed   = "telegram_unavailable"
	OutcomeInternalError    = "internal_error"
)

// Result labels for DeliveryAttempts.
const (
	AttemptOK        = "ok"
	AttemptRetryable = "retryable"
	AttemptFatal     = "fatal"
)

var (
	LeadSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgate_lead_submissions_total",
			Help: "Lead submissions by gate-chain outcome.",
		}, []string{"outcome"})

	DeliveryAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadgate_delivery_attempts_total",
			Help: "Telegram sendMessage attempts by result.",
		}, []string{"result"})

	DeliveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leadgate_delivery_duration_seconds",
			Help:    "Wall time of one delivery, retries included.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		})

	RateLimitDenied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadgate_ratelimit_denied_total",
			Help: "Requests rejected by the per-IP limiter.",
		})

	CSRFTokensIssued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadgate_csrf_tokens_issued_total",
			Help: "CSRF tokens handed out by GET /api/leads/csrf.",
		})
)

func init() {
	prometheus.MustRegister(
		LeadSubmissions,
		DeliveryAttempts,
		DeliveryDuration,
		RateLimitDenied,
		CSRFTokensIssued,
	)
}
