package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allodakar_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "allodakar_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allodakar_rate_limited_requests_total",
			Help: "Total number of requests rejected by rate limiter",
		},
		[]string{"path"},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allodakar_booking_transitions_total",
			Help: "Total number of booking status changes",
		},
		[]string{"booking_type", "status"},
	)

	LedgerOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allodakar_ledger_operations_total",
			Help: "Total number of wallet operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	LedgerAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allodakar_ledger_amount_xof_total",
			Help: "Total amount moved by completed wallet operations",
		},
		[]string{"operation"},
	)

	RatingsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allodakar_ratings_submitted_total",
			Help: "Total number of ratings submitted",
		},
		[]string{"score"},
	)

	WalletAuditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allodakar_wallet_audits_total",
			Help: "Total number of wallets checked against the ledger by result",
		},
		[]string{"result"},
	)
)

// Wallet audit results
const (
	AuditConsistent = "consistent"
	AuditMismatch   = "mismatch"
	AuditFailed     = "failed"
)

// Ledger operation outcomes
const (
	OutcomeOK       = "ok"
	OutcomeReplayed = "replayed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordRateLimited(path string) {
	RateLimitedTotal.WithLabelValues(path).Inc()
}

func RecordBookingTransition(bookingType, status string) {
	BookingTransitionsTotal.WithLabelValues(bookingType, status).Inc()
}

// Amount counted only for operations that moved money
func RecordLedgerOperation(operation, outcome string, amount int64) {
	LedgerOperationsTotal.WithLabelValues(operation, outcome).Inc()
	if outcome == OutcomeOK {
		LedgerAmountTotal.WithLabelValues(operation).Add(float64(amount))
	}
}

func RecordRating(score string) {
	RatingsSubmittedTotal.WithLabelValues(score).Inc()
}

func RecordWalletAudit(result string) {
	WalletAuditsTotal.WithLabelValues(result).Inc()
}
