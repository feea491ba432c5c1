package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/auth/login", "200", 0.1)
	RecordHTTPRequest("POST", "/api/auth/login", "200", 0.2)
	RecordHTTPRequest("POST", "/api/auth/login", "401", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/auth/login", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/auth/login", "401")))
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration), "one histogram per method and path")
}

func TestRecordRateLimited(t *testing.T) {
	RateLimitedTotal.Reset()

	RecordRateLimited("/api/auth/login")

	assert.Equal(t, float64(1), testutil.ToFloat64(RateLimitedTotal.WithLabelValues("/api/auth/login")))
}

func TestRecordBookingTransition(t *testing.T) {
	BookingTransitionsTotal.Reset()

	RecordBookingTransition("VOYAGE", "ACCEPTED")
	RecordBookingTransition("VOYAGE", "ACCEPTED")
	RecordBookingTransition("COLIS", "CANCELLED")

	assert.Equal(t, float64(2), testutil.ToFloat64(BookingTransitionsTotal.WithLabelValues("VOYAGE", "ACCEPTED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingTransitionsTotal.WithLabelValues("COLIS", "CANCELLED")))
}

func TestRecordLedgerOperation(t *testing.T) {
	LedgerOperationsTotal.Reset()
	LedgerAmountTotal.Reset()

	RecordLedgerOperation("deposit", OutcomeOK, 10000)
	RecordLedgerOperation("deposit", OutcomeReplayed, 10000)
	RecordLedgerOperation("transfer", OutcomeRejected, 4000)

	assert.Equal(t, float64(1), testutil.ToFloat64(LedgerOperationsTotal.WithLabelValues("deposit", OutcomeOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(LedgerOperationsTotal.WithLabelValues("deposit", OutcomeReplayed)))
	assert.Equal(t, float64(10000), testutil.ToFloat64(LedgerAmountTotal.WithLabelValues("deposit")), "replay moves no money")
	assert.Equal(t, float64(0), testutil.ToFloat64(LedgerAmountTotal.WithLabelValues("transfer")))
}

func TestRecordRating(t *testing.T) {
	RatingsSubmittedTotal.Reset()

	RecordRating("5")

	assert.Equal(t, float64(1), testutil.ToFloat64(RatingsSubmittedTotal.WithLabelValues("5")))
}

func TestRecordWalletAudit(t *testing.T) {
	WalletAuditsTotal.Reset()

	RecordWalletAudit(AuditConsistent)
	RecordWalletAudit(AuditConsistent)
	RecordWalletAudit(AuditMismatch)

	assert.Equal(t, float64(2), testutil.ToFloat64(WalletAuditsTotal.WithLabelValues(AuditConsistent)))
	assert.Equal(t, float64(1), testutil.ToFloat64(WalletAuditsTotal.WithLabelValues(AuditMismatch)))
	assert.Equal(t, float64(0), testutil.ToFloat64(WalletAuditsTotal.WithLabelValues(AuditFailed)))
}
