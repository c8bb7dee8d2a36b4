package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	// Chit plan lifecycle
	chitPlanOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chit_plan_operations_total",
		Help: "Chit plan create/update/delete attempts",
	}, []string{
		"operation", // create, update, delete
		"outcome",   // ok or error code (QUOTA_EXCEEDED, KYC_REQUIRED, ...)
	})

	// Installment payments
	installmentPaymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "installment_payments_total",
		Help: "Installment payment records by channel and resulting status",
	}, []string{
		"merchant_id",
		"channel", // online, offline
		"status",  // pending, completed, rejected
	})

	installmentAmountPaise = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "installment_amount_paise_total",
		Help: "Total completed installment amount in paise (for collection tracking)",
	}, []string{
		"merchant_id",
		"channel",
	})

	commissionAmountPaise = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commission_amount_paise_total",
		Help: "Platform commission accrued on online installments, in paise",
	}, []string{
		"merchant_id",
	})

	paymentVerificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verification_failures_total",
		Help: "Gateway confirmations that failed verification",
	}, []string{
		"purpose", // installment, renewal
	})

	staleMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stale_mutations_total",
		Help: "Mutations refused because the caller acted on an outdated view",
	}, []string{
		"operation",
		"code", // ALREADY_PROCESSED, SUBSCRIPTION_CLOSED, CONCURRENT_MODIFICATION
	})

	// Subscription lifecycle
	subscriptionTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subscription_transitions_total",
		Help: "Subscription status transitions",
	}, []string{
		"to", // requested_withdrawal, completed, settled
	})

	settlementAmountPaise = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_amount_paise_total",
		Help: "Total amount paid out through settlements, in paise",
	}, []string{
		"merchant_id",
	})

	// Merchant tier renewals and access
	tierRenewalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tier_renewals_total",
		Help: "Merchant tier renewal attempts",
	}, []string{
		"tier",
		"period",
		"outcome",
	})

	accessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "access_decisions_total",
		Help: "Dashboard access checks by decision",
	}, []string{
		"decision", // allowed, grace, blocked
	})

	// Gateway calls
	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Payment gateway call latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{
		"operation", // create_order, verify
		"status",    // ok, error, circuit_open
	})
)

func paise(amount decimal.Decimal) float64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).InexactFloat64()
}

// RecordPlanOperation records a chit plan mutation attempt
func RecordPlanOperation(operation, outcome string) {
	chitPlanOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordInstallment records a new or resolved payment record.
// Only completed records count toward collected amount.
func RecordInstallment(merchantID, channel, status string, amount, commission decimal.Decimal) {
	installmentPaymentsTotal.WithLabelValues(merchantID, channel, status).Inc()

	if status == "completed" {
		installmentAmountPaise.WithLabelValues(merchantID, channel).Add(paise(amount))
		if commission.IsPositive() {
			commissionAmountPaise.WithLabelValues(merchantID).Add(paise(commission))
		}
	}
}

// RecordVerificationFailure records a failed gateway confirmation
func RecordVerificationFailure(purpose string) {
	paymentVerificationFailures.WithLabelValues(purpose).Inc()
}

// RecordStaleMutation records a refused mutation against an outdated view
func RecordStaleMutation(operation, code string) {
	staleMutationsTotal.WithLabelValues(operation, code).Inc()
}

// RecordSubscriptionTransition records a subscription status change
func RecordSubscriptionTransition(to string) {
	subscriptionTransitionsTotal.WithLabelValues(to).Inc()
}

// RecordSettlement records a settlement payout
func RecordSettlement(merchantID string, amount decimal.Decimal) {
	settlementAmountPaise.WithLabelValues(merchantID).Add(paise(amount))
	subscriptionTransitionsTotal.WithLabelValues("settled").Inc()
}

// RecordRenewal records a merchant tier renewal attempt
func RecordRenewal(tier, period, outcome string) {
	tierRenewalsTotal.WithLabelValues(tier, period, outcome).Inc()
}

// RecordAccessDecision records an access check outcome
func RecordAccessDecision(decision string) {
	accessDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordGatewayCall records the latency of a gateway request
func RecordGatewayCall(operation, status string, seconds float64) {
	gatewayRequestDuration.WithLabelValues(operation, status).Observe(seconds)
}
