package handlers

import (
	"net/http"

	"github.com/kevin07696/chit-service/internal/handlers/chitplan"
	"github.com/kevin07696/chit-service/internal/handlers/merchant"
	"github.com/kevin07696/chit-service/internal/handlers/payment"
	"github.com/kevin07696/chit-service/internal/handlers/subscription"
	"github.com/kevin07696/chit-service/internal/middleware"
	"github.com/kevin07696/chit-service/internal/services/ports"
	"github.com/kevin07696/chit-service/internal/services/tier"
	"github.com/kevin07696/chit-service/pkg/observability"
	"go.uber.org/zap"
)

// Services bundles the application services behind the API
type Services struct {
	Plans          ports.ChitPlanService
	Ledger         ports.LedgerService
	Reconciliation ports.ReconciliationService
	Settlement     ports.SettlementService
	Expiry         ports.ExpiryService
	Policy         *tier.Policy
}

// RouterConfig holds the cross-cutting pieces of the API
type RouterConfig struct {
	Verifier      middleware.TokenVerifier
	RateLimiter   *middleware.RateLimiter // optional
	IsDevelopment bool
}

// NewRouter builds the /api/v1 routes. Every dashboard route goes through
// the expiry access guard; the merchant overview and renewal routes skip
// it so an expired merchant can still pay.
func NewRouter(svc Services, cfg RouterConfig, logger *zap.Logger) http.Handler {
	merchantHandler := merchant.NewHandler(svc.Expiry, svc.Plans, svc.Policy, logger)
	planHandler := chitplan.NewHandler(svc.Plans, svc.Ledger, svc.Settlement, logger)
	subHandler := subscription.NewHandler(svc.Ledger, svc.Reconciliation, svc.Settlement, logger)
	paymentHandler := payment.NewHandler(svc.Reconciliation, logger)

	guard := middleware.NewAccessGuard(svc.Expiry, logger)
	guarded := func(h http.HandlerFunc) http.Handler { return guard.Middleware(h) }

	mux := http.NewServeMux()

	// Renewal flow, reachable while expired
	mux.HandleFunc("GET /api/v1/merchants/{id}", merchantHandler.GetMerchant)
	mux.HandleFunc("POST /api/v1/merchants/{id}/renewal-orders", merchantHandler.CreateRenewalOrder)
	mux.HandleFunc("POST /api/v1/merchants/{id}/renewals", merchantHandler.Renew)
	mux.HandleFunc("GET /api/v1/merchants/{id}/renewals", merchantHandler.ListRenewals)

	// Chit plans
	mux.Handle("GET /api/v1/chit-plans", guarded(planHandler.ListPlans))
	mux.Handle("POST /api/v1/chit-plans", guarded(planHandler.CreatePlan))
	mux.Handle("GET /api/v1/chit-plans/{id}", guarded(planHandler.GetPlan))
	mux.Handle("PUT /api/v1/chit-plans/{id}", guarded(planHandler.UpdatePlan))
	mux.Handle("DELETE /api/v1/chit-plans/{id}", guarded(planHandler.DeletePlan))
	mux.Handle("POST /api/v1/chit-plans/{id}/subscriptions", guarded(planHandler.Enroll))
	mux.Handle("GET /api/v1/chit-plans/{id}/subscriptions", guarded(planHandler.ListSubscriptions))
	mux.Handle("POST /api/v1/chit-plans/{id}/settle", guarded(planHandler.Settle))

	// Subscriptions
	mux.Handle("GET /api/v1/subscriptions/{id}", guarded(subHandler.GetSubscription))
	mux.Handle("POST /api/v1/subscriptions/{id}/withdrawal", guarded(subHandler.RequestWithdrawal))
	mux.Handle("GET /api/v1/subscriptions/{id}/payments", guarded(subHandler.ListPayments))
	mux.Handle("POST /api/v1/subscriptions/{id}/payments/online", guarded(subHandler.RecordOnlinePayment))
	mux.Handle("POST /api/v1/subscriptions/{id}/payments/offline", guarded(subHandler.RecordOfflinePayment))
	mux.Handle("POST /api/v1/subscriptions/{id}/orders", guarded(subHandler.CreateOrder))
	mux.Handle("GET /api/v1/subscriptions/{id}/settlement", guarded(subHandler.GetSettlement))
	mux.Handle("GET /api/v1/subscriptions/{id}/audit", guarded(subHandler.Audit))

	// Payments
	mux.Handle("PUT /api/v1/payments/offline/{id}/approve", guarded(paymentHandler.Approve))
	mux.Handle("PUT /api/v1/payments/offline/{id}/reject", guarded(paymentHandler.Reject))
	mux.Handle("GET /api/v1/payments/{id}/receipt", guarded(paymentHandler.Receipt))

	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RequestLogger(logger),
		middleware.NewSecurityHeaders(cfg.IsDevelopment).Middleware,
	}
	if cfg.RateLimiter != nil {
		chain = append(chain, cfg.RateLimiter.Middleware)
	}
	chain = append(chain, middleware.NewSessionAuth(cfg.Verifier, logger).Middleware)

	// Metrics wrap the mux directly so the matched pattern is visible
	return middleware.Chain(observability.HTTPMetrics(mux), chain...)
}
