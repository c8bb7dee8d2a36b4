package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	domainports "github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/services/chitplan"
	"github.com/kevin07696/chit-service/internal/services/expiry"
	"github.com/kevin07696/chit-service/internal/services/ledger"
	"github.com/kevin07696/chit-service/internal/services/reconciliation"
	"github.com/kevin07696/chit-service/internal/services/settlement"
	"github.com/shopspring/decimal"
)

// ChitPlanService defines the port for chit plan management
type ChitPlanService interface {
	// Create adds a plan after the KYC and quota checks
	Create(ctx context.Context, session domain.Session, draft domain.PlanDraft) (*domain.ChitPlan, error)

	// Update edits a plan; running subscriptions keep their terms
	Update(ctx context.Context, session domain.Session, planID uuid.UUID, draft domain.PlanDraft) (*domain.ChitPlan, error)

	// Delete removes a plan that has no open subscriptions
	Delete(ctx context.Context, session domain.Session, planID uuid.UUID) error

	Get(ctx context.Context, session domain.Session, planID uuid.UUID) (*domain.ChitPlan, error)
	List(ctx context.Context, session domain.Session) ([]*domain.ChitPlan, error)
}

// LedgerService defines the port for subscriber enrollment and the ledger view
type LedgerService interface {
	Enroll(ctx context.Context, session domain.Session, planID uuid.UUID, userID string) (*ledger.SubscriptionView, error)
	Get(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) (*ledger.SubscriptionView, error)
	ListByPlan(ctx context.Context, session domain.Session, planID uuid.UUID) ([]*ledger.SubscriptionView, error)

	// RequestWithdrawal moves an active subscription into requested_withdrawal
	RequestWithdrawal(ctx context.Context, session domain.Session, subscriptionID uuid.UUID, bank domain.BankDetails, message string) (*domain.WithdrawalRequest, error)

	// AuditTotals compares the stored paid total with the completed payments
	AuditTotals(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) (*ledger.Audit, error)
}

// ReconciliationService defines the port for installment payments
type ReconciliationService interface {
	RecordOnlinePayment(ctx context.Context, session domain.Session, req *reconciliation.OnlinePaymentRequest) (*domain.PaymentRecord, error)
	RecordOfflinePayment(ctx context.Context, session domain.Session, req *reconciliation.OfflinePaymentRequest) (*domain.PaymentRecord, error)
	Approve(ctx context.Context, session domain.Session, paymentID uuid.UUID) (*domain.PaymentRecord, error)
	Reject(ctx context.Context, session domain.Session, paymentID uuid.UUID, reason string) (*domain.PaymentRecord, error)
	ListPayments(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) ([]*domain.PaymentRecord, error)
	Receipt(ctx context.Context, session domain.Session, paymentID uuid.UUID) (*domain.Receipt, error)
	CreateInstallmentOrder(ctx context.Context, session domain.Session, subscriptionID uuid.UUID, amount decimal.Decimal) (*domainports.Order, error)
}

// SettlementService defines the port for closing subscriptions with a payout
type SettlementService interface {
	Settle(ctx context.Context, session domain.Session, req *settlement.SettleRequest) (*domain.Settlement, error)
	GetSettlement(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) (*domain.Settlement, error)
}

// ExpiryService defines the port for dashboard access and tier renewals
type ExpiryService interface {
	CheckAccess(ctx context.Context, session domain.Session) (*expiry.AccessDecision, error)
	RequireAccess(ctx context.Context, session domain.Session) error
	Merchant(ctx context.Context, session domain.Session) (*domain.MerchantAccount, error)
	CreateRenewalOrder(ctx context.Context, session domain.Session, target domain.Tier, period domain.BillingPeriod) (*domainports.Order, error)
	Renew(ctx context.Context, session domain.Session, req *expiry.RenewRequest) (*domain.RenewalRecord, error)
	RenewalHistory(ctx context.Context, session domain.Session) ([]*domain.RenewalRecord, error)
}

var (
	_ ChitPlanService       = (*chitplan.Service)(nil)
	_ LedgerService         = (*ledger.Service)(nil)
	_ ReconciliationService = (*reconciliation.Service)(nil)
	_ SettlementService     = (*settlement.Service)(nil)
	_ ExpiryService         = (*expiry.Service)(nil)
)
