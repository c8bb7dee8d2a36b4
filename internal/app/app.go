package app

import (
	"github.com/kevin07696/chit-service/internal/adapters/cache"
	"github.com/kevin07696/chit-service/internal/adapters/memory"
	"github.com/kevin07696/chit-service/internal/adapters/postgres"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/handlers"
	"github.com/kevin07696/chit-service/internal/services/chitplan"
	"github.com/kevin07696/chit-service/internal/services/expiry"
	"github.com/kevin07696/chit-service/internal/services/ledger"
	"github.com/kevin07696/chit-service/internal/services/reconciliation"
	"github.com/kevin07696/chit-service/internal/services/settlement"
	"github.com/kevin07696/chit-service/internal/services/tier"
	"github.com/kevin07696/chit-service/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Repositories is one storage backend's set of repositories
type Repositories struct {
	Tx            ports.TransactionManager
	Merchants     ports.MerchantRepository
	Renewals      ports.RenewalRepository
	Plans         ports.ChitPlanRepository
	Subscriptions ports.SubscriptionRepository
	Payments      ports.PaymentRepository
	Withdrawals   ports.WithdrawalRepository
	Settlements   ports.SettlementRepository
}

// NewMemoryRepositories backs every repository with one in-memory store
func NewMemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Tx:            store,
		Merchants:     memory.NewMerchantRepository(store),
		Renewals:      memory.NewRenewalRepository(store),
		Plans:         memory.NewChitPlanRepository(store),
		Subscriptions: memory.NewSubscriptionRepository(store),
		Payments:      memory.NewPaymentRepository(store),
		Withdrawals:   memory.NewWithdrawalRepository(store),
		Settlements:   memory.NewSettlementRepository(store),
	}
}

// NewPostgresRepositories backs every repository with PostgreSQL
func NewPostgresRepositories(db *postgres.DB) Repositories {
	return Repositories{
		Tx:            db,
		Merchants:     postgres.NewMerchantRepository(db),
		Renewals:      postgres.NewRenewalRepository(db),
		Plans:         postgres.NewChitPlanRepository(db),
		Subscriptions: postgres.NewSubscriptionRepository(db),
		Payments:      postgres.NewPaymentRepository(db),
		Withdrawals:   postgres.NewWithdrawalRepository(db),
		Settlements:   postgres.NewSettlementRepository(db),
	}
}

// Options configures the services beyond storage
type Options struct {
	Gateway        ports.PaymentGateway
	PlanCache      ports.PlanCache // nil disables caching
	Policy         *tier.Policy    // nil selects default pricing
	Clock          timeutil.Clock  // nil selects the real clock
	CommissionRate decimal.Decimal
	Currency       string
}

// NewServices wires the application services over repos
func NewServices(repos Repositories, opts Options, logger *zap.Logger) handlers.Services {
	policy := opts.Policy
	if policy == nil {
		policy = tier.NewPolicy(nil)
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	planCache := opts.PlanCache
	if planCache == nil {
		planCache = cache.NewNoopPlanCache()
	}

	return handlers.Services{
		Plans: chitplan.NewService(
			repos.Tx, repos.Merchants, repos.Plans, repos.Subscriptions,
			planCache, policy, clock, logger.Named("chitplan"),
		),
		Ledger: ledger.NewService(
			repos.Tx, repos.Merchants, repos.Plans, repos.Subscriptions, repos.Payments,
			repos.Withdrawals, clock, logger.Named("ledger"),
		),
		Reconciliation: reconciliation.NewService(
			repos.Tx, repos.Merchants, repos.Subscriptions, repos.Payments, opts.Gateway,
			reconciliation.Config{CommissionRate: opts.CommissionRate, Currency: opts.Currency},
			clock, logger.Named("reconciliation"),
		),
		Settlement: settlement.NewService(
			repos.Tx, repos.Subscriptions, repos.Withdrawals, repos.Settlements,
			clock, logger.Named("settlement"),
		),
		Expiry: expiry.NewService(
			repos.Tx, repos.Merchants, repos.Plans, repos.Renewals, opts.Gateway,
			policy, opts.Currency, clock, logger.Named("expiry"),
		),
		Policy: policy,
	}
}
