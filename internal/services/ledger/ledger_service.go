package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/services/expiry"
	"github.com/kevin07696/chit-service/pkg/observability"
	"github.com/kevin07696/chit-service/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SubscriptionView is a subscription with its derived ledger fields as of AsOf
type SubscriptionView struct {
	*domain.Subscription
	Summary domain.LedgerSummary `json:"summary"`
	AsOf    time.Time            `json:"as_of"`
}

// Audit compares the stored paid total with the sum of completed payments
type Audit struct {
	StoredTotal    decimal.Decimal `json:"stored_total"`
	CompletedTotal decimal.Decimal `json:"completed_total"`
	Drift          decimal.Decimal `json:"drift"` // stored - completed
	SubscriptionID uuid.UUID       `json:"subscription_id"`
	Consistent     bool            `json:"consistent"`
}

// Service owns subscriber enrollment and the subscription state machine.
// Payment credits are applied by the reconciliation service.
type Service struct {
	tx          ports.TransactionManager
	merchants   ports.MerchantRepository
	plans       ports.ChitPlanRepository
	subs        ports.SubscriptionRepository
	payments    ports.PaymentRepository
	withdrawals ports.WithdrawalRepository
	clock       timeutil.Clock
	logger      *zap.Logger
}

// NewService creates a new subscription ledger service
func NewService(
	tx ports.TransactionManager,
	merchants ports.MerchantRepository,
	plans ports.ChitPlanRepository,
	subs ports.SubscriptionRepository,
	payments ports.PaymentRepository,
	withdrawals ports.WithdrawalRepository,
	clock timeutil.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		tx:          tx,
		merchants:   merchants,
		plans:       plans,
		subs:        subs,
		payments:    payments,
		withdrawals: withdrawals,
		clock:       clock,
		logger:      logger,
	}
}

// Enroll subscribes userID to one of the session merchant's plans. The plan's
// merchant must still have dashboard access.
func (s *Service) Enroll(ctx context.Context, session domain.Session, planID uuid.UUID, userID string) (*SubscriptionView, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "must not be empty")
	}

	var sub *domain.Subscription
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		plan, err := s.plans.GetByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if err := session.Owns(plan.MerchantID); err != nil {
			return err
		}

		merchant, err := s.merchants.GetByID(ctx, tx, plan.MerchantID)
		if err != nil {
			return err
		}
		if decision := expiry.Evaluate(merchant, s.clock.Now()); !decision.Allowed {
			return domain.NewAccessBlockedError(decision.DaysSinceExpiry)
		}

		sub = domain.NewSubscription(plan, userID, s.clock.Now())
		return s.subs.Create(ctx, tx, sub)
	})
	if err != nil {
		return nil, err
	}

	observability.RecordSubscriptionTransition(string(domain.SubscriptionStatusActive))
	s.logger.Info("Subscriber enrolled",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan_id", planID.String()),
		zap.String("user_id", userID),
	)

	return s.view(sub), nil
}

// Get returns a subscription with its derived ledger fields
func (s *Service) Get(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) (*SubscriptionView, error) {
	sub, err := s.load(ctx, session, subscriptionID)
	if err != nil {
		return nil, err
	}
	return s.view(sub), nil
}

// ListByPlan returns every subscription of one of the session merchant's plans
func (s *Service) ListByPlan(ctx context.Context, session domain.Session, planID uuid.UUID) ([]*SubscriptionView, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	plan, err := s.plans.GetByID(ctx, nil, planID)
	if err != nil {
		return nil, err
	}
	if err := session.Owns(plan.MerchantID); err != nil {
		return nil, err
	}

	subs, err := s.subs.ListByPlan(ctx, nil, planID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	views := make([]*SubscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, s.view(sub))
	}
	return views, nil
}

// RequestWithdrawal moves an active subscription to requested_withdrawal and
// records where the payout should go
func (s *Service) RequestWithdrawal(ctx context.Context, session domain.Session, subscriptionID uuid.UUID, bank domain.BankDetails, message string) (*domain.WithdrawalRequest, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}

	var req *domain.WithdrawalRequest
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sub, err := s.subs.GetByIDForUpdate(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if err := session.Owns(sub.MerchantID); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := sub.RequestWithdrawal(now); err != nil {
			return err
		}
		if err := s.subs.Update(ctx, tx, sub); err != nil {
			return err
		}

		req = &domain.WithdrawalRequest{
			ID:             uuid.New(),
			SubscriptionID: sub.ID,
			Bank:           bank,
			Message:        message,
			CreatedAt:      now,
		}
		return s.withdrawals.Create(ctx, tx, req)
	})
	if err != nil {
		if domain.IsStaleViewError(err) {
			observability.RecordStaleMutation("request_withdrawal", string(domain.GetErrorCode(err)))
		}
		return nil, err
	}

	observability.RecordSubscriptionTransition(string(domain.SubscriptionStatusRequestedWithdrawal))
	s.logger.Info("Withdrawal requested",
		zap.String("subscription_id", subscriptionID.String()),
		zap.String("withdrawal_id", req.ID.String()),
	)
	return req, nil
}

// AuditTotals re-sums the completed payments of a subscription and reports
// any drift from the stored paid total
func (s *Service) AuditTotals(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) (*Audit, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	var audit *Audit
	err := s.tx.WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sub, err := s.subs.GetByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if err := session.Owns(sub.MerchantID); err != nil {
			return err
		}

		completed, err := s.payments.SumCompleted(ctx, tx, subscriptionID)
		if err != nil {
			return fmt.Errorf("sum completed payments: %w", err)
		}

		drift := sub.TotalAmountPaid.Sub(completed)
		audit = &Audit{
			SubscriptionID: subscriptionID,
			StoredTotal:    sub.TotalAmountPaid,
			CompletedTotal: completed,
			Drift:          drift,
			Consistent:     drift.IsZero(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !audit.Consistent {
		s.logger.Error("Ledger drift detected",
			zap.String("subscription_id", subscriptionID.String()),
			zap.String("stored_total", audit.StoredTotal.StringFixed(2)),
			zap.String("completed_total", audit.CompletedTotal.StringFixed(2)),
		)
	}
	return audit, nil
}

func (s *Service) load(ctx context.Context, session domain.Session, subscriptionID uuid.UUID) (*domain.Subscription, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	sub, err := s.subs.GetByID(ctx, nil, subscriptionID)
	if err != nil {
		return nil, err
	}
	if err := session.Owns(sub.MerchantID); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *Service) view(sub *domain.Subscription) *SubscriptionView {
	now := s.clock.Now()
	return &SubscriptionView{
		Subscription: sub,
		Summary:      sub.Summarize(now),
		AsOf:         now,
	}
}
