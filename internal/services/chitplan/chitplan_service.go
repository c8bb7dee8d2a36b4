package chitplan

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/services/tier"
	"github.com/kevin07696/chit-service/pkg/observability"
	"github.com/kevin07696/chit-service/pkg/timeutil"
	"go.uber.org/zap"
)

// Service is the chit plan registry. Creation is gated by the merchant's
// tier quota and KYC status; both checks run under the merchant row lock.
type Service struct {
	tx        ports.TransactionManager
	merchants ports.MerchantRepository
	plans     ports.ChitPlanRepository
	subs      ports.SubscriptionRepository
	cache     ports.PlanCache
	policy    *tier.Policy
	clock     timeutil.Clock
	logger    *zap.Logger
}

// NewService creates a new chit plan service
func NewService(
	tx ports.TransactionManager,
	merchants ports.MerchantRepository,
	plans ports.ChitPlanRepository,
	subs ports.SubscriptionRepository,
	cache ports.PlanCache,
	policy *tier.Policy,
	clock timeutil.Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		tx:        tx,
		merchants: merchants,
		plans:     plans,
		subs:      subs,
		cache:     cache,
		policy:    policy,
		clock:     clock,
		logger:    logger,
	}
}

// Create validates the draft and adds a plan for the session's merchant
func (s *Service) Create(ctx context.Context, session domain.Session, draft domain.PlanDraft) (*domain.ChitPlan, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		observability.RecordPlanOperation("create", domain.OutcomeLabel(err))
		return nil, err
	}

	now := s.clock.Now()
	plan := &domain.ChitPlan{
		ID:         uuid.New(),
		MerchantID: session.MerchantID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	plan.Apply(draft)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		merchant, err := s.merchants.GetByIDForUpdate(ctx, tx, session.MerchantID)
		if err != nil {
			return fmt.Errorf("lock merchant: %w", err)
		}

		count, err := s.plans.CountByMerchant(ctx, tx, merchant.ID)
		if err != nil {
			return fmt.Errorf("count plans: %w", err)
		}

		if decision := s.policy.CreatePlanDecision(merchant, count); !decision.Allowed {
			return decision.Reason
		}

		if err := s.plans.Create(ctx, tx, plan); err != nil {
			return fmt.Errorf("create plan: %w", err)
		}
		return nil
	})
	observability.RecordPlanOperation("create", domain.OutcomeLabel(err))
	if err != nil {
		s.logger.Warn("Chit plan creation refused",
			zap.String("merchant_id", session.MerchantID.String()),
			zap.String("code", string(domain.GetErrorCode(err))),
			zap.Error(err),
		)
		return nil, err
	}

	s.invalidate(ctx, session.MerchantID)

	s.logger.Info("Chit plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("merchant_id", plan.MerchantID.String()),
		zap.String("total_amount", plan.TotalAmount.StringFixed(2)),
		zap.Int("duration_months", plan.DurationMonths),
	)

	return plan, nil
}

// Update applies the draft to an existing plan. Running subscriptions keep
// the terms they enrolled with.
func (s *Service) Update(ctx context.Context, session domain.Session, planID uuid.UUID, draft domain.PlanDraft) (*domain.ChitPlan, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		observability.RecordPlanOperation("update", domain.OutcomeLabel(err))
		return nil, err
	}

	var plan *domain.ChitPlan
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		plan, err = s.plans.GetByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if err := session.Owns(plan.MerchantID); err != nil {
			return err
		}

		plan.Apply(draft)
		plan.UpdatedAt = s.clock.Now()

		if err := s.plans.Update(ctx, tx, plan); err != nil {
			return fmt.Errorf("update plan: %w", err)
		}
		return nil
	})
	observability.RecordPlanOperation("update", domain.OutcomeLabel(err))
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, session.MerchantID)

	s.logger.Info("Chit plan updated",
		zap.String("plan_id", plan.ID.String()),
		zap.String("monthly_amount", plan.MonthlyAmount.StringFixed(2)),
	)

	return plan, nil
}

// Delete removes a plan that has no open subscriptions
func (s *Service) Delete(ctx context.Context, session domain.Session, planID uuid.UUID) error {
	if err := session.Validate(); err != nil {
		return err
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// Same lock as Create so a delete and a create never interleave on the count
		if _, err := s.merchants.GetByIDForUpdate(ctx, tx, session.MerchantID); err != nil {
			return fmt.Errorf("lock merchant: %w", err)
		}

		plan, err := s.plans.GetByID(ctx, tx, planID)
		if err != nil {
			return err
		}
		if err := session.Owns(plan.MerchantID); err != nil {
			return err
		}

		open, err := s.subs.CountOpenByPlan(ctx, tx, planID)
		if err != nil {
			return fmt.Errorf("count open subscriptions: %w", err)
		}
		if open > 0 {
			return domain.NewPlanHasActiveSubscribersError(open)
		}

		return s.plans.Delete(ctx, tx, planID)
	})
	observability.RecordPlanOperation("delete", domain.OutcomeLabel(err))
	if err != nil {
		return err
	}

	s.invalidate(ctx, session.MerchantID)

	s.logger.Info("Chit plan deleted",
		zap.String("plan_id", planID.String()),
		zap.String("merchant_id", session.MerchantID.String()),
	)
	return nil
}

// Get returns one of the session merchant's plans
func (s *Service) Get(ctx context.Context, session domain.Session, planID uuid.UUID) (*domain.ChitPlan, error) {
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
	return plan, nil
}

// List returns the session merchant's plans, read through the plan cache
func (s *Service) List(ctx context.Context, session domain.Session) ([]*domain.ChitPlan, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	plans, found, err := s.cache.GetPlans(ctx, session.MerchantID)
	if err != nil {
		s.logger.Warn("Plan cache read failed, falling back to database",
			zap.String("merchant_id", session.MerchantID.String()),
			zap.Error(err),
		)
	} else if found {
		return plans, nil
	}

	plans, err = s.plans.ListByMerchant(ctx, nil, session.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}

	if err := s.cache.SetPlans(ctx, session.MerchantID, plans); err != nil {
		s.logger.Warn("Plan cache write failed",
			zap.String("merchant_id", session.MerchantID.String()),
			zap.Error(err),
		)
	}
	return plans, nil
}

// invalidate drops the cached plan list; the database stays authoritative
func (s *Service) invalidate(ctx context.Context, merchantID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, merchantID); err != nil {
		s.logger.Warn("Plan cache invalidation failed",
			zap.String("merchant_id", merchantID.String()),
			zap.Error(err),
		)
	}
}
