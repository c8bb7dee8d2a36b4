package expiry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/services/checkout"
	"github.com/kevin07696/chit-service/internal/services/tier"
	"github.com/kevin07696/chit-service/pkg/observability"
	"github.com/kevin07696/chit-service/pkg/timeutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GraceDays is how long an expired merchant keeps dashboard access
const GraceDays = 1.0

// AccessDecision is the outcome of an access check
type AccessDecision struct {
	ExpiresAt       time.Time `json:"expires_at"`
	DaysSinceExpiry float64   `json:"days_since_expiry"`
	Expired         bool      `json:"expired"`
	Allowed         bool      `json:"allowed"`
}

// RenewRequest renews or changes the merchant's tier after a gateway checkout
type RenewRequest struct {
	TargetTier domain.Tier
	Period     domain.BillingPeriod
	OrderID    string
	PaymentID  string
	Signature  string
}

// Service guards dashboard access on the merchant's platform subscription
// and applies paid renewals
type Service struct {
	tx        ports.TransactionManager
	merchants ports.MerchantRepository
	plans     ports.ChitPlanRepository
	renewals  ports.RenewalRepository
	gateway   ports.PaymentGateway
	policy    *tier.Policy
	currency  string
	clock     timeutil.Clock
	logger    *zap.Logger
}

// NewService creates a new expiry guard
func NewService(
	tx ports.TransactionManager,
	merchants ports.MerchantRepository,
	plans ports.ChitPlanRepository,
	renewals ports.RenewalRepository,
	gateway ports.PaymentGateway,
	policy *tier.Policy,
	currency string,
	clock timeutil.Clock,
	logger *zap.Logger,
) *Service {
	if currency == "" {
		currency = "INR"
	}
	return &Service{
		tx:        tx,
		merchants: merchants,
		plans:     plans,
		renewals:  renewals,
		gateway:   gateway,
		policy:    policy,
		currency:  currency,
		clock:     clock,
		logger:    logger,
	}
}

// Evaluate decides access for a merchant as of now. Only a merchant whose
// subscription status is expired can be blocked, and only once the expiry
// date is more than GraceDays old.
func Evaluate(m *domain.MerchantAccount, now time.Time) AccessDecision {
	diffDays := timeutil.DaysSince(m.SubscriptionExpiryDate, now)
	expired := m.IsExpired()
	return AccessDecision{
		ExpiresAt:       m.SubscriptionExpiryDate,
		DaysSinceExpiry: diffDays,
		Expired:         expired,
		Allowed:         !(expired && diffDays > GraceDays),
	}
}

// CheckAccess re-reads the merchant and evaluates access
func (s *Service) CheckAccess(ctx context.Context, session domain.Session) (*AccessDecision, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	merchant, err := s.merchants.GetByID(ctx, nil, session.MerchantID)
	if err != nil {
		return nil, err
	}

	decision := Evaluate(merchant, s.clock.Now())
	if decision.Allowed {
		observability.RecordAccessDecision("allowed")
	} else {
		observability.RecordAccessDecision("blocked")
	}
	return &decision, nil
}

// RequireAccess returns domain.ErrAccessBlocked when the merchant is past
// the grace period
func (s *Service) RequireAccess(ctx context.Context, session domain.Session) error {
	decision, err := s.CheckAccess(ctx, session)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		s.logger.Info("Dashboard access blocked",
			zap.String("merchant_id", session.MerchantID.String()),
			zap.Float64("days_since_expiry", decision.DaysSinceExpiry),
		)
		return domain.NewAccessBlockedError(decision.DaysSinceExpiry)
	}
	return nil
}

// Merchant returns the session's merchant account
func (s *Service) Merchant(ctx context.Context, session domain.Session) (*domain.MerchantAccount, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	return s.merchants.GetByID(ctx, nil, session.MerchantID)
}

// CreateRenewalOrder opens a gateway order priced for the target tier and period
func (s *Service) CreateRenewalOrder(ctx context.Context, session domain.Session, target domain.Tier, period domain.BillingPeriod) (*ports.Order, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	price, err := s.policy.Price(target, period)
	if err != nil {
		return nil, err
	}
	if err := s.checkDowngrade(ctx, nil, session.MerchantID, target); err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, &ports.OrderRequest{
		Amount:   price,
		Currency: s.currency,
		Receipt:  session.MerchantID.String(),
		Notes:    renewalNotes(session.MerchantID, target, period),
	})
	if err != nil {
		s.logger.Error("Renewal order creation failed",
			zap.String("merchant_id", session.MerchantID.String()),
			zap.Error(err),
		)
		e := domain.WrapError(domain.ErrorCodeGatewayError, "could not create renewal order", err).
			WithRemediation("retry the renewal checkout")
		e.Retryable = true
		return nil, e
	}
	return order, nil
}

// Renew applies a paid renewal. The downgrade check runs before the gateway
// call and again under the merchant row lock, where tier, expiry and status
// are written in one statement together with the renewal record.
func (s *Service) Renew(ctx context.Context, session domain.Session, req *RenewRequest) (*domain.RenewalRecord, error) {
	record, err := s.renew(ctx, session, req)
	observability.RecordRenewal(string(req.TargetTier), string(req.Period), domain.OutcomeLabel(err))
	if err != nil {
		s.logger.Warn("Renewal refused",
			zap.String("merchant_id", session.MerchantID.String()),
			zap.String("target_tier", string(req.TargetTier)),
			zap.String("code", string(domain.GetErrorCode(err))),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Merchant subscription renewed",
		zap.String("merchant_id", record.MerchantID.String()),
		zap.String("from_tier", string(record.FromTier)),
		zap.String("to_tier", string(record.ToTier)),
		zap.Time("new_expiry", record.NewExpiry),
	)
	return record, nil
}

func (s *Service) renew(ctx context.Context, session domain.Session, req *RenewRequest) (*domain.RenewalRecord, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	price, err := s.policy.Price(req.TargetTier, req.Period)
	if err != nil {
		return nil, err
	}
	confirmation := &ports.VerifyRequest{OrderID: req.OrderID, PaymentID: req.PaymentID, Signature: req.Signature}
	if err := checkout.ValidateConfirmation(confirmation); err != nil {
		return nil, err
	}

	if err := s.checkDowngrade(ctx, nil, session.MerchantID, req.TargetTier); err != nil {
		return nil, err
	}

	err = checkout.Verify(ctx, s.gateway, "renewal", confirmation, func(order *ports.Order) string {
		if !order.Amount.Equal(price) {
			return "order amount does not match the renewal price"
		}
		want := renewalNotes(session.MerchantID, req.TargetTier, req.Period)
		for k, v := range want {
			if order.Notes[k] != v {
				return "order was opened for a different renewal"
			}
		}
		return ""
	})
	if err != nil {
		return nil, err
	}

	var record *domain.RenewalRecord
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		merchant, err := s.merchants.GetByIDForUpdate(ctx, tx, session.MerchantID)
		if err != nil {
			return err
		}
		if err := s.checkDowngrade(ctx, tx, merchant.ID, req.TargetTier); err != nil {
			return err
		}

		now := s.clock.Now()
		record = &domain.RenewalRecord{
			ID:               uuid.New(),
			MerchantID:       merchant.ID,
			FromTier:         merchant.Tier,
			ToTier:           req.TargetTier,
			Period:           req.Period,
			Amount:           price,
			GatewayOrderID:   req.OrderID,
			GatewayPaymentID: req.PaymentID,
			PreviousExpiry:   merchant.SubscriptionExpiryDate,
			NewExpiry:        NextExpiry(merchant.SubscriptionExpiryDate, now, req.Period),
			CreatedAt:        now,
		}
		if err := s.renewals.Create(ctx, tx, record); err != nil {
			return err
		}
		return s.merchants.UpdateSubscription(ctx, tx, merchant.ID, req.TargetTier, record.NewExpiry, domain.MerchantSubscriptionActive)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// RenewalHistory lists the session merchant's renewals newest first
func (s *Service) RenewalHistory(ctx context.Context, session domain.Session) ([]*domain.RenewalRecord, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	records, err := s.renewals.ListByMerchant(ctx, nil, session.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("list renewals: %w", err)
	}
	return records, nil
}

// Price returns the renewal price for a tier and period
func (s *Service) Price(target domain.Tier, period domain.BillingPeriod) (decimal.Decimal, error) {
	return s.policy.Price(target, period)
}

// NextExpiry extends the later of now and the current expiry by one period
func NextExpiry(currentExpiry, now time.Time, period domain.BillingPeriod) time.Time {
	return period.Extend(timeutil.Later(now, currentExpiry))
}

func (s *Service) checkDowngrade(ctx context.Context, db ports.DBTX, merchantID uuid.UUID, target domain.Tier) error {
	count, err := s.plans.CountByMerchant(ctx, db, merchantID)
	if err != nil {
		return fmt.Errorf("count plans: %w", err)
	}
	if decision := s.policy.CanDowngradeTo(target, count); !decision.Allowed {
		return decision.Reason
	}
	return nil
}

func renewalNotes(merchantID uuid.UUID, target domain.Tier, period domain.BillingPeriod) map[string]string {
	return map[string]string{
		"purpose":     "renewal",
		"merchant_id": merchantID.String(),
		"target_tier": string(target),
		"period":      string(period),
	}
}
