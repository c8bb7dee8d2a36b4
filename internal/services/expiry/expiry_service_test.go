package expiry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/adapters/memory"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/services/expiry"
	"github.com/kevin07696/chit-service/internal/services/tier"
	"github.com/kevin07696/chit-service/internal/testutil/fixtures"
	"github.com/kevin07696/chit-service/internal/testutil/mocks"
	"github.com/kevin07696/chit-service/pkg/timeutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	merchants *memory.MerchantRepository
	plans     *memory.ChitPlanRepository
	gateway   *mocks.MockPaymentGateway
	merchant  *domain.MerchantAccount
	session   domain.Session
	service   *expiry.Service
}

func setupService(t *testing.T, merchant *domain.MerchantAccount, planCount int) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	env := &testEnv{
		merchants: memory.NewMerchantRepository(store),
		plans:     memory.NewChitPlanRepository(store),
		gateway:   new(mocks.MockPaymentGateway),
		merchant:  merchant,
		session:   domain.Session{Subject: "merchant", MerchantID: merchant.ID},
	}
	require.NoError(t, env.merchants.Create(ctx, nil, merchant))
	for i := 0; i < planCount; i++ {
		require.NoError(t, env.plans.Create(ctx, nil, fixtures.NewChitPlan().WithMerchantID(merchant.ID).Build()))
	}

	env.service = expiry.NewService(
		store,
		env.merchants,
		env.plans,
		memory.NewRenewalRepository(store),
		env.gateway,
		tier.NewPolicy(nil),
		"INR",
		timeutil.NewFixedClock(now),
		zap.NewNop(),
	)
	return env
}

// expectPaid registers a verified checkout for a renewal order
func (e *testEnv) expectPaid(orderID string, target domain.Tier, period domain.BillingPeriod) {
	price, _ := tier.NewPolicy(nil).Price(target, period)
	e.gateway.On("Verify", mock.Anything, mock.MatchedBy(func(r *ports.VerifyRequest) bool {
		return r.OrderID == orderID
	})).Return(&ports.VerificationResult{Verified: true}, nil)
	e.gateway.ExpectOrder(orderID, price, map[string]string{
		"purpose":     "renewal",
		"merchant_id": e.merchant.ID.String(),
		"target_tier": string(target),
		"period":      string(period),
	})
}

func renewal(target domain.Tier, period domain.BillingPeriod, orderID, paymentID string) *expiry.RenewRequest {
	return &expiry.RenewRequest{
		TargetTier: target,
		Period:     period,
		OrderID:    orderID,
		PaymentID:  paymentID,
		Signature:  "sig",
	}
}

func TestEvaluate_GracePeriod(t *testing.T) {
	tests := []struct {
		name        string
		merchant    *domain.MerchantAccount
		wantAllowed bool
		wantExpired bool
	}{
		{
			name:        "expired two days ago is blocked",
			merchant:    fixtures.NewMerchant().Expired(now.Add(-48 * time.Hour)).Build(),
			wantAllowed: false,
			wantExpired: true,
		},
		{
			name:        "expired half a day ago is within grace",
			merchant:    fixtures.NewMerchant().Expired(now.Add(-12 * time.Hour)).Build(),
			wantAllowed: true,
			wantExpired: true,
		},
		{
			name:        "exactly one day is within grace",
			merchant:    fixtures.NewMerchant().Expired(now.Add(-24 * time.Hour)).Build(),
			wantAllowed: true,
			wantExpired: true,
		},
		{
			name:        "active status with lapsed date is allowed",
			merchant:    fixtures.NewMerchant().WithExpiry(now.AddDate(0, 0, -3)).Build(),
			wantAllowed: true,
			wantExpired: false,
		},
		{
			name:        "active subscription",
			merchant:    fixtures.NewMerchant().WithExpiry(now.AddDate(0, 0, 10)).Build(),
			wantAllowed: true,
			wantExpired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := expiry.Evaluate(tt.merchant, now)
			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantExpired, decision.Expired)
		})
	}
}

func TestRequireAccess(t *testing.T) {
	ctx := context.Background()

	env := setupService(t, fixtures.NewMerchant().Expired(now.Add(-48*time.Hour)).Build(), 0)
	err := env.service.RequireAccess(ctx, env.session)
	require.ErrorIs(t, err, domain.ErrAccessBlocked)

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Contains(t, domainErr.Remediation, "renew your subscription")

	env = setupService(t, fixtures.NewMerchant().Expired(now.Add(-12*time.Hour)).Build(), 0)
	assert.NoError(t, env.service.RequireAccess(ctx, env.session))

	env = setupService(t, fixtures.NewMerchant().WithExpiry(now.AddDate(0, 0, -3)).Build(), 0)
	assert.NoError(t, env.service.RequireAccess(ctx, env.session))

	err = env.service.RequireAccess(ctx, domain.Session{MerchantID: uuid.New()})
	assert.ErrorIs(t, err, domain.ErrMerchantNotFound)
}

func TestCheckAccess_ReadsFreshMerchant(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, fixtures.NewMerchant().Expired(now.AddDate(0, 0, -5)).Build(), 0)

	decision, err := env.service.CheckAccess(ctx, env.session)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	require.NoError(t, env.merchants.UpdateSubscription(ctx, nil, env.merchant.ID,
		domain.TierBasic, now.AddDate(0, 1, 0), domain.MerchantSubscriptionActive))

	decision, err = env.service.CheckAccess(ctx, env.session)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRenew_DowngradeBlockedUntilPlansDeleted(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, fixtures.NewMerchant().WithTier(domain.TierStandard).Build(), 5)

	_, err := env.service.Renew(ctx, env.session, renewal(domain.TierBasic, domain.BillingPeriodMonthly, "order_1", "pay_1"))
	require.ErrorIs(t, err, domain.ErrDowngradeBlocked)
	excess, ok := domain.DetailInt(err, "excess_count")
	require.True(t, ok)
	assert.Equal(t, 2, excess)
	env.gateway.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)

	plans, err := env.plans.ListByMerchant(ctx, nil, env.merchant.ID)
	require.NoError(t, err)
	require.NoError(t, env.plans.Delete(ctx, nil, plans[0].ID))
	require.NoError(t, env.plans.Delete(ctx, nil, plans[1].ID))

	env.expectPaid("order_1", domain.TierBasic, domain.BillingPeriodMonthly)
	record, err := env.service.Renew(ctx, env.session, renewal(domain.TierBasic, domain.BillingPeriodMonthly, "order_1", "pay_1"))
	require.NoError(t, err)
	assert.Equal(t, domain.TierStandard, record.FromTier)
	assert.Equal(t, domain.TierBasic, record.ToTier)

	merchant, err := env.merchants.GetByID(ctx, nil, env.merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TierBasic, merchant.Tier)
}

func TestRenew_ExtendsFromLaterOfNowAndExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("lapsed subscription extends from now", func(t *testing.T) {
		env := setupService(t, fixtures.NewMerchant().Expired(now.AddDate(0, 0, -10)).Build(), 0)
		env.expectPaid("order_1", domain.TierPremium, domain.BillingPeriodYearly)

		record, err := env.service.Renew(ctx, env.session, renewal(domain.TierPremium, domain.BillingPeriodYearly, "order_1", "pay_1"))
		require.NoError(t, err)
		assert.True(t, record.NewExpiry.Equal(now.AddDate(1, 0, 0)))
		assert.Equal(t, "19999.00", record.Amount.StringFixed(2))

		merchant, err := env.merchants.GetByID(ctx, nil, env.merchant.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MerchantSubscriptionActive, merchant.SubscriptionStatus)
		assert.Equal(t, domain.TierPremium, merchant.Tier)
		assert.True(t, merchant.SubscriptionExpiryDate.Equal(record.NewExpiry))
		assert.NoError(t, env.service.RequireAccess(ctx, env.session))
	})

	t.Run("early renewal keeps remaining days", func(t *testing.T) {
		expiresAt := now.AddDate(0, 0, 7)
		env := setupService(t, fixtures.NewMerchant().WithExpiry(expiresAt).Build(), 0)
		env.expectPaid("order_1", domain.TierBasic, domain.BillingPeriodMonthly)

		record, err := env.service.Renew(ctx, env.session, renewal(domain.TierBasic, domain.BillingPeriodMonthly, "order_1", "pay_1"))
		require.NoError(t, err)
		assert.True(t, record.PreviousExpiry.Equal(expiresAt))
		assert.True(t, record.NewExpiry.Equal(expiresAt.AddDate(0, 1, 0)))
	})
}

func TestRenew_ReplayedPayment(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, fixtures.NewMerchant().Build(), 0)
	env.expectPaid("order_1", domain.TierBasic, domain.BillingPeriodMonthly)

	first, err := env.service.Renew(ctx, env.session, renewal(domain.TierBasic, domain.BillingPeriodMonthly, "order_1", "pay_1"))
	require.NoError(t, err)

	_, err = env.service.Renew(ctx, env.session, renewal(domain.TierBasic, domain.BillingPeriodMonthly, "order_1", "pay_1"))
	require.ErrorIs(t, err, domain.ErrAlreadyProcessed)

	merchant, err := env.merchants.GetByID(ctx, nil, env.merchant.ID)
	require.NoError(t, err)
	assert.True(t, merchant.SubscriptionExpiryDate.Equal(first.NewExpiry))

	history, err := env.service.RenewalHistory(ctx, env.session)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRenew_VerificationFailsClosed(t *testing.T) {
	ctx := context.Background()

	t.Run("signature rejected", func(t *testing.T) {
		env := setupService(t, fixtures.NewMerchant().Expired(now.AddDate(0, 0, -5)).Build(), 0)
		env.gateway.ExpectRejected("signature mismatch")

		_, err := env.service.Renew(ctx, env.session, renewal(domain.TierBasic, domain.BillingPeriodMonthly, "order_1", "pay_1"))
		require.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)

		merchant, err := env.merchants.GetByID(ctx, nil, env.merchant.ID)
		require.NoError(t, err)
		assert.True(t, merchant.IsExpired())
	})

	t.Run("order bought a cheaper renewal", func(t *testing.T) {
		env := setupService(t, fixtures.NewMerchant().Build(), 0)
		env.expectPaid("order_1", domain.TierBasic, domain.BillingPeriodMonthly)

		_, err := env.service.Renew(ctx, env.session, renewal(domain.TierPremium, domain.BillingPeriodYearly, "order_1", "pay_1"))
		require.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)

		merchant, err := env.merchants.GetByID(ctx, nil, env.merchant.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TierBasic, merchant.Tier)
	})

	t.Run("invalid tier", func(t *testing.T) {
		env := setupService(t, fixtures.NewMerchant().Build(), 0)
		_, err := env.service.Renew(ctx, env.session, renewal("Gold", domain.BillingPeriodMonthly, "order_1", "pay_1"))
		assert.ErrorIs(t, err, domain.ErrValidationFailed)
	})
}

func TestCreateRenewalOrder(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, fixtures.NewMerchant().Build(), 0)

	env.gateway.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *ports.OrderRequest) bool {
		return req.Amount.Equal(decimal.NewFromInt(9999)) &&
			req.Notes["target_tier"] == "Standard" &&
			req.Notes["period"] == "yearly"
	})).Return(&ports.Order{ID: "order_9", Amount: decimal.NewFromInt(9999), Currency: "INR"}, nil).Once()

	order, err := env.service.CreateRenewalOrder(ctx, env.session, domain.TierStandard, domain.BillingPeriodYearly)
	require.NoError(t, err)
	assert.Equal(t, "order_9", order.ID)
	env.gateway.AssertExpectations(t)
}

func TestCreateRenewalOrder_DowngradeBlocked(t *testing.T) {
	env := setupService(t, fixtures.NewMerchant().WithTier(domain.TierPremium).Build(), 7)

	_, err := env.service.CreateRenewalOrder(context.Background(), env.session, domain.TierBasic, domain.BillingPeriodMonthly)
	require.ErrorIs(t, err, domain.ErrDowngradeBlocked)
	env.gateway.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}
