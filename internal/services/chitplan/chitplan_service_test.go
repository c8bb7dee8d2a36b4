package chitplan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/adapters/cache"
	"github.com/kevin07696/chit-service/internal/adapters/memory"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/kevin07696/chit-service/internal/services/chitplan"
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

type testEnv struct {
	store    *memory.Store
	subs     *memory.SubscriptionRepository
	merchant *domain.MerchantAccount
	session  domain.Session
	service  *chitplan.Service
}

func setupService(t *testing.T, merchant *domain.MerchantAccount, planCache ports.PlanCache) *testEnv {
	t.Helper()
	store := memory.NewStore()
	merchants := memory.NewMerchantRepository(store)
	require.NoError(t, merchants.Create(context.Background(), nil, merchant))

	subs := memory.NewSubscriptionRepository(store)
	svc := chitplan.NewService(
		store,
		merchants,
		memory.NewChitPlanRepository(store),
		subs,
		planCache,
		tier.NewPolicy(nil),
		timeutil.NewFixedClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
		zap.NewNop(),
	)

	return &testEnv{
		store:    store,
		subs:     subs,
		merchant: merchant,
		session:  domain.Session{Subject: "merchant", MerchantID: merchant.ID},
		service:  svc,
	}
}

func TestCreate_ComputesMonthlyInstallment(t *testing.T) {
	env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())

	draft := fixtures.NewPlanDraft()
	draft.TotalAmount = decimal.NewFromInt(5000)
	draft.DurationMonths = 11

	plan, err := env.service.Create(context.Background(), env.session, draft)
	require.NoError(t, err)
	assert.Equal(t, "454.55", plan.MonthlyAmount.StringFixed(2))
	assert.Equal(t, env.merchant.ID, plan.MerchantID)
	assert.NotEqual(t, uuid.Nil, plan.ID)
}

func TestCreate_ValidationNamesField(t *testing.T) {
	env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())

	tests := []struct {
		name   string
		mutate func(d *domain.PlanDraft)
		field  string
	}{
		{"zero total", func(d *domain.PlanDraft) { d.TotalAmount = decimal.Zero }, "total_amount"},
		{"too short", func(d *domain.PlanDraft) { d.DurationMonths = 2 }, "duration_months"},
		{"too long", func(d *domain.PlanDraft) { d.DurationMonths = 61 }, "duration_months"},
		{"bad return type", func(d *domain.PlanDraft) { d.ReturnType = "Silver" }, "return_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := fixtures.NewPlanDraft()
			tt.mutate(&draft)

			_, err := env.service.Create(context.Background(), env.session, draft)
			require.ErrorIs(t, err, domain.ErrValidationFailed)

			var domainErr *domain.DomainError
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, tt.field, domainErr.Details["field"])
		})
	}
}

func TestCreate_QuotaExceeded(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, fixtures.NewMerchant().WithTier(domain.TierBasic).Build(), cache.NewNoopPlanCache())

	for i := 0; i < 3; i++ {
		_, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
		require.NoError(t, err)
	}

	_, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)

	quota, ok := domain.DetailInt(err, "quota")
	require.True(t, ok)
	assert.Equal(t, 3, quota)
	current, ok := domain.DetailInt(err, "current_count")
	require.True(t, ok)
	assert.Equal(t, 3, current)

	plans, err := env.service.List(ctx, env.session)
	require.NoError(t, err)
	assert.Len(t, plans, 3)
}

func TestCreate_KYCCheckedBeforeQuota(t *testing.T) {
	env := setupService(t, fixtures.NewMerchant().WithKYCVerified(false).Build(), cache.NewNoopPlanCache())

	_, err := env.service.Create(context.Background(), env.session, fixtures.NewPlanDraft())
	assert.ErrorIs(t, err, domain.ErrKYCRequired)
}

func TestCreate_ConcurrentCreatesNeverExceedQuota(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, fixtures.NewMerchant().WithTier(domain.TierStandard).Build(), cache.NewNoopPlanCache())

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		refused   int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, domain.ErrQuotaExceeded) {
				refused++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 6, succeeded)
	assert.Equal(t, attempts-6, refused)
}

func TestCreate_UnknownMerchant(t *testing.T) {
	env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())

	_, err := env.service.Create(context.Background(), domain.Session{MerchantID: uuid.New()}, fixtures.NewPlanDraft())
	assert.ErrorIs(t, err, domain.ErrMerchantNotFound)
}

func TestCreate_RequiresSession(t *testing.T) {
	env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())

	_, err := env.service.Create(context.Background(), domain.Session{}, fixtures.NewPlanDraft())
	assert.ErrorIs(t, err, domain.ErrAuthMissing)
}

func TestUpdate_RecomputesInstallmentAndKeepsSubscriptionTerms(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())

	plan, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
	require.NoError(t, err)

	sub := domain.NewSubscription(plan, "user-1", time.Now())
	require.NoError(t, env.subs.Create(ctx, nil, sub))

	draft := fixtures.NewPlanDraft()
	draft.TotalAmount = decimal.NewFromInt(24000)
	updated, err := env.service.Update(ctx, env.session, plan.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, "2000.00", updated.MonthlyAmount.StringFixed(2))

	stored, err := env.subs.GetByID(ctx, nil, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", stored.MonthlyAmount.StringFixed(2))
	assert.Equal(t, "12000.00", stored.TotalAmount.StringFixed(2))
}

func TestUpdate_OtherMerchantsPlan(t *testing.T) {
	ctx := context.Background()
	env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())

	plan, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
	require.NoError(t, err)

	intruder := domain.Session{MerchantID: uuid.New()}
	_, err = env.service.Update(ctx, intruder, plan.ID, fixtures.NewPlanDraft())
	assert.ErrorIs(t, err, domain.ErrAuthMerchantMismatch)

	_, err = env.service.Get(ctx, intruder, plan.ID)
	assert.ErrorIs(t, err, domain.ErrAuthMerchantMismatch)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("blocked while subscriptions are open", func(t *testing.T) {
		env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())
		plan, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
		require.NoError(t, err)

		require.NoError(t, env.subs.Create(ctx, nil, domain.NewSubscription(plan, "user-1", time.Now())))
		withdrawing := domain.NewSubscription(plan, "user-2", time.Now())
		withdrawing.Status = domain.SubscriptionStatusRequestedWithdrawal
		require.NoError(t, env.subs.Create(ctx, nil, withdrawing))

		err = env.service.Delete(ctx, env.session, plan.ID)
		require.ErrorIs(t, err, domain.ErrPlanHasActiveSubscribers)
		open, _ := domain.DetailInt(err, "open_subscriptions")
		assert.Equal(t, 2, open)

		_, err = env.service.Get(ctx, env.session, plan.ID)
		assert.NoError(t, err)
	})

	t.Run("allowed once every subscription is closed", func(t *testing.T) {
		env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())
		plan, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
		require.NoError(t, err)

		settled := domain.NewSubscription(plan, "user-1", time.Now())
		settled.Status = domain.SubscriptionStatusSettled
		require.NoError(t, env.subs.Create(ctx, nil, settled))

		require.NoError(t, env.service.Delete(ctx, env.session, plan.ID))

		_, err = env.service.Get(ctx, env.session, plan.ID)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})

	t.Run("frees a quota slot", func(t *testing.T) {
		env := setupService(t, fixtures.NewMerchant().Build(), cache.NewNoopPlanCache())
		var last *domain.ChitPlan
		for i := 0; i < 3; i++ {
			p, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
			require.NoError(t, err)
			last = p
		}

		require.NoError(t, env.service.Delete(ctx, env.session, last.ID))
		_, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
		assert.NoError(t, err)
	})
}

func TestList_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	merchant := fixtures.NewMerchant().Build()
	planCache := new(mocks.MockPlanCache)
	env := setupService(t, merchant, planCache)

	planCache.On("Invalidate", mock.Anything, merchant.ID).Return(nil).Once()
	_, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
	require.NoError(t, err)

	// miss: load from the repository and populate
	planCache.On("GetPlans", mock.Anything, merchant.ID).Return(nil, false, nil).Once()
	planCache.On("SetPlans", mock.Anything, merchant.ID, mock.MatchedBy(func(p []*domain.ChitPlan) bool {
		return len(p) == 1
	})).Return(nil).Once()

	plans, err := env.service.List(ctx, env.session)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	// hit
	cached := []*domain.ChitPlan{plans[0]}
	planCache.On("GetPlans", mock.Anything, merchant.ID).Return(cached, true, nil).Once()
	plans, err = env.service.List(ctx, env.session)
	require.NoError(t, err)
	assert.Equal(t, cached, plans)

	planCache.AssertExpectations(t)
}

func TestList_CacheFailureFallsBackToRepository(t *testing.T) {
	ctx := context.Background()
	merchant := fixtures.NewMerchant().Build()
	planCache := new(mocks.MockPlanCache)
	env := setupService(t, merchant, planCache)

	planCache.On("Invalidate", mock.Anything, merchant.ID).Return(errors.New("redis down"))
	_, err := env.service.Create(ctx, env.session, fixtures.NewPlanDraft())
	require.NoError(t, err)

	planCache.On("GetPlans", mock.Anything, merchant.ID).Return(nil, false, errors.New("redis down"))
	planCache.On("SetPlans", mock.Anything, merchant.ID, mock.Anything).Return(errors.New("redis down"))

	plans, err := env.service.List(ctx, env.session)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}
