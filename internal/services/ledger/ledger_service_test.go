package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/adapters/memory"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/services/ledger"
	"github.com/kevin07696/chit-service/internal/testutil/fixtures"
	"github.com/kevin07696/chit-service/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var joined = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	clock     *timeutil.FixedClock
	merchants *memory.MerchantRepository
	plans     *memory.ChitPlanRepository
	subs      *memory.SubscriptionRepository
	payments  *memory.PaymentRepository
	plan      *domain.ChitPlan
	session   domain.Session
	service   *ledger.Service
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	merchantID := uuid.New()
	plan := fixtures.NewChitPlan().WithMerchantID(merchantID).Build()

	merchants := memory.NewMerchantRepository(store)
	require.NoError(t, merchants.Create(context.Background(), nil,
		fixtures.NewMerchant().WithID(merchantID).WithExpiry(joined.AddDate(1, 0, 0)).Build()))

	plans := memory.NewChitPlanRepository(store)
	require.NoError(t, plans.Create(context.Background(), nil, plan))

	env := &testEnv{
		clock:     timeutil.NewFixedClock(joined),
		merchants: merchants,
		plans:     plans,
		subs:      memory.NewSubscriptionRepository(store),
		payments:  memory.NewPaymentRepository(store),
		plan:      plan,
		session:   domain.Session{Subject: "merchant", MerchantID: merchantID},
	}
	env.service = ledger.NewService(
		store,
		merchants,
		plans,
		env.subs,
		env.payments,
		memory.NewWithdrawalRepository(store),
		env.clock,
		zaptest.NewLogger(t),
	)
	return env
}

func validBank() domain.BankDetails {
	return domain.BankDetails{
		AccountHolder: "Asha Rao",
		AccountNumber: "001234567890",
		IFSC:          "HDFC0000123",
		BankName:      "HDFC Bank",
	}
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	view, err := env.service.Enroll(ctx, env.session, env.plan.ID, "user-42")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, view.Status)
	assert.Equal(t, env.plan.MonthlyAmount, view.MonthlyAmount)
	assert.Equal(t, env.plan.PlanName, view.PlanName)
	assert.True(t, view.TotalAmountPaid.IsZero())
	assert.Equal(t, 0, view.Summary.MonthsDue)

	_, err = env.service.Enroll(ctx, env.session, env.plan.ID, "user-42")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestEnroll_Rejections(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	_, err := env.service.Enroll(ctx, env.session, env.plan.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = env.service.Enroll(ctx, env.session, uuid.New(), "user-1")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)

	_, err = env.service.Enroll(ctx, domain.Session{MerchantID: uuid.New()}, env.plan.ID, "user-1")
	assert.ErrorIs(t, err, domain.ErrAuthMerchantMismatch)

	require.NoError(t, env.plans.Delete(ctx, nil, env.plan.ID))
	_, err = env.service.Enroll(ctx, env.session, env.plan.ID, "user-1")
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
}

func TestEnroll_BlockedMerchant(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	require.NoError(t, env.merchants.UpdateSubscription(ctx, nil, env.session.MerchantID,
		domain.TierStandard, joined.AddDate(0, 0, -3), domain.MerchantSubscriptionExpired))

	_, err := env.service.Enroll(ctx, env.session, env.plan.ID, "user-7")
	assert.ErrorIs(t, err, domain.ErrAccessBlocked)

	list, err := env.subs.ListByPlan(ctx, nil, env.plan.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGet_DerivesLedgerFields(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	view, err := env.service.Enroll(ctx, env.session, env.plan.ID, "user-1")
	require.NoError(t, err)

	// One installment of 1000 paid, three months elapsed
	sub, err := env.subs.GetByID(ctx, nil, view.ID)
	require.NoError(t, err)
	_, err = sub.Credit(fixtures.Amount("1000"), joined)
	require.NoError(t, err)
	require.NoError(t, env.subs.Update(ctx, nil, sub))

	env.clock.Set(joined.AddDate(0, 3, 0))
	view, err = env.service.Get(ctx, env.session, view.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, view.Summary.MonthsElapsed)
	assert.Equal(t, "3000.00", view.Summary.ExpectedPaidToDate.StringFixed(2))
	assert.Equal(t, "2000.00", view.Summary.PendingAmount.StringFixed(2))
	assert.Equal(t, 1, view.Summary.InstallmentsPaid)
	assert.Equal(t, 2, view.Summary.MonthsDue)

	_, err = env.service.Get(ctx, domain.Session{MerchantID: uuid.New()}, view.ID)
	assert.ErrorIs(t, err, domain.ErrAuthMerchantMismatch)

	_, err = env.service.Get(ctx, env.session, uuid.New())
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

func TestListByPlan(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	for _, user := range []string{"user-1", "user-2", "user-3"} {
		_, err := env.service.Enroll(ctx, env.session, env.plan.ID, user)
		require.NoError(t, err)
	}

	views, err := env.service.ListByPlan(ctx, env.session, env.plan.ID)
	require.NoError(t, err)
	assert.Len(t, views, 3)

	_, err = env.service.ListByPlan(ctx, domain.Session{MerchantID: uuid.New()}, env.plan.ID)
	assert.ErrorIs(t, err, domain.ErrAuthMerchantMismatch)
}

func TestRequestWithdrawal(t *testing.T) {
	ctx := context.Background()

	t.Run("active subscription moves to requested_withdrawal", func(t *testing.T) {
		env := setupService(t)
		view, err := env.service.Enroll(ctx, env.session, env.plan.ID, "user-1")
		require.NoError(t, err)

		req, err := env.service.RequestWithdrawal(ctx, env.session, view.ID, validBank(), "moving cities")
		require.NoError(t, err)
		assert.True(t, req.IsOpen())
		assert.Equal(t, "moving cities", req.Message)

		view, err = env.service.Get(ctx, env.session, view.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusRequestedWithdrawal, view.Status)

		_, err = env.service.RequestWithdrawal(ctx, env.session, view.ID, validBank(), "again")
		assert.ErrorIs(t, err, domain.ErrSubscriptionWithdrawalPending)
	})

	t.Run("missing bank details", func(t *testing.T) {
		env := setupService(t)
		view, err := env.service.Enroll(ctx, env.session, env.plan.ID, "user-1")
		require.NoError(t, err)

		bank := validBank()
		bank.IFSC = ""
		_, err = env.service.RequestWithdrawal(ctx, env.session, view.ID, bank, "")
		assert.ErrorIs(t, err, domain.ErrValidationFailed)

		view, err = env.service.Get(ctx, env.session, view.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.SubscriptionStatusActive, view.Status)
	})

	t.Run("closed subscription", func(t *testing.T) {
		env := setupService(t)
		sub := fixtures.NewSubscriptionForPlan(env.plan).WithStatus(domain.SubscriptionStatusCompleted).Build()
		require.NoError(t, env.subs.Create(ctx, nil, sub))

		_, err := env.service.RequestWithdrawal(ctx, env.session, sub.ID, validBank(), "")
		assert.ErrorIs(t, err, domain.ErrSubscriptionClosed)
	})
}

func TestAuditTotals(t *testing.T) {
	ctx := context.Background()
	env := setupService(t)

	view, err := env.service.Enroll(ctx, env.session, env.plan.ID, "user-1")
	require.NoError(t, err)

	record := func(amount string, status domain.PaymentStatus) {
		require.NoError(t, env.payments.Create(ctx, nil, &domain.PaymentRecord{
			ID:             uuid.New(),
			SubscriptionID: view.ID,
			MerchantID:     env.session.MerchantID,
			Amount:         fixtures.Amount(amount),
			Channel:        domain.PaymentChannelOffline,
			Status:         status,
			CreatedAt:      joined,
		}))
	}
	record("1000", domain.PaymentStatusCompleted)
	record("500", domain.PaymentStatusRejected)
	record("700", domain.PaymentStatusPending)

	sub, err := env.subs.GetByID(ctx, nil, view.ID)
	require.NoError(t, err)
	_, err = sub.Credit(fixtures.Amount("1000"), joined)
	require.NoError(t, err)
	require.NoError(t, env.subs.Update(ctx, nil, sub))

	audit, err := env.service.AuditTotals(ctx, env.session, view.ID)
	require.NoError(t, err)
	assert.True(t, audit.Consistent)
	assert.Equal(t, "1000.00", audit.CompletedTotal.StringFixed(2))

	// Stored total drifts when a credit is written without its payment record
	_, err = sub.Credit(fixtures.Amount("250"), joined)
	require.NoError(t, err)
	require.NoError(t, env.subs.Update(ctx, nil, sub))

	audit, err = env.service.AuditTotals(ctx, env.session, view.ID)
	require.NoError(t, err)
	assert.False(t, audit.Consistent)
	assert.Equal(t, "250.00", audit.Drift.StringFixed(2))
}
