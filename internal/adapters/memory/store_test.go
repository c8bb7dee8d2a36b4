package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSubscription(t *testing.T, store *Store) *domain.Subscription {
	t.Helper()
	plan := &domain.ChitPlan{
		ID:             uuid.New(),
		MerchantID:     uuid.New(),
		PlanName:       "Gold 12",
		TotalAmount:    decimal.NewFromInt(12000),
		MonthlyAmount:  decimal.NewFromInt(1000),
		DurationMonths: 12,
		ReturnType:     domain.ReturnTypeGold,
	}
	sub := domain.NewSubscription(plan, "user-1", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, NewSubscriptionRepository(store).Create(context.Background(), nil, sub))
	return sub
}

func TestStore_WithTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	plans := NewChitPlanRepository(store)
	merchantID := uuid.New()
	boom := errors.New("boom")

	err := store.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		require.NoError(t, plans.Create(ctx, tx, &domain.ChitPlan{ID: uuid.New(), MerchantID: merchantID}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := plans.CountByMerchant(ctx, nil, merchantID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_WithTransactionRollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	plans := NewChitPlanRepository(store)
	merchantID := uuid.New()

	assert.Panics(t, func() {
		_ = store.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			_ = plans.Create(ctx, tx, &domain.ChitPlan{ID: uuid.New(), MerchantID: merchantID})
			panic("unexpected")
		})
	})

	count, _ := plans.CountByMerchant(ctx, nil, merchantID)
	assert.Equal(t, 0, count)
}

func TestStore_UncommittedWritesInvisibleOutsideTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSubscriptionRepository(store)
	sub := seedSubscription(t, store)
	boom := errors.New("boom")

	written := make(chan struct{})
	observed := make(chan struct{})
	var outside *domain.Subscription

	go func() {
		<-written
		got, err := repo.GetByID(ctx, nil, sub.ID)
		assert.NoError(t, err)
		outside = got
		close(observed)
	}()

	err := store.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		inTx, err := repo.GetByID(ctx, tx, sub.ID)
		require.NoError(t, err)
		inTx.TotalAmountPaid = decimal.NewFromInt(999)
		require.NoError(t, repo.Update(ctx, tx, inTx))

		again, err := repo.GetByID(ctx, tx, sub.ID)
		require.NoError(t, err)
		assert.True(t, again.TotalAmountPaid.Equal(decimal.NewFromInt(999)))

		close(written)
		<-observed
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NotNil(t, outside)
	assert.True(t, outside.TotalAmountPaid.IsZero())

	after, err := repo.GetByID(ctx, nil, sub.ID)
	require.NoError(t, err)
	assert.True(t, after.TotalAmountPaid.IsZero())
	assert.Equal(t, sub.Version, after.Version)
}

func TestStore_CommitPublishesWrites(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSubscriptionRepository(store)
	sub := seedSubscription(t, store)

	err := store.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		inTx, err := repo.GetByID(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		inTx.TotalAmountPaid = decimal.NewFromInt(1000)
		return repo.Update(ctx, tx, inTx)
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, nil, sub.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmountPaid.Equal(decimal.NewFromInt(1000)))
}

func TestStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSubscriptionRepository_VersionCheck(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSubscriptionRepository(store)
	sub := seedSubscription(t, store)

	first, err := repo.GetByID(ctx, nil, sub.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, nil, sub.ID)
	require.NoError(t, err)

	first.TotalAmountPaid = decimal.NewFromInt(1000)
	require.NoError(t, repo.Update(ctx, nil, first))
	assert.Equal(t, int64(1), first.Version)

	second.TotalAmountPaid = decimal.NewFromInt(500)
	assert.ErrorIs(t, repo.Update(ctx, nil, second), domain.ErrConcurrentModification)

	stored, err := repo.GetByID(ctx, nil, sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmountPaid.Equal(decimal.NewFromInt(1000)))
}

func TestSubscriptionRepository_UniquePerUserAndPlan(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSubscriptionRepository(store)
	sub := seedSubscription(t, store)

	dup := *sub
	dup.ID = uuid.New()
	assert.ErrorIs(t, repo.Create(ctx, nil, &dup), domain.ErrAlreadyExists)
}

func TestSubscriptionRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewSubscriptionRepository(store)
	sub := seedSubscription(t, store)

	got, err := repo.GetByID(ctx, nil, sub.ID)
	require.NoError(t, err)
	got.Status = domain.SubscriptionStatusSettled

	again, err := repo.GetByID(ctx, nil, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, again.Status)
}

func TestPaymentRepository_ResolvePendingOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := NewPaymentRepository(store)
	p := &domain.PaymentRecord{
		ID:      uuid.New(),
		Amount:  decimal.NewFromInt(500),
		Channel: domain.PaymentChannelOffline,
		Status:  domain.PaymentStatusPending,
	}
	require.NoError(t, repo.Create(ctx, nil, p))

	var wg sync.WaitGroup
	results := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.ResolvePending(ctx, nil, p.ID, domain.PaymentStatusCompleted, "", time.Now())
			assert.NoError(t, err)
			results <- ok
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	_, err := repo.ResolvePending(ctx, nil, uuid.New(), domain.PaymentStatusRejected, "", time.Now())
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestPaymentRepository_UniqueGatewayPaymentID(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(NewStore())
	gatewayID := "pay_123"

	first := &domain.PaymentRecord{ID: uuid.New(), GatewayPaymentID: &gatewayID, Status: domain.PaymentStatusCompleted}
	require.NoError(t, repo.Create(ctx, nil, first))

	second := &domain.PaymentRecord{ID: uuid.New(), GatewayPaymentID: &gatewayID, Status: domain.PaymentStatusCompleted}
	assert.ErrorIs(t, repo.Create(ctx, nil, second), domain.ErrAlreadyProcessed)
}

func TestChitPlanRepository_DeleteTombstones(t *testing.T) {
	ctx := context.Background()
	repo := NewChitPlanRepository(NewStore())
	merchantID := uuid.New()
	plan := &domain.ChitPlan{ID: uuid.New(), MerchantID: merchantID}

	require.NoError(t, repo.Create(ctx, nil, plan))
	require.NoError(t, repo.Delete(ctx, nil, plan.ID))

	_, err := repo.GetByID(ctx, nil, plan.ID)
	assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, nil, plan.ID), domain.ErrPlanNotFound)

	list, err := repo.ListByMerchant(ctx, nil, merchantID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRenewalRepository_UniqueGatewayPaymentID(t *testing.T) {
	ctx := context.Background()
	repo := NewRenewalRepository(NewStore())
	merchantID := uuid.New()

	r1 := &domain.RenewalRecord{ID: uuid.New(), MerchantID: merchantID, GatewayPaymentID: "pay_1", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, nil, r1))

	r2 := &domain.RenewalRecord{ID: uuid.New(), MerchantID: merchantID, GatewayPaymentID: "pay_1", CreatedAt: time.Now()}
	assert.ErrorIs(t, repo.Create(ctx, nil, r2), domain.ErrAlreadyProcessed)

	list, err := repo.ListByMerchant(ctx, nil, merchantID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
