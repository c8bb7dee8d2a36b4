package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNoopPlanCache_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	c := NewNoopPlanCache()
	merchantID := uuid.New()

	require.NoError(t, c.SetPlans(ctx, merchantID, []*domain.ChitPlan{{ID: uuid.New()}}))
	plans, found, err := c.GetPlans(ctx, merchantID)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, plans)
	assert.NoError(t, c.Invalidate(ctx, merchantID))
}

func TestPlanListKey(t *testing.T) {
	id := uuid.MustParse("9b2b7c1e-2f55-4d63-9f0f-3e8f0c8e6a11")
	assert.Equal(t, "chit:plans:9b2b7c1e-2f55-4d63-9f0f-3e8f0c8e6a11", planListKey(id))
}

// Runs against a real Redis when REDIS_ADDR is set (e.g. localhost:6379)
func TestRedisPlanCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, &RedisConfig{Addr: addr})
	require.NoError(t, err)
	defer client.Close()

	c := NewRedisPlanCache(client, time.Minute, zaptest.NewLogger(t))
	merchantID := uuid.New()
	defer c.Invalidate(ctx, merchantID)

	_, found, err := c.GetPlans(ctx, merchantID)
	require.NoError(t, err)
	assert.False(t, found)

	plan := &domain.ChitPlan{
		ID:             uuid.New(),
		MerchantID:     merchantID,
		PlanName:       "Gold 11",
		TotalAmount:    decimal.NewFromInt(5000),
		MonthlyAmount:  decimal.RequireFromString("454.55"),
		DurationMonths: 11,
		ReturnType:     domain.ReturnTypeGold,
	}
	require.NoError(t, c.SetPlans(ctx, merchantID, []*domain.ChitPlan{plan}))

	plans, found, err := c.GetPlans(ctx, merchantID)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, plans, 1)
	assert.Equal(t, plan.ID, plans[0].ID)
	assert.Equal(t, "454.55", plans[0].MonthlyAmount.StringFixed(2))

	require.NoError(t, c.Invalidate(ctx, merchantID))
	_, found, err = c.GetPlans(ctx, merchantID)
	require.NoError(t, err)
	assert.False(t, found)
}
