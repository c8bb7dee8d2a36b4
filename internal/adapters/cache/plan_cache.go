package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration // Plan list TTL (default: 10 minutes)
}

// NewRedisClient creates a go-redis client and verifies the connection
func NewRedisClient(ctx context.Context, cfg *RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisPlanCache implements ports.PlanCache on Redis
type RedisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

var _ ports.PlanCache = (*RedisPlanCache)(nil)

// NewRedisPlanCache creates a plan cache on an existing client
func NewRedisPlanCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisPlanCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisPlanCache{client: client, ttl: ttl, logger: logger}
}

func planListKey(merchantID uuid.UUID) string {
	return "chit:plans:" + merchantID.String()
}

// GetPlans returns the cached plan list
func (c *RedisPlanCache) GetPlans(ctx context.Context, merchantID uuid.UUID) ([]*domain.ChitPlan, bool, error) {
	val, err := c.client.Get(ctx, planListKey(merchantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached plans: %w", err)
	}

	var plans []*domain.ChitPlan
	if err := json.Unmarshal(val, &plans); err != nil {
		// Drop the corrupt entry so the next read repopulates it
		_ = c.client.Del(ctx, planListKey(merchantID)).Err()
		return nil, false, fmt.Errorf("decode cached plans: %w", err)
	}

	c.logger.Debug("Plan list served from cache", zap.String("merchant_id", merchantID.String()))
	return plans, true, nil
}

// SetPlans caches a merchant's plan list
func (c *RedisPlanCache) SetPlans(ctx context.Context, merchantID uuid.UUID, plans []*domain.ChitPlan) error {
	data, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("encode plans: %w", err)
	}
	return c.client.Set(ctx, planListKey(merchantID), data, c.ttl).Err()
}

// Invalidate drops a merchant's cached plan list
func (c *RedisPlanCache) Invalidate(ctx context.Context, merchantID uuid.UUID) error {
	return c.client.Del(ctx, planListKey(merchantID)).Err()
}

// HealthCheck pings Redis
func (c *RedisPlanCache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// NoopPlanCache always misses. Used when Redis is not configured.
type NoopPlanCache struct{}

var _ ports.PlanCache = NoopPlanCache{}

// NewNoopPlanCache creates a cache that stores nothing
func NewNoopPlanCache() NoopPlanCache {
	return NoopPlanCache{}
}

// GetPlans always reports a miss
func (NoopPlanCache) GetPlans(ctx context.Context, merchantID uuid.UUID) ([]*domain.ChitPlan, bool, error) {
	return nil, false, nil
}

// SetPlans discards plans
func (NoopPlanCache) SetPlans(ctx context.Context, merchantID uuid.UUID, plans []*domain.ChitPlan) error {
	return nil
}

// Invalidate does nothing
func (NoopPlanCache) Invalidate(ctx context.Context, merchantID uuid.UUID) error {
	return nil
}
