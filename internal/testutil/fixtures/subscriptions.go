package fixtures

import (
	"time"

	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/shopspring/decimal"
)

// SubscriptionBuilder provides fluent API for building test subscriptions.
type SubscriptionBuilder struct {
	subscription *domain.Subscription
}

// NewSubscription enrolls "user-1" into a default plan, joined today.
func NewSubscription() *SubscriptionBuilder {
	return NewSubscriptionForPlan(NewChitPlan().Build())
}

// NewSubscriptionForPlan enrolls "user-1" into plan, joined today.
func NewSubscriptionForPlan(plan *domain.ChitPlan) *SubscriptionBuilder {
	return &SubscriptionBuilder{
		subscription: domain.NewSubscription(plan, "user-1", time.Now().UTC()),
	}
}

func (b *SubscriptionBuilder) WithUserID(userID string) *SubscriptionBuilder {
	b.subscription.UserID = userID
	return b
}

func (b *SubscriptionBuilder) WithJoinedAt(joinedAt time.Time) *SubscriptionBuilder {
	b.subscription.JoinedAt = joinedAt
	b.subscription.CreatedAt = joinedAt
	b.subscription.UpdatedAt = joinedAt
	return b
}

func (b *SubscriptionBuilder) WithStatus(status domain.SubscriptionStatus) *SubscriptionBuilder {
	b.subscription.Status = status
	return b
}

func (b *SubscriptionBuilder) WithTotalAmountPaid(paid decimal.Decimal) *SubscriptionBuilder {
	b.subscription.TotalAmountPaid = paid
	return b
}

func (b *SubscriptionBuilder) Build() *domain.Subscription {
	return b.subscription
}
