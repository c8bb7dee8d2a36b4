package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
)

// MerchantBuilder provides fluent API for building test merchants.
type MerchantBuilder struct {
	merchant *domain.MerchantAccount
}

// NewMerchant creates a KYC-verified Basic merchant whose subscription runs for another month.
func NewMerchant() *MerchantBuilder {
	now := time.Now().UTC()
	return &MerchantBuilder{
		merchant: &domain.MerchantAccount{
			ID:                     uuid.New(),
			Name:                   "Test Jewellers",
			Tier:                   domain.TierBasic,
			KYCVerified:            true,
			SubscriptionStatus:     domain.MerchantSubscriptionActive,
			SubscriptionExpiryDate: now.AddDate(0, 1, 0),
			CreatedAt:              now,
			UpdatedAt:              now,
		},
	}
}

func (b *MerchantBuilder) WithID(id uuid.UUID) *MerchantBuilder {
	b.merchant.ID = id
	return b
}

func (b *MerchantBuilder) WithName(name string) *MerchantBuilder {
	b.merchant.Name = name
	return b
}

func (b *MerchantBuilder) WithTier(tier domain.Tier) *MerchantBuilder {
	b.merchant.Tier = tier
	return b
}

func (b *MerchantBuilder) WithKYCVerified(verified bool) *MerchantBuilder {
	b.merchant.KYCVerified = verified
	return b
}

// Expired marks the subscription expired as of expiry.
func (b *MerchantBuilder) Expired(expiry time.Time) *MerchantBuilder {
	b.merchant.SubscriptionStatus = domain.MerchantSubscriptionExpired
	b.merchant.SubscriptionExpiryDate = expiry
	return b
}

func (b *MerchantBuilder) WithExpiry(expiry time.Time) *MerchantBuilder {
	b.merchant.SubscriptionExpiryDate = expiry
	return b
}

func (b *MerchantBuilder) Build() *domain.MerchantAccount {
	return b.merchant
}
