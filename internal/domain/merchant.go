package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier is the merchant's own platform subscription level
type Tier string

const (
	TierBasic    Tier = "Basic"
	TierStandard Tier = "Standard"
	TierPremium  Tier = "Premium"
)

// Valid reports whether t is one of the known tiers
func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierStandard, TierPremium:
		return true
	}
	return false
}

// MerchantSubscriptionStatus is the state of the merchant's platform subscription
type MerchantSubscriptionStatus string

const (
	MerchantSubscriptionActive  MerchantSubscriptionStatus = "active"
	MerchantSubscriptionExpired MerchantSubscriptionStatus = "expired"
)

// Valid reports whether s is a known merchant subscription status
func (s MerchantSubscriptionStatus) Valid() bool {
	switch s {
	case MerchantSubscriptionActive, MerchantSubscriptionExpired:
		return true
	}
	return false
}

// BillingPeriod is the length a renewal extends the merchant subscription by
type BillingPeriod string

const (
	BillingPeriodMonthly BillingPeriod = "monthly"
	BillingPeriodYearly  BillingPeriod = "yearly"
)

// Valid reports whether p is a known billing period
func (p BillingPeriod) Valid() bool {
	switch p {
	case BillingPeriodMonthly, BillingPeriodYearly:
		return true
	}
	return false
}

// Extend returns from moved forward by one billing period
func (p BillingPeriod) Extend(from time.Time) time.Time {
	switch p {
	case BillingPeriodYearly:
		return from.AddDate(1, 0, 0)
	case BillingPeriodMonthly:
		return from.AddDate(0, 1, 0)
	}
	return from
}

// MerchantAccount is a jeweller running chit plans on the platform
type MerchantAccount struct {
	SubscriptionExpiryDate time.Time                  `json:"subscription_expiry_date"`
	CreatedAt              time.Time                  `json:"created_at"`
	UpdatedAt              time.Time                  `json:"updated_at"`
	Name                   string                     `json:"name"`
	Tier                   Tier                       `json:"tier"`
	SubscriptionStatus     MerchantSubscriptionStatus `json:"subscription_status"`
	ID                     uuid.UUID                  `json:"id"`
	KYCVerified            bool                       `json:"kyc_verified"`
}

// IsExpired returns true if the merchant's platform subscription is marked expired
func (m *MerchantAccount) IsExpired() bool {
	return m.SubscriptionStatus == MerchantSubscriptionExpired
}

// RenewalRecord is the audit row written with every successful tier renewal.
// GatewayPaymentID is unique so one gateway payment renews at most once.
type RenewalRecord struct {
	PreviousExpiry   time.Time       `json:"previous_expiry"`
	NewExpiry        time.Time       `json:"new_expiry"`
	CreatedAt        time.Time       `json:"created_at"`
	Amount           decimal.Decimal `json:"amount"`
	FromTier         Tier            `json:"from_tier"`
	ToTier           Tier            `json:"to_tier"`
	Period           BillingPeriod   `json:"period"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id"`
	ID               uuid.UUID       `json:"id"`
	MerchantID       uuid.UUID       `json:"merchant_id"`
}
