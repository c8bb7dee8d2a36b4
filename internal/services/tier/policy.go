package tier

import (
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/shopspring/decimal"
)

// Features lists the dashboard capabilities unlocked by a tier
type Features struct {
	CustomAds         bool `json:"custom_ads"`
	AdvancedAnalytics bool `json:"advanced_analytics"`
	DateSearch        bool `json:"date_search"`
	IOSAccess         bool `json:"ios_access"`
	PrioritySupport   bool `json:"priority_support"`
}

// Decision is the outcome of an entitlement check
type Decision struct {
	Reason      error // nil when Allowed
	ExcessCount int   // downgrade only: plans over the target quota
	Allowed     bool
}

// Pricing holds the renewal price of each tier per billing period
type Pricing map[domain.Tier]map[domain.BillingPeriod]decimal.Decimal

// DefaultPricing returns the platform list prices in INR
func DefaultPricing() Pricing {
	return Pricing{
		domain.TierBasic: {
			domain.BillingPeriodMonthly: decimal.NewFromInt(499),
			domain.BillingPeriodYearly:  decimal.NewFromInt(4999),
		},
		domain.TierStandard: {
			domain.BillingPeriodMonthly: decimal.NewFromInt(999),
			domain.BillingPeriodYearly:  decimal.NewFromInt(9999),
		},
		domain.TierPremium: {
			domain.BillingPeriodMonthly: decimal.NewFromInt(1999),
			domain.BillingPeriodYearly:  decimal.NewFromInt(19999),
		},
	}
}

// Policy maps merchant tiers to quotas, features and prices. It has no
// side effects and is safe for concurrent use.
type Policy struct {
	pricing Pricing
}

// NewPolicy creates a tier policy; nil pricing selects DefaultPricing
func NewPolicy(pricing Pricing) *Policy {
	if pricing == nil {
		pricing = DefaultPricing()
	}
	return &Policy{pricing: pricing}
}

// Quota returns the maximum number of chit plans a tier may run
func (p *Policy) Quota(t domain.Tier) int {
	switch t {
	case domain.TierBasic:
		return 3
	case domain.TierStandard:
		return 6
	case domain.TierPremium:
		return 9
	}
	return 0
}

// FeatureFlags returns the capabilities unlocked by a tier
func (p *Policy) FeatureFlags(t domain.Tier) Features {
	switch t {
	case domain.TierBasic:
		return Features{DateSearch: true}
	case domain.TierStandard:
		return Features{DateSearch: true, AdvancedAnalytics: true, IOSAccess: true}
	case domain.TierPremium:
		return Features{
			CustomAds:         true,
			AdvancedAnalytics: true,
			DateSearch:        true,
			IOSAccess:         true,
			PrioritySupport:   true,
		}
	}
	return Features{}
}

// CanCreatePlan reports whether the merchant may add one more plan
func (p *Policy) CanCreatePlan(m *domain.MerchantAccount, currentCount int) bool {
	return p.CreatePlanDecision(m, currentCount).Allowed
}

// CreatePlanDecision explains a plan-creation check. KYC is checked before
// the quota.
func (p *Policy) CreatePlanDecision(m *domain.MerchantAccount, currentCount int) Decision {
	if !m.KYCVerified {
		return Decision{Reason: domain.NewKYCRequiredError()}
	}
	quota := p.Quota(m.Tier)
	if currentCount >= quota {
		return Decision{Reason: domain.NewQuotaExceededError(m.Tier, quota, currentCount)}
	}
	return Decision{Allowed: true}
}

// CanDowngradeTo checks whether currentCount plans fit in the target tier
func (p *Policy) CanDowngradeTo(target domain.Tier, currentCount int) Decision {
	excess := currentCount - p.Quota(target)
	if excess > 0 {
		return Decision{
			Reason:      domain.NewDowngradeBlockedError(target, excess),
			ExcessCount: excess,
		}
	}
	return Decision{Allowed: true}
}

// Price returns the renewal price of a tier for one billing period
func (p *Policy) Price(t domain.Tier, period domain.BillingPeriod) (decimal.Decimal, error) {
	if !t.Valid() {
		return decimal.Zero, domain.NewValidationError("target_tier", "must be Basic, Standard or Premium")
	}
	if !period.Valid() {
		return decimal.Zero, domain.NewValidationError("period", "must be monthly or yearly")
	}
	price, ok := p.pricing[t][period]
	if !ok {
		return decimal.Zero, domain.NewValidationError("period", "no price configured for "+string(t)+" "+string(period))
	}
	return price, nil
}
