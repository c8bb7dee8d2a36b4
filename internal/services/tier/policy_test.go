package tier

import (
	"testing"

	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Quota(t *testing.T) {
	p := NewPolicy(nil)

	assert.Equal(t, 3, p.Quota(domain.TierBasic))
	assert.Equal(t, 6, p.Quota(domain.TierStandard))
	assert.Equal(t, 9, p.Quota(domain.TierPremium))
	assert.Equal(t, 0, p.Quota(domain.Tier("Unknown")))
}

func TestPolicy_FeatureFlags(t *testing.T) {
	p := NewPolicy(nil)

	basic := p.FeatureFlags(domain.TierBasic)
	assert.True(t, basic.DateSearch)
	assert.False(t, basic.CustomAds)
	assert.False(t, basic.AdvancedAnalytics)

	standard := p.FeatureFlags(domain.TierStandard)
	assert.True(t, standard.AdvancedAnalytics)
	assert.True(t, standard.IOSAccess)
	assert.False(t, standard.PrioritySupport)

	assert.Equal(t, Features{true, true, true, true, true}, p.FeatureFlags(domain.TierPremium))
}

func TestPolicy_CreatePlanDecision(t *testing.T) {
	p := NewPolicy(nil)

	tests := []struct {
		name     string
		kyc      bool
		tier     domain.Tier
		count    int
		expected error
	}{
		{"basic under quota", true, domain.TierBasic, 2, nil},
		{"basic at quota", true, domain.TierBasic, 3, domain.ErrQuotaExceeded},
		{"standard at old basic quota", true, domain.TierStandard, 3, nil},
		{"premium at quota", true, domain.TierPremium, 9, domain.ErrQuotaExceeded},
		{"kyc missing", false, domain.TierPremium, 0, domain.ErrKYCRequired},
		{"kyc takes precedence over quota", false, domain.TierBasic, 3, domain.ErrKYCRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &domain.MerchantAccount{Tier: tt.tier, KYCVerified: tt.kyc}
			d := p.CreatePlanDecision(m, tt.count)
			assert.Equal(t, tt.expected == nil, d.Allowed)
			assert.Equal(t, tt.expected == nil, p.CanCreatePlan(m, tt.count))
			if tt.expected != nil {
				assert.ErrorIs(t, d.Reason, tt.expected)
			}
		})
	}
}

func TestPolicy_CreatePlanDecisionQuotaDetails(t *testing.T) {
	p := NewPolicy(nil)
	d := p.CreatePlanDecision(&domain.MerchantAccount{Tier: domain.TierBasic, KYCVerified: true}, 3)

	quota, ok := domain.DetailInt(d.Reason, "quota")
	require.True(t, ok)
	assert.Equal(t, 3, quota)
	current, ok := domain.DetailInt(d.Reason, "current_count")
	require.True(t, ok)
	assert.Equal(t, 3, current)
}

func TestPolicy_CanDowngradeTo(t *testing.T) {
	p := NewPolicy(nil)

	tests := []struct {
		name   string
		target domain.Tier
		count  int
		excess int
	}{
		{"premium to basic with five plans", domain.TierBasic, 5, 2},
		{"standard to basic with three plans", domain.TierBasic, 3, 0},
		{"premium to standard with nine plans", domain.TierStandard, 9, 3},
		{"upgrade", domain.TierPremium, 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := p.CanDowngradeTo(tt.target, tt.count)
			assert.Equal(t, tt.excess, d.ExcessCount)
			assert.Equal(t, tt.excess == 0, d.Allowed)
			if tt.excess > 0 {
				assert.ErrorIs(t, d.Reason, domain.ErrDowngradeBlocked)
				excess, ok := domain.DetailInt(d.Reason, "excess_count")
				require.True(t, ok)
				assert.Equal(t, tt.excess, excess)
			}
		})
	}
}

func TestPolicy_Price(t *testing.T) {
	p := NewPolicy(nil)

	price, err := p.Price(domain.TierStandard, domain.BillingPeriodYearly)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(9999)))

	_, err = p.Price(domain.Tier("Gold"), domain.BillingPeriodMonthly)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = p.Price(domain.TierBasic, domain.BillingPeriod("weekly"))
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	custom := NewPolicy(Pricing{domain.TierBasic: {domain.BillingPeriodMonthly: decimal.NewFromInt(1)}})
	_, err = custom.Price(domain.TierBasic, domain.BillingPeriodYearly)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}
