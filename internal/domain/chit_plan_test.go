package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthlyInstallment(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		months   int
		expected string
	}{
		{"even split", "3000", 3, "1000"},
		{"rounds half up", "5000", 11, "454.55"},
		{"rounds down", "1000", 3, "333.33"},
		{"sixty months", "60000", 60, "1000"},
		{"zero months", "1000", 0, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyInstallment(decimal.RequireFromString(tt.total), tt.months)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)), "got %s", got)
		})
	}
}

func validDraft() PlanDraft {
	return PlanDraft{
		PlanName:       "Gold Saver",
		TotalAmount:    decimal.NewFromInt(12000),
		DurationMonths: 12,
		ReturnType:     ReturnTypeGold,
	}
}

func TestPlanDraft_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *PlanDraft)
		field  string
	}{
		{"valid", func(d *PlanDraft) {}, ""},
		{"blank name", func(d *PlanDraft) { d.PlanName = "  " }, "plan_name"},
		{"zero total", func(d *PlanDraft) { d.TotalAmount = decimal.Zero }, "total_amount"},
		{"negative total", func(d *PlanDraft) { d.TotalAmount = decimal.NewFromInt(-5) }, "total_amount"},
		{"three decimals", func(d *PlanDraft) { d.TotalAmount = decimal.RequireFromString("100.005") }, "total_amount"},
		{"two months", func(d *PlanDraft) { d.DurationMonths = 2 }, "duration_months"},
		{"three months", func(d *PlanDraft) { d.DurationMonths = 3 }, ""},
		{"sixty months", func(d *PlanDraft) { d.DurationMonths = 60 }, ""},
		{"sixty one months", func(d *PlanDraft) { d.DurationMonths = 61 }, "duration_months"},
		{"unknown return type", func(d *PlanDraft) { d.ReturnType = "Silver" }, "return_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDraft()
			tt.mutate(&d)
			err := d.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidationFailed)
			de, ok := err.(*DomainError)
			require.True(t, ok)
			assert.Equal(t, tt.field, de.Details["field"])
		})
	}
}

func TestChitPlan_ApplyRecomputesMonthly(t *testing.T) {
	plan := &ChitPlan{}
	d := validDraft()
	d.PlanName = "  Festive  "
	d.TotalAmount = decimal.NewFromInt(5000)
	d.DurationMonths = 11

	plan.Apply(d)

	assert.Equal(t, "Festive", plan.PlanName)
	assert.Equal(t, "454.55", plan.MonthlyAmount.StringFixed(2))
	assert.Equal(t, 11, plan.DurationMonths)
	assert.Equal(t, ReturnTypeGold, plan.ReturnType)
}
