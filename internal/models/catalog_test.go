package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMonthlyEquivalent(t *testing.T) {
	cases := []struct {
		cycle  BillingCycle
		amount string
		want   string
	}{
		{CycleMonthly, "5000", "5000"},
		{CycleQuarterly, "9000", "3000"},
		{CycleHalfYearly, "30000", "5000"},
		{CycleYearly, "60000", "5000"},
		{CycleQuarterly, "100", "33.33"},
		{CycleYearly, "1000", "83.33"},
	}
	for _, tc := range cases {
		fs := FeeStructure{Amount: decimal.RequireFromString(tc.amount), BillingCycle: tc.cycle}
		got := fs.MonthlyEquivalent()
		assert.True(t, got.Equal(decimal.RequireFromString(tc.want)),
			"%s %s: got %s, want %s", tc.cycle, tc.amount, got, tc.want)
	}
}

func TestBillingCycleValid(t *testing.T) {
	assert.True(t, CycleMonthly.Valid())
	assert.True(t, CycleHalfYearly.Valid())
	assert.False(t, BillingCycle("WEEKLY").Valid())
	assert.False(t, BillingCycle("").Valid())
}
