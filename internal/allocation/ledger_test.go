package allocation_test

import (
	"testing"

	"cadence/internal/allocation"
	"cadence/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pct(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	p, err := allocation.ParsePercentage(s)
	require.NoError(t, err)
	return p
}

func TestCalculatedAmount(t *testing.T) {
	tests := []struct {
		name       string
		cents      int64
		percentage string
		want       int64
	}{
		{"twenty percent of 5000", 500000, "20", 100000},
		{"whole amount", 500000, "100", 500000},
		{"zero percent", 500000, "0", 0},
		{"fractional percentage", 100000, "12.5", 12500},
		{"rounds half up", 100, "12.5", 13},
		{"third does not lose cents to truncation", 1000, "33.33", 333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := allocation.CalculatedAmount(core.Money{Cents: tt.cents}, pct(t, tt.percentage))
			assert.Equal(t, tt.want, got.Cents)
		})
	}
}

func TestTotalAllocatedPercentage(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	inputs := []allocation.Input{
		{GoalID: a, Enabled: true, Percentage: "40"},
		{GoalID: b, Enabled: true, Percentage: "40"},
		{GoalID: c, Enabled: true, Percentage: "40"},
	}
	total := allocation.TotalAllocatedPercentage(inputs)
	assert.True(t, total.Equal(decimal.NewFromInt(120)))
	assert.False(t, allocation.IsValidAllocationSet(total))

	// Disabling one row brings the set back under the cap.
	inputs[2].Enabled = false
	total = allocation.TotalAllocatedPercentage(inputs)
	assert.True(t, total.Equal(decimal.NewFromInt(80)))
	assert.True(t, allocation.IsValidAllocationSet(total))
}

func TestTotalIgnoresUnparseableAndDisabled(t *testing.T) {
	inputs := []allocation.Input{
		{GoalID: uuid.New(), Enabled: true, Percentage: "25,5"},
		{GoalID: uuid.New(), Enabled: true, Percentage: "not a number"},
		{GoalID: uuid.New(), Enabled: false, Percentage: "99"},
		{GoalID: uuid.New(), Enabled: true, Percentage: ""},
	}
	total := allocation.TotalAllocatedPercentage(inputs)
	assert.True(t, total.Equal(decimal.RequireFromString("25.5")))
}

func TestIsValidAllocationSet(t *testing.T) {
	assert.True(t, allocation.IsValidAllocationSet(decimal.NewFromInt(100)))
	assert.True(t, allocation.IsValidAllocationSet(decimal.Zero))
	assert.False(t, allocation.IsValidAllocationSet(decimal.RequireFromString("100.01")))
}

func TestBuildAllocationList(t *testing.T) {
	vacation, emergency, disabled := uuid.New(), uuid.New(), uuid.New()
	income := core.Money{Cents: 500000}

	allocs, err := allocation.BuildAllocationList(income, []allocation.Input{
		{GoalID: vacation, Enabled: true, Percentage: "20"},
		{GoalID: emergency, Enabled: true, Percentage: "10"},
		{GoalID: disabled, Enabled: false, Percentage: "50"},
		{GoalID: uuid.New(), Enabled: true, Percentage: "0"},
		{GoalID: uuid.New(), Enabled: true, Percentage: "garbage"},
	})
	require.NoError(t, err)
	require.Len(t, allocs, 2)

	assert.Equal(t, vacation, allocs[0].GoalID)
	assert.Equal(t, int64(100000), allocs[0].Amount.Cents)
	assert.Equal(t, emergency, allocs[1].GoalID)
	assert.Equal(t, int64(50000), allocs[1].Amount.Cents)

	remaining := allocation.RemainingAmount(income, allocs)
	assert.Equal(t, int64(350000), remaining.Cents)
}

func TestBuildAllocationListRejectsDuplicateGoal(t *testing.T) {
	goal := uuid.New()
	_, err := allocation.BuildAllocationList(core.Money{Cents: 100000}, []allocation.Input{
		{GoalID: goal, Enabled: true, Percentage: "10"},
		{GoalID: goal, Enabled: true, Percentage: "20"},
	})
	assert.ErrorIs(t, err, core.ErrDuplicateGoal)
}

func TestRecomputeFollowsIncomeAmount(t *testing.T) {
	allocs := []core.GoalAllocation{
		{GoalID: uuid.New(), Percentage: pct(t, "20"), Amount: core.Money{Cents: 999}},
		{GoalID: uuid.New(), Percentage: pct(t, "5"), Amount: core.Money{Cents: 1}},
	}

	out := allocation.Recompute(core.Money{Cents: 200000}, allocs)
	require.Len(t, out, 2)
	assert.Equal(t, int64(40000), out[0].Amount.Cents)
	assert.Equal(t, int64(10000), out[1].Amount.Cents)

	// Original slice stays untouched.
	assert.Equal(t, int64(999), allocs[0].Amount.Cents)
}

func TestRemainingAmountFullAllocation(t *testing.T) {
	income := core.Money{Cents: 100000}
	allocs := []core.GoalAllocation{
		{GoalID: uuid.New(), Percentage: pct(t, "60")},
		{GoalID: uuid.New(), Percentage: pct(t, "40")},
	}
	remaining := allocation.RemainingAmount(income, allocs)
	assert.Equal(t, int64(0), remaining.Cents)
}
