// Package allocation computes how a recurring income's amount splits across
// savings-goal percentage allocations.
//
// All functions are pure. The single hard invariant is the 100% cap: the save
// path must reject, not clamp, any set of enabled allocations whose
// percentages sum above 100. Derived amounts are always recomputed from the
// current income amount; a stored amount is never trusted.
package allocation

import (
	"fmt"
	"strings"

	"cadence/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Input is one row of the allocation editor: a goal, its enabled flag, and
// the raw percentage the user typed. A disabled row keeps its typed value so
// re-enabling restores it, but contributes nothing while disabled.
type Input struct {
	GoalID     uuid.UUID
	Enabled    bool
	Percentage string
}

// CalculatedAmount derives the absolute amount for a percentage of an income
// amount, rounded half away from zero to whole cents. The percentage is not
// clamped here; validation is the caller's job.
func CalculatedAmount(incomeAmount core.Money, percentage decimal.Decimal) core.Money {
	cents := decimal.NewFromInt(incomeAmount.Cents).Mul(percentage).Div(hundred).Round(0)
	return core.Money{Cents: cents.IntPart()}
}

// TotalAllocatedPercentage sums the percentages of enabled inputs. Disabled
// inputs contribute zero even when a stale typed value remains; unparseable
// values also count as zero.
func TotalAllocatedPercentage(inputs []Input) decimal.Decimal {
	total := decimal.Zero
	for _, in := range inputs {
		if !in.Enabled {
			continue
		}
		p, err := ParsePercentage(in.Percentage)
		if err != nil {
			continue
		}
		total = total.Add(p)
	}
	return total
}

// IsValidAllocationSet reports whether a total percentage respects the cap.
func IsValidAllocationSet(totalPercentage decimal.Decimal) bool {
	return totalPercentage.LessThanOrEqual(hundred)
}

// RemainingAmount is what is left of the income after all enabled
// allocations. Negative only transiently while the user edits an invalid set;
// a negative remainder must never be persisted.
func RemainingAmount(incomeAmount core.Money, allocs []core.GoalAllocation) core.Money {
	remaining := incomeAmount.Cents
	for _, a := range allocs {
		remaining -= CalculatedAmount(incomeAmount, a.Percentage).Cents
	}
	return core.Money{Cents: remaining}
}

// BuildAllocationList turns editor rows into the list to persist. Rows that
// are disabled, zero, or unparseable are omitted entirely; absence from the
// list is how "uncheck to remove" works. Derived amounts are computed from
// incomeAmount. Duplicate goals are an error.
func BuildAllocationList(incomeAmount core.Money, inputs []Input) ([]core.GoalAllocation, error) {
	allocs := make([]core.GoalAllocation, 0, len(inputs))
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	for _, in := range inputs {
		if !in.Enabled {
			continue
		}
		p, err := ParsePercentage(in.Percentage)
		if err != nil || p.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if _, dup := seen[in.GoalID]; dup {
			return nil, core.ErrDuplicateGoal
		}
		seen[in.GoalID] = struct{}{}
		allocs = append(allocs, core.GoalAllocation{
			GoalID:     in.GoalID,
			Percentage: p,
			Amount:     CalculatedAmount(incomeAmount, p),
		})
	}
	return allocs, nil
}

// Recompute re-derives every allocation amount from the current income
// amount. Called whenever the parent income's amount changes and before any
// read that displays amounts, so a stale persisted cache can never drift.
func Recompute(incomeAmount core.Money, allocs []core.GoalAllocation) []core.GoalAllocation {
	out := make([]core.GoalAllocation, len(allocs))
	for i, a := range allocs {
		a.Amount = CalculatedAmount(incomeAmount, a.Percentage)
		out[i] = a
	}
	return out
}

// ParsePercentage parses a user-typed percentage. Accepts dot and comma
// decimal separators. The value itself is not range-checked beyond being a
// number; callers decide what 0 or >100 means for them.
func ParsePercentage(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, core.ErrInvalidPercentage
	}
	p, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", core.ErrInvalidPercentage, s)
	}
	return p, nil
}
