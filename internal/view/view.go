// Package view builds the merged read-only list that presents recurring
// expenses and incomes through one shared shape.
//
// Every function here is a total, pure function over already-fetched
// snapshots: the list is rebuilt from scratch on each call and never
// persisted. At personal-finance scale (hundreds of items) rebuilding beats
// incremental patching.
package view

import (
	"sort"

	"cadence/internal/core"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

const (
	FilterAll      TypeFilter = "all"
	FilterIncome   TypeFilter = "income"
	FilterExpenses TypeFilter = "expenses"
)

// DefaultUpcomingWindow is the look-ahead used when the caller does not ask
// for a specific number of days.
const DefaultUpcomingWindow = 7

type (
	// Kind tags which source collection a unified item came from.
	Kind string

	// TypeFilter selects a subset of unified items by kind.
	TypeFilter string

	// UnifiedItem is the common read-only surface over a recurring expense or
	// income. Exactly one of Expense/Income is set, matching Kind.
	UnifiedItem struct {
		Kind          Kind
		ID            int64
		Title         string
		Amount        core.Money
		Every         core.Frequency
		NextDate      core.Date
		IsActive      bool
		DaysUntilNext int // negative when overdue

		Expense *core.RecurringExpense
		Income  *core.RecurringIncome
	}
)

// IsExpense reports whether the item wraps a recurring expense.
func (u UnifiedItem) IsExpense() bool { return u.Kind == KindExpense }

// IsIncome reports whether the item wraps a recurring income.
func (u UnifiedItem) IsIncome() bool { return u.Kind == KindIncome }

// Build maps both source collections into the unified shape. The result is
// unsorted; callers sort per purpose. Empty inputs yield an empty list.
func Build(expenses []core.RecurringExpense, incomes []core.RecurringIncome, today core.Date) []UnifiedItem {
	items := make([]UnifiedItem, 0, len(expenses)+len(incomes))
	for i := range expenses {
		e := expenses[i]
		items = append(items, UnifiedItem{
			Kind:          KindExpense,
			ID:            e.ID,
			Title:         e.Title,
			Amount:        e.Amount,
			Every:         e.Every,
			NextDate:      e.NextDueDate,
			IsActive:      e.IsActive,
			DaysUntilNext: today.DaysUntil(e.NextDueDate),
			Expense:       &e,
		})
	}
	for i := range incomes {
		in := incomes[i]
		items = append(items, UnifiedItem{
			Kind:          KindIncome,
			ID:            in.ID,
			Title:         in.Title(),
			Amount:        in.Amount,
			Every:         in.Every,
			NextDate:      in.NextDate,
			IsActive:      in.IsActive,
			DaysUntilNext: today.DaysUntil(in.NextDate),
			Income:        &in,
		})
	}
	return items
}

// Upcoming filters to active items due within withinDays of today, sorted
// ascending by next date. Overdue items qualify: an item five days late still
// surfaces as due. Equal dates keep their input order.
func Upcoming(items []UnifiedItem, today core.Date, withinDays int) []UnifiedItem {
	out := make([]UnifiedItem, 0, len(items))
	for _, it := range items {
		it.DaysUntilNext = today.DaysUntil(it.NextDate)
		if it.IsActive && it.DaysUntilNext <= withinDays {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextDate.Before(out[j].NextDate.Time)
	})
	return out
}

// PartitionActivePaused splits items by their active flag. Each half is
// sorted ascending by title, case-sensitive.
func PartitionActivePaused(items []UnifiedItem) (active, paused []UnifiedItem) {
	for _, it := range items {
		if it.IsActive {
			active = append(active, it)
		} else {
			paused = append(paused, it)
		}
	}
	byTitle := func(s []UnifiedItem) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Title < s[j].Title })
	}
	byTitle(active)
	byTitle(paused)
	return active, paused
}

// ApplyTypeFilter keeps only items matching the filter. FilterAll is identity;
// an unknown filter behaves like FilterAll.
func ApplyTypeFilter(items []UnifiedItem, filter TypeFilter) []UnifiedItem {
	switch filter {
	case FilterIncome:
		out := make([]UnifiedItem, 0, len(items))
		for _, it := range items {
			if it.IsIncome() {
				out = append(out, it)
			}
		}
		return out
	case FilterExpenses:
		out := make([]UnifiedItem, 0, len(items))
		for _, it := range items {
			if it.IsExpense() {
				out = append(out, it)
			}
		}
		return out
	default:
		return items
	}
}
