package view_test

import (
	"testing"

	"cadence/internal/core"
	"cadence/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expense(id int64, title string, next core.Date, active bool) core.RecurringExpense {
	return core.RecurringExpense{
		ID:          id,
		Title:       title,
		Amount:      core.Money{Cents: 1000},
		Category:    "General",
		Every:       core.Monthly,
		NextDueDate: next,
		IsActive:    active,
	}
}

func income(id int64, desc string, next core.Date, active bool) core.RecurringIncome {
	return core.RecurringIncome{
		ID:          id,
		Amount:      core.Money{Cents: 500000},
		Source:      core.SourceSalary,
		Description: desc,
		Every:       core.Monthly,
		NextDate:    next,
		IsActive:    active,
	}
}

func TestBuild(t *testing.T) {
	today := core.NewDate(2024, 6, 10)

	t.Run("empty inputs yield empty list", func(t *testing.T) {
		items := view.Build(nil, nil, today)
		assert.Empty(t, items)
	})

	t.Run("maps both collections into the common shape", func(t *testing.T) {
		items := view.Build(
			[]core.RecurringExpense{expense(1, "Rent", core.NewDate(2024, 6, 15), true)},
			[]core.RecurringIncome{income(7, "Payroll", core.NewDate(2024, 6, 25), true)},
			today,
		)
		require.Len(t, items, 2)

		exp := items[0]
		assert.True(t, exp.IsExpense())
		assert.False(t, exp.IsIncome())
		assert.Equal(t, int64(1), exp.ID)
		assert.Equal(t, "Rent", exp.Title)
		assert.Equal(t, 5, exp.DaysUntilNext)
		require.NotNil(t, exp.Expense)
		assert.Nil(t, exp.Income)

		in := items[1]
		assert.True(t, in.IsIncome())
		assert.Equal(t, "Payroll", in.Title)
		assert.Equal(t, 15, in.DaysUntilNext)
		require.NotNil(t, in.Income)
		assert.Nil(t, in.Expense)
	})

	t.Run("income without description falls back to source", func(t *testing.T) {
		items := view.Build(nil, []core.RecurringIncome{income(1, "", today, true)}, today)
		require.Len(t, items, 1)
		assert.Equal(t, "salary", items[0].Title)
	})

	t.Run("overdue items carry negative days", func(t *testing.T) {
		items := view.Build([]core.RecurringExpense{expense(1, "Gym", core.NewDate(2024, 6, 5), true)}, nil, today)
		require.Len(t, items, 1)
		assert.Equal(t, -5, items[0].DaysUntilNext)
	})
}

func TestUpcoming(t *testing.T) {
	today := core.NewDate(2024, 6, 10)

	t.Run("includes overdue items", func(t *testing.T) {
		items := view.Build([]core.RecurringExpense{expense(1, "Late bill", core.NewDate(2024, 6, 5), true)}, nil, today)
		up := view.Upcoming(items, today, view.DefaultUpcomingWindow)
		require.Len(t, up, 1)
		assert.Equal(t, -5, up[0].DaysUntilNext)
	})

	t.Run("excludes paused items even when due", func(t *testing.T) {
		items := view.Build([]core.RecurringExpense{expense(1, "Paused bill", core.NewDate(2024, 6, 5), false)}, nil, today)
		up := view.Upcoming(items, today, view.DefaultUpcomingWindow)
		assert.Empty(t, up)
	})

	t.Run("excludes items beyond the window", func(t *testing.T) {
		items := view.Build([]core.RecurringExpense{
			expense(1, "Soon", core.NewDate(2024, 6, 17), true),
			expense(2, "Later", core.NewDate(2024, 6, 18), true),
		}, nil, today)
		up := view.Upcoming(items, today, 7)
		require.Len(t, up, 1)
		assert.Equal(t, "Soon", up[0].Title)
	})

	t.Run("sorted ascending by next date", func(t *testing.T) {
		items := view.Build([]core.RecurringExpense{
			expense(1, "Third", core.NewDate(2024, 6, 14), true),
			expense(2, "First", core.NewDate(2024, 6, 5), true),
			expense(3, "Second", core.NewDate(2024, 6, 11), true),
		}, nil, today)
		up := view.Upcoming(items, today, 7)
		require.Len(t, up, 3)
		assert.Equal(t, "First", up[0].Title)
		assert.Equal(t, "Second", up[1].Title)
		assert.Equal(t, "Third", up[2].Title)
	})

	t.Run("equal dates preserve input order", func(t *testing.T) {
		due := core.NewDate(2024, 6, 12)
		items := view.Build([]core.RecurringExpense{
			expense(1, "Zebra", due, true),
			expense(2, "Apple", due, true),
		}, nil, today)
		up := view.Upcoming(items, today, 7)
		require.Len(t, up, 2)
		assert.Equal(t, "Zebra", up[0].Title)
		assert.Equal(t, "Apple", up[1].Title)
	})
}

func TestPartitionActivePaused(t *testing.T) {
	today := core.NewDate(2024, 6, 10)
	items := view.Build([]core.RecurringExpense{
		expense(1, "beta", today, true),
		expense(2, "Alpha", today, false),
		expense(3, "alpha", today, true),
		expense(4, "Beta", today, false),
	}, nil, today)

	active, paused := view.PartitionActivePaused(items)

	require.Len(t, active, 2)
	require.Len(t, paused, 2)
	// Case-sensitive ordering: uppercase sorts before lowercase.
	assert.Equal(t, "alpha", active[0].Title)
	assert.Equal(t, "beta", active[1].Title)
	assert.Equal(t, "Alpha", paused[0].Title)
	assert.Equal(t, "Beta", paused[1].Title)
}

func TestApplyTypeFilter(t *testing.T) {
	today := core.NewDate(2024, 6, 10)
	items := view.Build(
		[]core.RecurringExpense{expense(1, "Rent", today, true)},
		[]core.RecurringIncome{income(2, "Payroll", today, true)},
		today,
	)

	all := view.ApplyTypeFilter(items, view.FilterAll)
	assert.Len(t, all, 2)

	incomes := view.ApplyTypeFilter(items, view.FilterIncome)
	require.Len(t, incomes, 1)
	assert.True(t, incomes[0].IsIncome())

	expenses := view.ApplyTypeFilter(items, view.FilterExpenses)
	require.Len(t, expenses, 1)
	assert.True(t, expenses[0].IsExpense())
}
