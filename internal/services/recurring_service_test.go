package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"cadence/internal/allocation"
	"cadence/internal/core"
	"cadence/internal/services"
	"cadence/internal/storage"
	"cadence/internal/view"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*services.RecurringService, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "cadence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return services.NewRecurringService(repo, nil), repo
}

func TestCreateExpenseValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateExpense(ctx, core.RecurringExpense{
		Title:       "",
		Amount:      core.Money{Cents: 1000},
		Category:    "Misc",
		Every:       core.Monthly,
		NextDueDate: core.NewDate(2026, 9, 1),
	})
	assert.ErrorIs(t, err, core.ErrEmptyTitle)

	_, err = svc.CreateExpense(ctx, core.RecurringExpense{
		Title:       "Box sub",
		Amount:      core.Money{Cents: 1000},
		Category:    "Misc",
		Every:       core.Custom,
		NextDueDate: core.NewDate(2026, 9, 1),
	})
	assert.ErrorIs(t, err, core.ErrInvalidCustomDays)
}

func TestPayExpenseRecordsTransactionAndAdvances(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, core.RecurringExpense{
		Title:       "Rent",
		Amount:      core.Money{Cents: 120000},
		Category:    "Housing",
		Every:       core.Monthly,
		NextDueDate: core.NewDate(2026, 1, 31),
	})
	require.NoError(t, err)

	today := core.NewDate(2026, 2, 2)
	paid, err := svc.PayExpense(ctx, created.ID, today)
	require.NoError(t, err)

	// Advance anchors on the due date, not on when the user got around to it.
	assert.Equal(t, "2026-02-28", paid.NextDueDate.String())
	assert.Equal(t, "2026-02-02", paid.LastPaid.String())

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	tx, err := repo.GetTransaction(ctx, pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransactionExpense, tx.Kind)
	assert.Equal(t, created.ID, tx.SourceID)
	assert.Equal(t, int64(120000), tx.Amount.Cents)
	assert.Equal(t, "2026-02-02", tx.OccurredOn.String())
}

func TestSkipExpenseAdvancesWithoutTransaction(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, core.RecurringExpense{
		Title:       "Gym",
		Amount:      core.Money{Cents: 4500},
		Category:    "Health",
		Every:       core.Weekly,
		NextDueDate: core.NewDate(2026, 9, 7),
	})
	require.NoError(t, err)

	skipped, err := svc.SkipExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-14", skipped.NextDueDate.String())
	assert.True(t, skipped.LastPaid.IsZero())

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestReceiveIncomeRecordsAllocationTransactions(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	vacation, err := svc.CreateGoal(ctx, "Vacation")
	require.NoError(t, err)
	emergency, err := svc.CreateGoal(ctx, "Emergency fund")
	require.NoError(t, err)

	created, err := svc.CreateIncome(ctx, core.RecurringIncome{
		Amount:   core.Money{Cents: 500000},
		Source:   core.SourceSalary,
		Every:    core.Monthly,
		NextDate: core.NewDate(2026, 9, 27),
	})
	require.NoError(t, err)

	_, err = svc.SetAllocations(ctx, created.ID, []allocation.Input{
		{GoalID: vacation.ID, Enabled: true, Percentage: "20"},
		{GoalID: emergency.ID, Enabled: true, Percentage: "10"},
	})
	require.NoError(t, err)

	today := core.NewDate(2026, 9, 27)
	received, err := svc.ReceiveIncome(ctx, created.ID, today)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-27", received.NextDate.String())
	assert.Equal(t, "2026-09-27", received.LastGenerated.String())

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	var incomeCents, allocCents int64
	allocCount := 0
	for _, p := range pending {
		tx, err := repo.GetTransaction(ctx, p.ID)
		require.NoError(t, err)
		switch tx.Kind {
		case core.TransactionIncome:
			incomeCents += tx.Amount.Cents
		case core.TransactionAllocation:
			allocCents += tx.Amount.Cents
			allocCount++
		}
	}
	assert.Equal(t, int64(500000), incomeCents)
	assert.Equal(t, int64(150000), allocCents)
	assert.Equal(t, 2, allocCount)
}

func TestSetAllocationsRejectsOverflow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateGoal(ctx, "A")
	require.NoError(t, err)
	b, err := svc.CreateGoal(ctx, "B")
	require.NoError(t, err)
	c, err := svc.CreateGoal(ctx, "C")
	require.NoError(t, err)

	created, err := svc.CreateIncome(ctx, core.RecurringIncome{
		Amount:   core.Money{Cents: 100000},
		Source:   core.SourceFreelance,
		Every:    core.Monthly,
		NextDate: core.NewDate(2026, 10, 1),
	})
	require.NoError(t, err)

	_, err = svc.SetAllocations(ctx, created.ID, []allocation.Input{
		{GoalID: a.ID, Enabled: true, Percentage: "40"},
		{GoalID: b.ID, Enabled: true, Percentage: "40"},
		{GoalID: c.ID, Enabled: true, Percentage: "40"},
	})
	assert.ErrorIs(t, err, core.ErrAllocationOverflow)

	// Nothing was written.
	got, err := svc.GetIncome(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Allocations)
}

func TestAllocationAmountsFollowIncomeAmount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, "House")
	require.NoError(t, err)

	created, err := svc.CreateIncome(ctx, core.RecurringIncome{
		Amount:   core.Money{Cents: 500000},
		Source:   core.SourceSalary,
		Every:    core.Monthly,
		NextDate: core.NewDate(2026, 9, 27),
	})
	require.NoError(t, err)

	_, err = svc.SetAllocations(ctx, created.ID, []allocation.Input{
		{GoalID: goal.ID, Enabled: true, Percentage: "20"},
	})
	require.NoError(t, err)

	got, err := svc.GetIncome(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Allocations, 1)
	assert.Equal(t, int64(100000), got.Allocations[0].Amount.Cents)

	// Raising the income amount changes the derived amount on the next read.
	got.Amount = core.Money{Cents: 600000}
	_, err = svc.UpdateIncome(ctx, got)
	require.NoError(t, err)

	got, err = svc.GetIncome(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Allocations, 1)
	assert.Equal(t, int64(120000), got.Allocations[0].Amount.Cents)
}

func TestPreviewAllocationsDoesNotPersist(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	goal, err := svc.CreateGoal(ctx, "Travel")
	require.NoError(t, err)

	created, err := svc.CreateIncome(ctx, core.RecurringIncome{
		Amount:   core.Money{Cents: 200000},
		Source:   core.SourceOther,
		Every:    core.Weekly,
		NextDate: core.NewDate(2026, 9, 7),
	})
	require.NoError(t, err)

	preview, err := svc.PreviewAllocations(ctx, created.ID, []allocation.Input{
		{GoalID: goal.ID, Enabled: true, Percentage: "150"},
	})
	require.NoError(t, err)
	assert.False(t, preview.Valid)
	require.Len(t, preview.Allocations, 1)
	assert.Equal(t, int64(300000), preview.Allocations[0].Amount.Cents)
	assert.Equal(t, int64(-100000), preview.Remaining.Cents)

	got, err := svc.GetIncome(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Allocations)
}

func TestUnifiedMergesBothKinds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateExpense(ctx, core.RecurringExpense{
		Title:       "Rent",
		Amount:      core.Money{Cents: 120000},
		Category:    "Housing",
		Every:       core.Monthly,
		NextDueDate: core.NewDate(2026, 9, 1),
	})
	require.NoError(t, err)

	_, err = svc.CreateIncome(ctx, core.RecurringIncome{
		Amount:   core.Money{Cents: 500000},
		Source:   core.SourceSalary,
		Every:    core.Monthly,
		NextDate: core.NewDate(2026, 9, 27),
	})
	require.NoError(t, err)

	today := core.NewDate(2026, 8, 30)
	items, err := svc.Unified(ctx, today)
	require.NoError(t, err)
	require.Len(t, items, 2)

	upcoming, err := svc.Upcoming(ctx, today, view.DefaultUpcomingWindow)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, view.KindExpense, upcoming[0].Kind)
	assert.Equal(t, 2, upcoming[0].DaysUntilNext)
}

func TestPauseExcludesFromUpcoming(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, core.RecurringExpense{
		Title:       "Netflix",
		Amount:      core.Money{Cents: 1299},
		Category:    "Entertainment",
		Every:       core.Monthly,
		NextDueDate: core.NewDate(2026, 9, 2),
	})
	require.NoError(t, err)

	today := core.NewDate(2026, 8, 30)
	require.NoError(t, svc.PauseExpense(ctx, created.ID))

	upcoming, err := svc.Upcoming(ctx, today, view.DefaultUpcomingWindow)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	require.NoError(t, svc.ResumeExpense(ctx, created.ID))
	upcoming, err = svc.Upcoming(ctx, today, view.DefaultUpcomingWindow)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "2026-09-02", upcoming[0].NextDate.String())
}
