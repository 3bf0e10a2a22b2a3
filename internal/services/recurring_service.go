package services

import (
	"context"
	"fmt"
	"log/slog"

	"cadence/internal/allocation"
	"cadence/internal/amqp"
	"cadence/internal/core"
	"cadence/internal/schedule"
	"cadence/internal/storage"
	"cadence/internal/view"

	"github.com/google/uuid"
)

// RecurringService orchestrates recurring item operations across SQLite and AMQP.
// Every schedule transition takes an explicit today so callers, tests, and the
// background processor all agree on what "now" means.
type RecurringService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewRecurringService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *RecurringService {
	return &RecurringService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

func (s *RecurringService) CreateExpense(ctx context.Context, e core.RecurringExpense) (core.RecurringExpense, error) {
	if err := e.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	return s.storage.CreateExpense(ctx, e)
}

func (s *RecurringService) GetExpense(ctx context.Context, id int64) (core.RecurringExpense, error) {
	return s.storage.GetExpense(ctx, id)
}

func (s *RecurringService) ListExpenses(ctx context.Context) ([]core.RecurringExpense, error) {
	return s.storage.ListExpenses(ctx)
}

func (s *RecurringService) UpdateExpense(ctx context.Context, e core.RecurringExpense) (core.RecurringExpense, error) {
	if err := e.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	if err := s.storage.UpdateExpense(ctx, e); err != nil {
		return core.RecurringExpense{}, err
	}
	return s.storage.GetExpense(ctx, e.ID)
}

func (s *RecurringService) DeleteExpense(ctx context.Context, id int64) error {
	return s.storage.DeleteExpense(ctx, id)
}

// PauseExpense stops an expense from surfacing or processing. The schedule is
// untouched; resuming picks up from the same next due date.
func (s *RecurringService) PauseExpense(ctx context.Context, id int64) error {
	return s.storage.SetExpenseActive(ctx, id, false)
}

func (s *RecurringService) ResumeExpense(ctx context.Context, id int64) error {
	return s.storage.SetExpenseActive(ctx, id, true)
}

// PayExpense records a ledger transaction dated today and rolls the schedule
// forward one period from the current due date.
func (s *RecurringService) PayExpense(ctx context.Context, id int64, today core.Date) (core.RecurringExpense, error) {
	e, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return core.RecurringExpense{}, err
	}

	next, err := schedule.Advance(e.NextDueDate, e.Every, e.CustomDays)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("advance expense %d: %w", id, err)
	}

	tx, err := s.storage.CreateTransaction(ctx, core.Transaction{
		Kind:       core.TransactionExpense,
		SourceID:   e.ID,
		Title:      e.Title,
		Amount:     e.Amount,
		OccurredOn: today,
	})
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("record payment: %w", err)
	}

	if err := s.storage.AdvanceExpense(ctx, id, next, today); err != nil {
		return core.RecurringExpense{}, err
	}

	s.publishSync(ctx, tx)

	slog.InfoContext(ctx, "Recurring expense paid",
		"id", e.ID,
		"title", e.Title,
		"paid_on", today.String(),
		"next_due_date", next.String())

	return s.storage.GetExpense(ctx, id)
}

// SkipExpense rolls the schedule forward without recording a payment.
func (s *RecurringService) SkipExpense(ctx context.Context, id int64) (core.RecurringExpense, error) {
	e, err := s.storage.GetExpense(ctx, id)
	if err != nil {
		return core.RecurringExpense{}, err
	}

	next, err := schedule.Advance(e.NextDueDate, e.Every, e.CustomDays)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("advance expense %d: %w", id, err)
	}

	if err := s.storage.AdvanceExpense(ctx, id, next, core.Date{}); err != nil {
		return core.RecurringExpense{}, err
	}

	slog.InfoContext(ctx, "Recurring expense skipped",
		"id", e.ID,
		"title", e.Title,
		"next_due_date", next.String())

	return s.storage.GetExpense(ctx, id)
}

func (s *RecurringService) CreateIncome(ctx context.Context, in core.RecurringIncome) (core.RecurringIncome, error) {
	if err := in.Validate(); err != nil {
		return core.RecurringIncome{}, err
	}
	created, err := s.storage.CreateIncome(ctx, in)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	created.Allocations = allocation.Recompute(created.Amount, created.Allocations)
	return created, nil
}

// GetIncome returns an income with allocation amounts freshly derived from
// the current income amount.
func (s *RecurringService) GetIncome(ctx context.Context, id int64) (core.RecurringIncome, error) {
	in, err := s.storage.GetIncome(ctx, id)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	in.Allocations = allocation.Recompute(in.Amount, in.Allocations)
	return in, nil
}

func (s *RecurringService) ListIncomes(ctx context.Context) ([]core.RecurringIncome, error) {
	incomes, err := s.storage.ListIncomes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range incomes {
		incomes[i].Allocations = allocation.Recompute(incomes[i].Amount, incomes[i].Allocations)
	}
	return incomes, nil
}

func (s *RecurringService) UpdateIncome(ctx context.Context, in core.RecurringIncome) (core.RecurringIncome, error) {
	if err := in.Validate(); err != nil {
		return core.RecurringIncome{}, err
	}
	if err := s.storage.UpdateIncome(ctx, in); err != nil {
		return core.RecurringIncome{}, err
	}
	return s.GetIncome(ctx, in.ID)
}

func (s *RecurringService) DeleteIncome(ctx context.Context, id int64) error {
	return s.storage.DeleteIncome(ctx, id)
}

func (s *RecurringService) PauseIncome(ctx context.Context, id int64) error {
	return s.storage.SetIncomeActive(ctx, id, false)
}

func (s *RecurringService) ResumeIncome(ctx context.Context, id int64) error {
	return s.storage.SetIncomeActive(ctx, id, true)
}

// ReceiveIncome records the income transaction plus one allocation transaction
// per goal, with amounts derived from the current income amount, then rolls
// the schedule forward.
func (s *RecurringService) ReceiveIncome(ctx context.Context, id int64, today core.Date) (core.RecurringIncome, error) {
	in, err := s.storage.GetIncome(ctx, id)
	if err != nil {
		return core.RecurringIncome{}, err
	}

	next, err := schedule.Advance(in.NextDate, in.Every, in.CustomDays)
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("advance income %d: %w", id, err)
	}

	incomeTx, err := s.storage.CreateTransaction(ctx, core.Transaction{
		Kind:       core.TransactionIncome,
		SourceID:   in.ID,
		Title:      in.Title(),
		Amount:     in.Amount,
		OccurredOn: today,
	})
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("record income: %w", err)
	}
	s.publishSync(ctx, incomeTx)

	for _, a := range allocation.Recompute(in.Amount, in.Allocations) {
		allocTx, err := s.storage.CreateTransaction(ctx, core.Transaction{
			Kind:       core.TransactionAllocation,
			SourceID:   in.ID,
			GoalID:     a.GoalID,
			Title:      s.allocationTitle(ctx, in, a.GoalID),
			Amount:     a.Amount,
			OccurredOn: today,
		})
		if err != nil {
			return core.RecurringIncome{}, fmt.Errorf("record allocation for goal %s: %w", a.GoalID, err)
		}
		s.publishSync(ctx, allocTx)
	}

	if err := s.storage.AdvanceIncome(ctx, id, next, today); err != nil {
		return core.RecurringIncome{}, err
	}

	slog.InfoContext(ctx, "Recurring income received",
		"id", in.ID,
		"source", string(in.Source),
		"amount_cents", in.Amount.Cents,
		"allocations", len(in.Allocations),
		"received_on", today.String(),
		"next_date", next.String())

	return s.GetIncome(ctx, id)
}

// SkipIncome rolls the schedule forward without recording any transactions.
func (s *RecurringService) SkipIncome(ctx context.Context, id int64) (core.RecurringIncome, error) {
	in, err := s.storage.GetIncome(ctx, id)
	if err != nil {
		return core.RecurringIncome{}, err
	}

	next, err := schedule.Advance(in.NextDate, in.Every, in.CustomDays)
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("advance income %d: %w", id, err)
	}

	if err := s.storage.AdvanceIncome(ctx, id, next, core.Date{}); err != nil {
		return core.RecurringIncome{}, err
	}

	slog.InfoContext(ctx, "Recurring income skipped",
		"id", in.ID,
		"next_date", next.String())

	return s.GetIncome(ctx, id)
}

// AllocationPreview is what the allocation editor shows before saving.
type AllocationPreview struct {
	Allocations []core.GoalAllocation
	Total       string
	Remaining   core.Money
	Valid       bool
}

// PreviewAllocations computes derived amounts and the cap check for a set of
// editor inputs without persisting anything.
func (s *RecurringService) PreviewAllocations(ctx context.Context, incomeID int64, inputs []allocation.Input) (AllocationPreview, error) {
	in, err := s.storage.GetIncome(ctx, incomeID)
	if err != nil {
		return AllocationPreview{}, err
	}

	allocs, err := allocation.BuildAllocationList(in.Amount, inputs)
	if err != nil {
		return AllocationPreview{}, err
	}

	total := allocation.TotalAllocatedPercentage(inputs)
	return AllocationPreview{
		Allocations: allocs,
		Total:       total.String(),
		Remaining:   allocation.RemainingAmount(in.Amount, allocs),
		Valid:       allocation.IsValidAllocationSet(total),
	}, nil
}

// SetAllocations validates and persists an income's allocation list as a
// whole. A set over the 100% cap is rejected before anything is written.
func (s *RecurringService) SetAllocations(ctx context.Context, incomeID int64, inputs []allocation.Input) (core.RecurringIncome, error) {
	in, err := s.storage.GetIncome(ctx, incomeID)
	if err != nil {
		return core.RecurringIncome{}, err
	}

	allocs, err := allocation.BuildAllocationList(in.Amount, inputs)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	if err := core.ValidateAllocations(allocs); err != nil {
		return core.RecurringIncome{}, err
	}

	if err := s.storage.ReplaceAllocations(ctx, incomeID, allocs); err != nil {
		return core.RecurringIncome{}, err
	}

	slog.InfoContext(ctx, "Income allocations replaced",
		"income_id", incomeID,
		"allocations", len(allocs))

	return s.GetIncome(ctx, incomeID)
}

func (s *RecurringService) CreateGoal(ctx context.Context, name string) (core.Goal, error) {
	g := core.Goal{ID: uuid.New(), Name: name, IsActive: true}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := s.storage.CreateGoal(ctx, g); err != nil {
		return core.Goal{}, err
	}
	return g, nil
}

func (s *RecurringService) ListGoals(ctx context.Context) ([]core.Goal, error) {
	return s.storage.ListGoals(ctx)
}

func (s *RecurringService) SetGoalActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.storage.SetGoalActive(ctx, id, active)
}

// Unified merges expenses and incomes into the single dashboard list.
func (s *RecurringService) Unified(ctx context.Context, today core.Date) ([]view.UnifiedItem, error) {
	expenses, err := s.storage.ListExpenses(ctx)
	if err != nil {
		return nil, err
	}
	incomes, err := s.ListIncomes(ctx)
	if err != nil {
		return nil, err
	}
	return view.Build(expenses, incomes, today), nil
}

// Upcoming returns active items due within the window, soonest first.
func (s *RecurringService) Upcoming(ctx context.Context, today core.Date, withinDays int) ([]view.UnifiedItem, error) {
	items, err := s.Unified(ctx, today)
	if err != nil {
		return nil, err
	}
	return view.Upcoming(items, today, withinDays), nil
}

func (s *RecurringService) allocationTitle(ctx context.Context, in core.RecurringIncome, goalID uuid.UUID) string {
	goal, err := s.storage.GetGoal(ctx, goalID)
	if err != nil {
		slog.WarnContext(ctx, "Goal lookup failed for allocation title",
			"goal_id", goalID.String(), "error", err)
		return fmt.Sprintf("%s allocation", in.Title())
	}
	return fmt.Sprintf("%s allocation: %s", in.Title(), goal.Name)
}

func (s *RecurringService) publishSync(ctx context.Context, tx core.Transaction) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message", "transaction_id", tx.ID)
		return
	}
	if err := s.amqpClient.PublishTransactionSync(ctx, tx.ID, string(tx.Kind)); err != nil {
		// The transaction is durable locally; the periodic sweep retries it.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"transaction_id", tx.ID, "error", err)
	}
}

// Ping reports whether the backing store is reachable.
func (s *RecurringService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// Close closes both storage and AMQP connections
func (s *RecurringService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close recurring service: %v", errs)
	}

	return nil
}
