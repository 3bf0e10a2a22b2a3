package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cadence/internal/core"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

// Ping verifies the database is still reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.RecurringExpense) (core.RecurringExpense, error) {
	row, err := r.queries.CreateRecurringExpense(ctx, CreateRecurringExpenseParams{
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Frequency:   string(e.Every),
		CustomDays:  int64(e.CustomDays),
		NextDueDate: e.NextDueDate.String(),
		AutoProcess: e.AutoProcess,
	})
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("create recurring expense: %w", err)
	}

	slog.InfoContext(ctx, "Recurring expense saved",
		"id", row.ID,
		"title", row.Title,
		"amount_cents", row.AmountCents,
		"next_due_date", row.NextDueDate)

	return expenseFromRow(row)
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.RecurringExpense, error) {
	row, err := r.queries.GetRecurringExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringExpense{}, fmt.Errorf("recurring expense %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("get recurring expense: %w", err)
	}
	return expenseFromRow(row)
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.RecurringExpense, error) {
	rows, err := r.queries.ListRecurringExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring expenses: %w", err)
	}

	expenses := make([]core.RecurringExpense, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.RecurringExpense) error {
	if _, err := r.GetExpense(ctx, e.ID); err != nil {
		return err
	}
	err := r.queries.UpdateRecurringExpense(ctx, UpdateRecurringExpenseParams{
		ID:          e.ID,
		Title:       e.Title,
		AmountCents: e.Amount.Cents,
		Category:    e.Category,
		Frequency:   string(e.Every),
		CustomDays:  int64(e.CustomDays),
		NextDueDate: e.NextDueDate.String(),
		AutoProcess: e.AutoProcess,
	})
	if err != nil {
		return fmt.Errorf("update recurring expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	if _, err := r.GetExpense(ctx, id); err != nil {
		return err
	}
	if err := r.queries.DeleteRecurringExpense(ctx, id); err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetExpenseActive(ctx context.Context, id int64, active bool) error {
	if _, err := r.GetExpense(ctx, id); err != nil {
		return err
	}
	err := r.queries.SetRecurringExpenseActive(ctx, SetRecurringExpenseActiveParams{ID: id, IsActive: active})
	if err != nil {
		return fmt.Errorf("set recurring expense active: %w", err)
	}
	return nil
}

// AdvanceExpense moves the schedule forward. A zero lastPaid leaves the
// stored last_paid untouched, which is how skips differ from payments.
func (r *SQLiteRepository) AdvanceExpense(ctx context.Context, id int64, nextDue core.Date, lastPaid core.Date) error {
	err := r.queries.AdvanceRecurringExpense(ctx, AdvanceRecurringExpenseParams{
		ID:          id,
		NextDueDate: nextDue.String(),
		LastPaid:    nullDate(lastPaid),
	})
	if err != nil {
		return fmt.Errorf("advance recurring expense: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateIncome(ctx context.Context, in core.RecurringIncome) (core.RecurringIncome, error) {
	row, err := r.queries.CreateRecurringIncome(ctx, CreateRecurringIncomeParams{
		AmountCents: in.Amount.Cents,
		Source:      string(in.Source),
		Description: in.Description,
		Frequency:   string(in.Every),
		CustomDays:  int64(in.CustomDays),
		NextDate:    in.NextDate.String(),
		AutoProcess: in.AutoProcess,
	})
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("create recurring income: %w", err)
	}

	created, err := incomeFromRow(row, nil)
	if err != nil {
		return core.RecurringIncome{}, err
	}

	if len(in.Allocations) > 0 {
		if err := r.ReplaceAllocations(ctx, created.ID, in.Allocations); err != nil {
			return core.RecurringIncome{}, err
		}
		created.Allocations = in.Allocations
	}

	slog.InfoContext(ctx, "Recurring income saved",
		"id", created.ID,
		"source", row.Source,
		"amount_cents", row.AmountCents,
		"allocations", len(created.Allocations))

	return created, nil
}

func (r *SQLiteRepository) GetIncome(ctx context.Context, id int64) (core.RecurringIncome, error) {
	row, err := r.queries.GetRecurringIncome(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringIncome{}, fmt.Errorf("recurring income %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("get recurring income: %w", err)
	}

	allocs, err := r.allocationsForIncome(ctx, id)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	return incomeFromRow(row, allocs)
}

func (r *SQLiteRepository) ListIncomes(ctx context.Context) ([]core.RecurringIncome, error) {
	rows, err := r.queries.ListRecurringIncomes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring incomes: %w", err)
	}

	incomes := make([]core.RecurringIncome, 0, len(rows))
	for _, row := range rows {
		allocs, err := r.allocationsForIncome(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		in, err := incomeFromRow(row, allocs)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, in)
	}
	return incomes, nil
}

func (r *SQLiteRepository) UpdateIncome(ctx context.Context, in core.RecurringIncome) error {
	if _, err := r.GetIncome(ctx, in.ID); err != nil {
		return err
	}
	err := r.queries.UpdateRecurringIncome(ctx, UpdateRecurringIncomeParams{
		ID:          in.ID,
		AmountCents: in.Amount.Cents,
		Source:      string(in.Source),
		Description: in.Description,
		Frequency:   string(in.Every),
		CustomDays:  int64(in.CustomDays),
		NextDate:    in.NextDate.String(),
		AutoProcess: in.AutoProcess,
	})
	if err != nil {
		return fmt.Errorf("update recurring income: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteIncome(ctx context.Context, id int64) error {
	if _, err := r.GetIncome(ctx, id); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete income: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	if err := qtx.DeleteAllocationsByIncome(ctx, id); err != nil {
		return fmt.Errorf("delete income allocations: %w", err)
	}
	if err := qtx.DeleteRecurringIncome(ctx, id); err != nil {
		return fmt.Errorf("delete recurring income: %w", err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) SetIncomeActive(ctx context.Context, id int64, active bool) error {
	if _, err := r.GetIncome(ctx, id); err != nil {
		return err
	}
	err := r.queries.SetRecurringIncomeActive(ctx, SetRecurringIncomeActiveParams{ID: id, IsActive: active})
	if err != nil {
		return fmt.Errorf("set recurring income active: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AdvanceIncome(ctx context.Context, id int64, nextDate core.Date, lastGenerated core.Date) error {
	err := r.queries.AdvanceRecurringIncome(ctx, AdvanceRecurringIncomeParams{
		ID:            id,
		NextDate:      nextDate.String(),
		LastGenerated: nullDate(lastGenerated),
	})
	if err != nil {
		return fmt.Errorf("advance recurring income: %w", err)
	}
	return nil
}

// ReplaceAllocations swaps an income's allocation list atomically. The list
// is stored whole or not at all so a partial write can never leave the income
// over the 100% cap.
func (r *SQLiteRepository) ReplaceAllocations(ctx context.Context, incomeID int64, allocs []core.GoalAllocation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace allocations: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	if err := qtx.DeleteAllocationsByIncome(ctx, incomeID); err != nil {
		return fmt.Errorf("clear allocations: %w", err)
	}
	for i, a := range allocs {
		err := qtx.InsertGoalAllocation(ctx, InsertGoalAllocationParams{
			IncomeID:   incomeID,
			GoalID:     a.GoalID.String(),
			Percentage: a.Percentage.String(),
			Position:   int64(i),
		})
		if err != nil {
			return fmt.Errorf("insert allocation for goal %s: %w", a.GoalID, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) allocationsForIncome(ctx context.Context, incomeID int64) ([]core.GoalAllocation, error) {
	rows, err := r.queries.ListAllocationsByIncome(ctx, incomeID)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}

	allocs := make([]core.GoalAllocation, 0, len(rows))
	for _, row := range rows {
		goalID, err := uuid.Parse(row.GoalID)
		if err != nil {
			return nil, fmt.Errorf("parse goal id %q: %w", row.GoalID, err)
		}
		pct, err := decimal.NewFromString(row.Percentage)
		if err != nil {
			return nil, fmt.Errorf("parse allocation percentage %q: %w", row.Percentage, err)
		}
		allocs = append(allocs, core.GoalAllocation{GoalID: goalID, Percentage: pct})
	}
	return allocs, nil
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, g core.Goal) error {
	if err := r.queries.CreateGoal(ctx, CreateGoalParams{ID: g.ID.String(), Name: g.Name}); err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetGoal(ctx context.Context, id uuid.UUID) (core.Goal, error) {
	row, err := r.queries.GetGoal(ctx, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, fmt.Errorf("goal %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return goalFromRow(row)
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.queries.ListGoals(ctx)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	goals := make([]core.Goal, 0, len(rows))
	for _, row := range rows {
		g, err := goalFromRow(row)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func (r *SQLiteRepository) SetGoalActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := r.GetGoal(ctx, id); err != nil {
		return err
	}
	err := r.queries.SetGoalActive(ctx, SetGoalActiveParams{ID: id.String(), IsActive: active})
	if err != nil {
		return fmt.Errorf("set goal active: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var goalID sql.NullString
	if t.GoalID != uuid.Nil {
		goalID = sql.NullString{String: t.GoalID.String(), Valid: true}
	}
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Kind:        string(t.Kind),
		SourceID:    t.SourceID,
		GoalID:      goalID,
		Title:       t.Title,
		AmountCents: t.Amount.Cents,
		OccurredOn:  t.OccurredOn.String(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", row.ID,
		"kind", row.Kind,
		"source_id", row.SourceID,
		"amount_cents", row.AmountCents)

	return transactionFromRow(row)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return transactionFromRow(row)
}

// PendingSyncTransaction is the minimal payload the sync queue needs.
type PendingSyncTransaction struct {
	ID   int64
	Kind core.TransactionKind
}

func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.queries.GetPendingSyncTransactions(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}

	pending := make([]PendingSyncTransaction, len(rows))
	for i, row := range rows {
		pending[i] = PendingSyncTransaction{ID: row.ID, Kind: core.TransactionKind(row.Kind)}
	}
	return pending, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSynced(ctx, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkTransactionSyncError(ctx, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

func expenseFromRow(row RecurringExpenseRow) (core.RecurringExpense, error) {
	nextDue, err := core.ParseDate(row.NextDueDate)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("parse next_due_date %q: %w", row.NextDueDate, err)
	}
	lastPaid, err := parseNullDate(row.LastPaid)
	if err != nil {
		return core.RecurringExpense{}, fmt.Errorf("parse last_paid: %w", err)
	}
	return core.RecurringExpense{
		ID:          row.ID,
		Title:       row.Title,
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    row.Category,
		Every:       core.Frequency(row.Frequency),
		CustomDays:  int(row.CustomDays),
		NextDueDate: nextDue,
		IsActive:    row.IsActive,
		AutoProcess: row.AutoProcess,
		LastPaid:    lastPaid,
	}, nil
}

func incomeFromRow(row RecurringIncomeRow, allocs []core.GoalAllocation) (core.RecurringIncome, error) {
	nextDate, err := core.ParseDate(row.NextDate)
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("parse next_date %q: %w", row.NextDate, err)
	}
	lastGenerated, err := parseNullDate(row.LastGenerated)
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("parse last_generated: %w", err)
	}
	return core.RecurringIncome{
		ID:            row.ID,
		Amount:        core.Money{Cents: row.AmountCents},
		Source:        core.IncomeSource(row.Source),
		Description:   row.Description,
		Every:         core.Frequency(row.Frequency),
		CustomDays:    int(row.CustomDays),
		NextDate:      nextDate,
		IsActive:      row.IsActive,
		AutoProcess:   row.AutoProcess,
		LastGenerated: lastGenerated,
		Allocations:   allocs,
	}, nil
}

func goalFromRow(row GoalRow) (core.Goal, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("parse goal id %q: %w", row.ID, err)
	}
	return core.Goal{ID: id, Name: row.Name, IsActive: row.IsActive}, nil
}

func transactionFromRow(row TransactionRow) (core.Transaction, error) {
	occurredOn, err := core.ParseDate(row.OccurredOn)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse occurred_on %q: %w", row.OccurredOn, err)
	}
	goalID := uuid.Nil
	if row.GoalID.Valid {
		goalID, err = uuid.Parse(row.GoalID.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parse transaction goal id %q: %w", row.GoalID.String, err)
		}
	}
	return core.Transaction{
		ID:         row.ID,
		Kind:       core.TransactionKind(row.Kind),
		SourceID:   row.SourceID,
		GoalID:     goalID,
		Title:      row.Title,
		Amount:     core.Money{Cents: row.AmountCents},
		OccurredOn: occurredOn,
	}, nil
}

func nullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}
