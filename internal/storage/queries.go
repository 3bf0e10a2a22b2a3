package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of *sql.DB and *sql.Tx the queries need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns. Dates travel as ISO strings; the
// repository layer maps them to domain types.
type (
	RecurringExpenseRow struct {
		ID          int64
		Title       string
		AmountCents int64
		Category    string
		Frequency   string
		CustomDays  int64
		NextDueDate string
		IsActive    bool
		AutoProcess bool
		LastPaid    sql.NullString
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	RecurringIncomeRow struct {
		ID            int64
		AmountCents   int64
		Source        string
		Description   string
		Frequency     string
		CustomDays    int64
		NextDate      string
		IsActive      bool
		AutoProcess   bool
		LastGenerated sql.NullString
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	GoalRow struct {
		ID       string
		Name     string
		IsActive bool
	}

	GoalAllocationRow struct {
		ID         int64
		IncomeID   int64
		GoalID     string
		Percentage string
		Position   int64
	}

	TransactionRow struct {
		ID           int64
		Kind         string
		SourceID     int64
		GoalID       sql.NullString
		Title        string
		AmountCents  int64
		OccurredOn   string
		SyncStatus   string
		SyncAttempts int64
		CreatedAt    time.Time
	}
)

const expenseColumns = `id, title, amount_cents, category, frequency, custom_days, next_due_date, is_active, auto_process, last_paid, created_at, updated_at`

func scanExpense(row interface{ Scan(...any) error }) (RecurringExpenseRow, error) {
	var e RecurringExpenseRow
	err := row.Scan(&e.ID, &e.Title, &e.AmountCents, &e.Category, &e.Frequency, &e.CustomDays,
		&e.NextDueDate, &e.IsActive, &e.AutoProcess, &e.LastPaid, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

type CreateRecurringExpenseParams struct {
	Title       string
	AmountCents int64
	Category    string
	Frequency   string
	CustomDays  int64
	NextDueDate string
	AutoProcess bool
}

func (q *Queries) CreateRecurringExpense(ctx context.Context, p CreateRecurringExpenseParams) (RecurringExpenseRow, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO recurring_expenses (title, amount_cents, category, frequency, custom_days, next_due_date, auto_process)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+expenseColumns,
		p.Title, p.AmountCents, p.Category, p.Frequency, p.CustomDays, p.NextDueDate, p.AutoProcess)
	return scanExpense(row)
}

func (q *Queries) GetRecurringExpense(ctx context.Context, id int64) (RecurringExpenseRow, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM recurring_expenses WHERE id = ?`, id)
	return scanExpense(row)
}

func (q *Queries) ListRecurringExpenses(ctx context.Context) ([]RecurringExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM recurring_expenses ORDER BY next_due_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []RecurringExpenseRow
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

type UpdateRecurringExpenseParams struct {
	ID          int64
	Title       string
	AmountCents int64
	Category    string
	Frequency   string
	CustomDays  int64
	NextDueDate string
	AutoProcess bool
}

func (q *Queries) UpdateRecurringExpense(ctx context.Context, p UpdateRecurringExpenseParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE recurring_expenses
		SET title = ?, amount_cents = ?, category = ?, frequency = ?, custom_days = ?,
		    next_due_date = ?, auto_process = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.Title, p.AmountCents, p.Category, p.Frequency, p.CustomDays, p.NextDueDate, p.AutoProcess, p.ID)
	return err
}

func (q *Queries) DeleteRecurringExpense(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM recurring_expenses WHERE id = ?`, id)
	return err
}

type SetRecurringExpenseActiveParams struct {
	ID       int64
	IsActive bool
}

func (q *Queries) SetRecurringExpenseActive(ctx context.Context, p SetRecurringExpenseActiveParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE recurring_expenses SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.IsActive, p.ID)
	return err
}

type AdvanceRecurringExpenseParams struct {
	ID          int64
	NextDueDate string
	LastPaid    sql.NullString
}

func (q *Queries) AdvanceRecurringExpense(ctx context.Context, p AdvanceRecurringExpenseParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE recurring_expenses
		SET next_due_date = ?, last_paid = COALESCE(?, last_paid), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.NextDueDate, p.LastPaid, p.ID)
	return err
}

const incomeColumns = `id, amount_cents, source, description, frequency, custom_days, next_date, is_active, auto_process, last_generated, created_at, updated_at`

func scanIncome(row interface{ Scan(...any) error }) (RecurringIncomeRow, error) {
	var in RecurringIncomeRow
	err := row.Scan(&in.ID, &in.AmountCents, &in.Source, &in.Description, &in.Frequency, &in.CustomDays,
		&in.NextDate, &in.IsActive, &in.AutoProcess, &in.LastGenerated, &in.CreatedAt, &in.UpdatedAt)
	return in, err
}

type CreateRecurringIncomeParams struct {
	AmountCents int64
	Source      string
	Description string
	Frequency   string
	CustomDays  int64
	NextDate    string
	AutoProcess bool
}

func (q *Queries) CreateRecurringIncome(ctx context.Context, p CreateRecurringIncomeParams) (RecurringIncomeRow, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO recurring_incomes (amount_cents, source, description, frequency, custom_days, next_date, auto_process)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING `+incomeColumns,
		p.AmountCents, p.Source, p.Description, p.Frequency, p.CustomDays, p.NextDate, p.AutoProcess)
	return scanIncome(row)
}

func (q *Queries) GetRecurringIncome(ctx context.Context, id int64) (RecurringIncomeRow, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM recurring_incomes WHERE id = ?`, id)
	return scanIncome(row)
}

func (q *Queries) ListRecurringIncomes(ctx context.Context) ([]RecurringIncomeRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+incomeColumns+` FROM recurring_incomes ORDER BY next_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var incomes []RecurringIncomeRow
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, in)
	}
	return incomes, rows.Err()
}

type UpdateRecurringIncomeParams struct {
	ID          int64
	AmountCents int64
	Source      string
	Description string
	Frequency   string
	CustomDays  int64
	NextDate    string
	AutoProcess bool
}

func (q *Queries) UpdateRecurringIncome(ctx context.Context, p UpdateRecurringIncomeParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE recurring_incomes
		SET amount_cents = ?, source = ?, description = ?, frequency = ?, custom_days = ?,
		    next_date = ?, auto_process = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.AmountCents, p.Source, p.Description, p.Frequency, p.CustomDays, p.NextDate, p.AutoProcess, p.ID)
	return err
}

func (q *Queries) DeleteRecurringIncome(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM recurring_incomes WHERE id = ?`, id)
	return err
}

type SetRecurringIncomeActiveParams struct {
	ID       int64
	IsActive bool
}

func (q *Queries) SetRecurringIncomeActive(ctx context.Context, p SetRecurringIncomeActiveParams) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE recurring_incomes SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		p.IsActive, p.ID)
	return err
}

type AdvanceRecurringIncomeParams struct {
	ID            int64
	NextDate      string
	LastGenerated sql.NullString
}

func (q *Queries) AdvanceRecurringIncome(ctx context.Context, p AdvanceRecurringIncomeParams) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE recurring_incomes
		SET next_date = ?, last_generated = COALESCE(?, last_generated), updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		p.NextDate, p.LastGenerated, p.ID)
	return err
}

type CreateGoalParams struct {
	ID   string
	Name string
}

func (q *Queries) CreateGoal(ctx context.Context, p CreateGoalParams) error {
	_, err := q.db.ExecContext(ctx, `INSERT INTO goals (id, name) VALUES (?, ?)`, p.ID, p.Name)
	return err
}

func (q *Queries) GetGoal(ctx context.Context, id string) (GoalRow, error) {
	var g GoalRow
	err := q.db.QueryRowContext(ctx,
		`SELECT id, name, is_active FROM goals WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.IsActive)
	return g, err
}

func (q *Queries) ListGoals(ctx context.Context) ([]GoalRow, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT id, name, is_active FROM goals ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []GoalRow
	for rows.Next() {
		var g GoalRow
		if err := rows.Scan(&g.ID, &g.Name, &g.IsActive); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

type SetGoalActiveParams struct {
	ID       string
	IsActive bool
}

func (q *Queries) SetGoalActive(ctx context.Context, p SetGoalActiveParams) error {
	_, err := q.db.ExecContext(ctx, `UPDATE goals SET is_active = ? WHERE id = ?`, p.IsActive, p.ID)
	return err
}

func (q *Queries) DeleteAllocationsByIncome(ctx context.Context, incomeID int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM goal_allocations WHERE income_id = ?`, incomeID)
	return err
}

type InsertGoalAllocationParams struct {
	IncomeID   int64
	GoalID     string
	Percentage string
	Position   int64
}

func (q *Queries) InsertGoalAllocation(ctx context.Context, p InsertGoalAllocationParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO goal_allocations (income_id, goal_id, percentage, position)
		VALUES (?, ?, ?, ?)`,
		p.IncomeID, p.GoalID, p.Percentage, p.Position)
	return err
}

func (q *Queries) ListAllocationsByIncome(ctx context.Context, incomeID int64) ([]GoalAllocationRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, income_id, goal_id, percentage, position
		FROM goal_allocations WHERE income_id = ? ORDER BY position, id`, incomeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocs []GoalAllocationRow
	for rows.Next() {
		var a GoalAllocationRow
		if err := rows.Scan(&a.ID, &a.IncomeID, &a.GoalID, &a.Percentage, &a.Position); err != nil {
			return nil, err
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

const transactionColumns = `id, kind, source_id, goal_id, title, amount_cents, occurred_on, sync_status, sync_attempts, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (TransactionRow, error) {
	var t TransactionRow
	err := row.Scan(&t.ID, &t.Kind, &t.SourceID, &t.GoalID, &t.Title, &t.AmountCents,
		&t.OccurredOn, &t.SyncStatus, &t.SyncAttempts, &t.CreatedAt)
	return t, err
}

type CreateTransactionParams struct {
	Kind        string
	SourceID    int64
	GoalID      sql.NullString
	Title       string
	AmountCents int64
	OccurredOn  string
}

func (q *Queries) CreateTransaction(ctx context.Context, p CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO transactions (kind, source_id, goal_id, title, amount_cents, occurred_on)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING `+transactionColumns,
		p.Kind, p.SourceID, p.GoalID, p.Title, p.AmountCents, p.OccurredOn)
	return scanTransaction(row)
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (q *Queries) GetPendingSyncTransactions(ctx context.Context, limit int64) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE sync_status = 'pending' ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []TransactionRow
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (q *Queries) MarkTransactionSynced(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id)
	return err
}

func (q *Queries) MarkTransactionSyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE transactions SET sync_status = 'error', sync_attempts = sync_attempts + 1
		WHERE id = ?`, id)
	return err
}
