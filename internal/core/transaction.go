package core

import (
	"errors"

	"github.com/google/uuid"
)

const (
	TransactionExpense    TransactionKind = "expense"
	TransactionIncome     TransactionKind = "income"
	TransactionAllocation TransactionKind = "allocation"
)

// TransactionKind distinguishes the ledger rows a recurring item generates.
type TransactionKind string

// Transaction is one concrete ledger row produced by paying an expense or
// receiving an income. Allocation rows carry the goal they fund; GoalID is
// uuid.Nil for the other kinds.
type Transaction struct {
	ID         int64
	Kind       TransactionKind
	SourceID   int64 // ID of the recurring item that generated this row
	GoalID     uuid.UUID
	Title      string
	Amount     Money
	OccurredOn Date
}

func (k TransactionKind) Validate() error {
	switch k {
	case TransactionExpense, TransactionIncome, TransactionAllocation:
		return nil
	default:
		return errors.New("invalid transaction kind")
	}
}
