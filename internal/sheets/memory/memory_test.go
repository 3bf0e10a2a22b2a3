package memory

import (
	"context"
	"testing"

	"cadence/internal/core"
)

func TestAppendReturnsSequentialRefs(t *testing.T) {
	s := New()
	ctx := context.Background()

	tx := core.Transaction{
		Kind:       core.TransactionExpense,
		SourceID:   1,
		Title:      "Rent",
		Amount:     core.Money{Cents: 120000},
		OccurredOn: core.NewDate(2026, 9, 1),
	}

	ref, err := s.Append(ctx, tx)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("Append() ref = %s, want mem:1", ref)
	}

	ref, err = s.Append(ctx, tx)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:2" {
		t.Errorf("Append() ref = %s, want mem:2", ref)
	}

	if got := len(s.Items()); got != 2 {
		t.Errorf("Items() len = %d, want 2", got)
	}
}

func TestAppendRejectsUnknownKind(t *testing.T) {
	s := New()

	_, err := s.Append(context.Background(), core.Transaction{Kind: "transfer"})
	if err == nil {
		t.Error("Append() should reject an unknown transaction kind")
	}
	if len(s.Items()) != 0 {
		t.Error("rejected transaction should not be stored")
	}
}
