package google

import (
	"context"
	"testing"

	"cadence/internal/core"
)

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Fatal("New() should fail without a spreadsheet ID")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "abc123"})
	if err == nil {
		t.Fatal("New() should fail without credentials")
	}
}

func TestAppendRejectsInvalidKind(t *testing.T) {
	c := &Client{spreadsheetID: "abc123", sheetName: "Ledger"}

	_, err := c.Append(context.Background(), core.Transaction{Kind: "transfer"})
	if err == nil {
		t.Error("Append() should reject an unknown transaction kind")
	}
}

func TestAppendRequiresService(t *testing.T) {
	c := &Client{spreadsheetID: "abc123", sheetName: "Ledger"}

	_, err := c.Append(context.Background(), core.Transaction{
		Kind:       core.TransactionExpense,
		Title:      "Rent",
		Amount:     core.Money{Cents: 120000},
		OccurredOn: core.NewDate(2026, 9, 1),
	})
	if err == nil {
		t.Error("Append() should fail when the sheets service is not initialized")
	}
}
