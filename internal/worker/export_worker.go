package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cadence/internal/amqp"
	"cadence/internal/core"
	"cadence/internal/sheets"
	"cadence/internal/storage"
)

// ExportWorker pushes ledger transactions from SQLite to the external sheet.
type ExportWorker struct {
	storage *storage.SQLiteRepository
	writer  sheets.LedgerWriter
}

func NewExportWorker(storage *storage.SQLiteRepository, writer sheets.LedgerWriter) *ExportWorker {
	return &ExportWorker{
		storage: storage,
		writer:  writer,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
// The transaction is fetched fresh from storage; the message only names it.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"kind", msg.Kind,
		"message_id", msg.MessageID)

	tx, err := w.storage.GetTransaction(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted while queued; nothing left to export.
		slog.WarnContext(ctx, "Transaction gone, dropping sync message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.writer.Append(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark transaction sync error",
				"id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("export transaction %d: %w", tx.ID, err)
	}

	if err := w.storage.MarkSynced(ctx, tx.ID); err != nil {
		// The row landed in the sheet; only the local flag is stale.
		slog.WarnContext(ctx, "Failed to mark transaction as synced",
			"id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction to ledger sheet",
		"id", tx.ID,
		"kind", string(tx.Kind),
		"sheets_ref", ref)

	return nil
}
