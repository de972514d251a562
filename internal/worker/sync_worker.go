package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/amqp"
	"bilancio/internal/sheets"
	"bilancio/internal/storage"
)

// SyncWorker mirrors posted ledger transactions from SQLite to the
// configured spreadsheet. It consumes AMQP notifications for low latency and
// sweeps the pending backlog as a recovery path for lost messages.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	sheets    sheets.TransactionWriter
	batchSize int
}

func NewSyncWorker(repo *storage.SQLiteRepository, writer sheets.TransactionWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   repo,
		sheets:    writer,
		batchSize: batchSize,
	}
}

// HandleTransactionPosted processes a single posted-transaction message.
// A missing transaction is dropped rather than requeued: the row will never
// appear, and the pending sweep covers races where the row lands late.
func (w *SyncWorker) HandleTransactionPosted(ctx context.Context, msg *amqp.TransactionPostedMessage) error {
	slog.InfoContext(ctx, "Processing posted transaction message",
		"transaction_id", msg.TransactionID,
		"user_id", msg.UserID)

	if err := w.mirrorTransaction(ctx, msg.TransactionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction in message not found, dropping",
				"transaction_id", msg.TransactionID)
			return nil
		}
		return fmt.Errorf("mirror transaction: %w", err)
	}
	return nil
}

// ProcessPending mirrors any transactions still marked pending. This is the
// backup mechanism for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.sweepPending(ctx, w.batchSize)
}

// StartupSyncCheck drains a larger pending batch at worker startup, to
// recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.sweepPending(ctx, w.batchSize*5)
}

func (w *SyncWorker) sweepPending(ctx context.Context, limit int) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced := 0
	failed := 0
	for _, p := range pending {
		if err := w.mirrorTransaction(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror pending transaction",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sweep completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) mirrorTransaction(ctx context.Context, id string) error {
	t, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	ref, err := w.sheets.Append(ctx, *t)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The mirror write succeeded; the status will be retried by the sweep.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Transaction mirrored",
		"id", id,
		"sheet_ref", ref,
		"amount_cents", t.AmountCents)
	return nil
}
