package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

// Coordinator materializes planned transactions into ledger postings and
// advances their schedules. It exposes single-item execution (fail-fast) and
// batch execution over all due records (per-item failure capture).
type Coordinator struct {
	store  RecurrenceStore
	ledger ledger.Writer
	clock  core.Clock
}

func NewCoordinator(store RecurrenceStore, ledgerWriter ledger.Writer, clock core.Clock) *Coordinator {
	return &Coordinator{
		store:  store,
		ledger: ledgerWriter,
		clock:  clock,
	}
}

// ExecutionResult is the outcome of executing one planned transaction.
type ExecutionResult struct {
	Transaction core.Transaction
	Record      core.PlannedTransaction
	NextDate    core.Date
	// ScheduleUpdated is false when the ledger posting succeeded but the
	// schedule advancement could not be persisted. The record stays due and
	// will post again on the next run.
	ScheduleUpdated bool
}

// ExecutedItem is one successful entry in a batch result.
type ExecutedItem struct {
	PlannedID       int64
	Title           string
	TransactionID   string
	NextDate        core.Date
	ScheduleUpdated bool
}

// FailedItem is one failed entry in a batch result, with its error kind
// preserved so callers can distinguish failure modes programmatically.
type FailedItem struct {
	PlannedID int64
	Title     string
	Kind      ErrorKind
	Message   string
}

// BatchResult aggregates a best-effort sweep over all due records.
type BatchResult struct {
	Executed      []ExecutedItem
	Failed        []FailedItem
	TotalExecuted int
	TotalFailed   int
}

// ExecuteOne posts a single planned transaction to the ledger and advances
// its schedule. The ledger write always completes before the schedule
// advancement is persisted, so a failed posting never silently consumes an
// occurrence.
//
// When the posting succeeds but the schedule update fails, ExecuteOne returns
// both a non-nil result (ScheduleUpdated false) and a KindScheduleUpdate
// error: the money is recorded, the schedule is not, and the caller must be
// told about both halves.
func (c *Coordinator) ExecuteOne(ctx context.Context, id int64, userID string) (*ExecutionResult, error) {
	record, err := c.store.FindByID(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("load planned transaction: %w", err)
	}
	if record == nil {
		return nil, execError(KindNotFound, id, nil)
	}

	return c.execute(ctx, *record)
}

// execute runs the post-and-advance sequence for an already-loaded record.
func (c *Coordinator) execute(ctx context.Context, record core.PlannedTransaction) (*ExecutionResult, error) {
	if !record.Active {
		return nil, execError(KindInactive, record.ID, nil)
	}

	today := c.clock.Today()
	plannedID := record.ID

	// The posting is dated when it actually executes, not when it was
	// scheduled: an overdue rule executed late posts on the late date.
	entry := core.Transaction{
		UserID:               record.UserID,
		Title:                record.Title,
		Description:          record.Description,
		AmountCents:          record.SignedCents(),
		PostedDate:           today,
		CategoryID:           record.CategoryID,
		SubCategoryID:        record.SubCategoryID,
		AccountID:            record.AccountID,
		PlannedTransactionID: &plannedID,
	}

	txID, err := c.ledger.CreateTransaction(ctx, entry)
	if err != nil {
		return nil, execError(KindLedgerWrite, record.ID, err)
	}
	entry.ID = txID

	newNextDate := core.Advance(record.NextDate, record.Frequency)

	result := &ExecutionResult{
		Transaction: entry,
		Record:      record,
		NextDate:    newNextDate,
	}

	if err := c.store.PersistNextDate(ctx, record.ID, newNextDate); err != nil {
		slog.ErrorContext(ctx, "Ledger posted but schedule advancement failed",
			"planned_id", record.ID,
			"transaction_id", txID,
			"next_date", newNextDate.String(),
			"error", err)
		return result, execError(KindScheduleUpdate, record.ID, err)
	}

	result.Record.NextDate = newNextDate
	result.ScheduleUpdated = true

	slog.InfoContext(ctx, "Planned transaction executed",
		"planned_id", record.ID,
		"transaction_id", txID,
		"amount_cents", entry.AmountCents,
		"posted_date", today.String(),
		"next_date", newNextDate.String())

	return result, nil
}

// ExecuteAllDue executes every due planned transaction for a user, in
// ascending next-date order. Failures are captured per item so one bad record
// never blocks the rest of the sweep; nothing already executed is rolled back.
// The returned error is non-nil only when the due candidates cannot be loaded.
func (c *Coordinator) ExecuteAllDue(ctx context.Context, userID string) (*BatchResult, error) {
	today := c.clock.Today()

	candidates, err := c.store.FindAllDue(ctx, userID, today)
	if err != nil {
		return nil, fmt.Errorf("find due planned transactions: %w", err)
	}

	slog.InfoContext(ctx, "Executing due planned transactions",
		"user_id", userID,
		"total_due", len(candidates),
		"as_of", today.String())

	batch := &BatchResult{}

	for _, record := range candidates {
		result, err := c.execute(ctx, record)
		if err != nil {
			execErr, ok := err.(*ExecutionError)
			if !ok {
				execErr = execError(KindLedgerWrite, record.ID, err)
			}
			batch.Failed = append(batch.Failed, FailedItem{
				PlannedID: record.ID,
				Title:     record.Title,
				Kind:      execErr.Kind,
				Message:   execErr.Error(),
			})
			batch.TotalFailed++
			slog.ErrorContext(ctx, "Failed to execute planned transaction",
				"planned_id", record.ID,
				"title", record.Title,
				"kind", string(execErr.Kind),
				"error", err)
			continue
		}

		batch.Executed = append(batch.Executed, ExecutedItem{
			PlannedID:       record.ID,
			Title:           record.Title,
			TransactionID:   result.Transaction.ID,
			NextDate:        result.NextDate,
			ScheduleUpdated: result.ScheduleUpdated,
		})
		batch.TotalExecuted++
	}

	slog.InfoContext(ctx, "Due execution sweep complete",
		"user_id", userID,
		"executed", batch.TotalExecuted,
		"failed", batch.TotalFailed)

	return batch, nil
}
