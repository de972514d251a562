package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/sheets/memory"
	"bilancio/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func insertTransaction(t *testing.T, repo *storage.SQLiteRepository, title string, cents int64) string {
	t.Helper()
	id, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:      "user-1",
		Title:       title,
		AmountCents: cents,
		PostedDate:  core.NewDate(2024, 3, 1),
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	return id
}

func TestSyncWorker_HandleTransactionPosted(t *testing.T) {
	repo := newTestRepo(t)
	writer := memory.New()
	w := NewSyncWorker(repo, writer, 10)

	id := insertTransaction(t, repo, "Rent", -120000)

	msg := amqp.NewTransactionPostedMessage(id, "user-1")
	if err := w.HandleTransactionPosted(context.Background(), msg); err != nil {
		t.Fatalf("HandleTransactionPosted() error = %v", err)
	}

	rows := writer.Rows()
	if len(rows) != 1 {
		t.Fatalf("mirrored rows = %d, want 1", len(rows))
	}
	if rows[0].ID != id || rows[0].AmountCents != -120000 {
		t.Errorf("mirrored row = %+v, want id %s with -120000 cents", rows[0], id)
	}

	// Mirrored transaction no longer appears in the pending backlog.
	pending, err := repo.GetPendingSyncTransactions(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after sync = %d, want 0", len(pending))
	}
}

func TestSyncWorker_HandleTransactionPosted_MissingRowIsDropped(t *testing.T) {
	w := NewSyncWorker(newTestRepo(t), memory.New(), 10)

	msg := amqp.NewTransactionPostedMessage("no-such-id", "user-1")
	if err := w.HandleTransactionPosted(context.Background(), msg); err != nil {
		t.Errorf("HandleTransactionPosted() error = %v, want nil (drop, no requeue)", err)
	}
}

func TestSyncWorker_ProcessPending(t *testing.T) {
	repo := newTestRepo(t)
	writer := memory.New()
	w := NewSyncWorker(repo, writer, 10)

	insertTransaction(t, repo, "Rent", -120000)
	insertTransaction(t, repo, "Salary", 300000)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if got := len(writer.Rows()); got != 2 {
		t.Errorf("mirrored rows = %d, want 2", got)
	}

	// Second sweep has nothing left to do.
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("second ProcessPending() error = %v", err)
	}
	if got := len(writer.Rows()); got != 2 {
		t.Errorf("mirrored rows after second sweep = %d, want still 2", got)
	}
}

func TestSyncWorker_AppendFailureMarksError(t *testing.T) {
	repo := newTestRepo(t)
	writer := memory.New()
	w := NewSyncWorker(repo, writer, 10)

	id := insertTransaction(t, repo, "Rent", -120000)
	writer.FailNext = errors.New("sheets quota exceeded")

	msg := amqp.NewTransactionPostedMessage(id, "user-1")
	if err := w.HandleTransactionPosted(context.Background(), msg); err == nil {
		t.Fatal("HandleTransactionPosted() = nil, want error")
	}

	// The failed row left the pending state so the sweep does not hammer it.
	pending, err := repo.GetPendingSyncTransactions(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after failure = %d, want 0 (marked error)", len(pending))
	}
}
