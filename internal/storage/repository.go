package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row is absent or owned by a different user.
// Cross-tenant lookups deliberately report the same error as missing rows.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
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

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction inserts a posted ledger transaction and returns its
// assigned identifier. The row starts in sync_status 'pending' so the sheet
// mirror worker picks it up.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (string, error) {
	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, title, description, amount_cents, posted_date,
			 category_id, sub_category_id, account_id, planned_transaction_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.UserID, t.Title, t.Description, t.AmountCents, t.PostedDate.String(),
		t.CategoryID, t.SubCategoryID, t.AccountID, t.PlannedTransactionID)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"user_id", t.UserID,
		"title", t.Title,
		"amount_cents", t.AmountCents,
		"posted_date", t.PostedDate.String())

	return id, nil
}

// GetTransaction retrieves a single posted transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (*core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, amount_cents, posted_date,
		       category_id, sub_category_id, account_id, planned_transaction_id, created_at
		FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by id: %w", err)
	}
	return t, nil
}

// PendingSyncTransaction is the minimal data needed for sync sweep batches.
type PendingSyncTransaction struct {
	ID        string
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns transactions not yet mirrored to the
// spreadsheet, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at FROM transactions
		WHERE sync_status = 'pending'
		ORDER BY created_at ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a transaction as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a transaction as having mirror errors.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*core.Transaction, error) {
	var (
		t          core.Transaction
		postedDate string
		catID      sql.NullInt64
		subCatID   sql.NullInt64
		accountID  sql.NullInt64
		plannedID  sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.AmountCents,
		&postedDate, &catID, &subCatID, &accountID, &plannedID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	d, err := core.ParseDate(postedDate)
	if err != nil {
		return nil, fmt.Errorf("parse posted date %q: %w", postedDate, err)
	}
	t.PostedDate = d
	t.CategoryID = nullableID(catID)
	t.SubCategoryID = nullableID(subCatID)
	t.AccountID = nullableID(accountID)
	t.PlannedTransactionID = nullableID(plannedID)
	return &t, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
