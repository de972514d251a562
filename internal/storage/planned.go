package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

const plannedColumns = `id, user_id, title, description, amount_cents, operation_type,
	frequency, next_date, interest_rate, duration, duration_unit,
	category_id, sub_category_id, account_id, active, created_at, updated_at`

// CreatePlanned inserts a planned transaction and returns its assigned ID.
func (r *SQLiteRepository) CreatePlanned(ctx context.Context, p core.PlannedTransaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO planned_transactions
			(user_id, title, description, amount_cents, operation_type, frequency,
			 next_date, interest_rate, duration, duration_unit,
			 category_id, sub_category_id, account_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, p.Title, p.Description, p.Amount.Cents, string(p.OperationType),
		string(p.Frequency), p.NextDate.String(), p.InterestRate, p.Duration,
		nullableUnit(p.DurationUnit), p.CategoryID, p.SubCategoryID, p.AccountID, p.Active)
	if err != nil {
		return 0, fmt.Errorf("insert planned transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("planned transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Planned transaction saved",
		"id", id,
		"user_id", p.UserID,
		"title", p.Title,
		"frequency", p.Frequency,
		"next_date", p.NextDate.String())

	return id, nil
}

// UpdatePlanned updates the editable fields of a planned transaction. The
// user id is part of the predicate, never the update set: ownership does not
// change after creation.
func (r *SQLiteRepository) UpdatePlanned(ctx context.Context, p core.PlannedTransaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE planned_transactions SET
			title = ?, description = ?, amount_cents = ?, operation_type = ?,
			frequency = ?, next_date = ?, interest_rate = ?, duration = ?,
			duration_unit = ?, category_id = ?, sub_category_id = ?, account_id = ?,
			active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`,
		p.Title, p.Description, p.Amount.Cents, string(p.OperationType),
		string(p.Frequency), p.NextDate.String(), p.InterestRate, p.Duration,
		nullableUnit(p.DurationUnit), p.CategoryID, p.SubCategoryID, p.AccountID,
		p.Active, p.ID, p.UserID)
	if err != nil {
		return fmt.Errorf("update planned transaction: %w", err)
	}
	return requireRow(res)
}

// DeletePlanned removes a planned transaction owned by the given user.
func (r *SQLiteRepository) DeletePlanned(ctx context.Context, id int64, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM planned_transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete planned transaction: %w", err)
	}
	return requireRow(res)
}

// FindByID returns a planned transaction by id, scoped to the owning user.
// Absent rows and rows owned by other users both return (nil, nil) so
// cross-tenant existence never leaks.
func (r *SQLiteRepository) FindByID(ctx context.Context, id int64, userID string) (*core.PlannedTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+plannedColumns+` FROM planned_transactions WHERE id = ? AND user_id = ?`,
		id, userID)
	p, err := scanPlanned(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get planned transaction by id: %w", err)
	}
	return p, nil
}

// ListPlanned returns all planned transactions for a user, newest schedule first.
func (r *SQLiteRepository) ListPlanned(ctx context.Context, userID string) ([]core.PlannedTransaction, error) {
	return r.queryPlanned(ctx,
		`SELECT `+plannedColumns+` FROM planned_transactions
		 WHERE user_id = ? ORDER BY next_date ASC, id ASC`, userID)
}

// FindAllDue returns the user's active planned transactions scheduled for
// asOf or earlier, earliest obligations first. The ascending order keeps
// batch execution output deterministic.
func (r *SQLiteRepository) FindAllDue(ctx context.Context, userID string, asOf core.Date) ([]core.PlannedTransaction, error) {
	return r.queryPlanned(ctx,
		`SELECT `+plannedColumns+` FROM planned_transactions
		 WHERE user_id = ? AND active = 1 AND next_date <= ?
		 ORDER BY next_date ASC, id ASC`, userID, asOf.String())
}

// FindUpcoming returns active planned transactions due within the lookahead
// window [asOf, asOf+horizonDays], ascending.
func (r *SQLiteRepository) FindUpcoming(ctx context.Context, userID string, asOf core.Date, horizonDays int) ([]core.PlannedTransaction, error) {
	return r.queryPlanned(ctx,
		`SELECT `+plannedColumns+` FROM planned_transactions
		 WHERE user_id = ? AND active = 1 AND next_date >= ? AND next_date <= ?
		 ORDER BY next_date ASC, id ASC`,
		userID, asOf.String(), asOf.AddDays(horizonDays).String())
}

// FindByOperationType returns a user's planned transactions of one operation
// type, optionally restricted to active records.
func (r *SQLiteRepository) FindByOperationType(ctx context.Context, userID string, opType core.OperationType, activeOnly bool) ([]core.PlannedTransaction, error) {
	q := `SELECT ` + plannedColumns + ` FROM planned_transactions
		 WHERE user_id = ? AND operation_type = ?`
	if activeOnly {
		q += ` AND active = 1`
	}
	q += ` ORDER BY next_date ASC, id ASC`
	return r.queryPlanned(ctx, q, userID, string(opType))
}

// PersistNextDate advances a planned transaction's schedule.
func (r *SQLiteRepository) PersistNextDate(ctx context.Context, id int64, newDate core.Date) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE planned_transactions
		SET next_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, newDate.String(), id)
	if err != nil {
		return fmt.Errorf("persist next date: %w", err)
	}
	return requireRow(res)
}

// SetActive toggles a planned transaction's active flag.
func (r *SQLiteRepository) SetActive(ctx context.Context, id int64, userID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE planned_transactions
		SET active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?`, active, id, userID)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return requireRow(res)
}

// AggregateCounts produces the per-user summary in a single round trip,
// avoiding per-record iteration at scale.
func (r *SQLiteRepository) AggregateCounts(ctx context.Context, userID string, asOf core.Date) (core.PlannedCounts, error) {
	var c core.PlannedCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(active), 0),
			COALESCE(SUM(1 - active), 0),
			COALESCE(SUM(CASE WHEN active = 1 AND next_date <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN active = 1 AND operation_type = 'income' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN active = 1 AND operation_type = 'expense' THEN 1 ELSE 0 END), 0)
		FROM planned_transactions
		WHERE user_id = ?`, asOf.String(), userID).
		Scan(&c.Total, &c.Active, &c.Inactive, &c.Due, &c.IncomeActive, &c.ExpenseActive)
	if err != nil {
		return core.PlannedCounts{}, fmt.Errorf("aggregate planned counts: %w", err)
	}
	return c, nil
}

// SumAmountsByTypeAndFrequency returns grouped totals of a user's active
// planned transactions, feeding the monthly projection.
func (r *SQLiteRepository) SumAmountsByTypeAndFrequency(ctx context.Context, userID string) ([]core.AmountGroup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT operation_type, frequency, SUM(amount_cents)
		FROM planned_transactions
		WHERE user_id = ? AND active = 1
		GROUP BY operation_type, frequency`, userID)
	if err != nil {
		return nil, fmt.Errorf("sum amounts by type and frequency: %w", err)
	}
	defer rows.Close()

	var groups []core.AmountGroup
	for rows.Next() {
		var (
			opType string
			freq   string
			total  int64
		)
		if err := rows.Scan(&opType, &freq, &total); err != nil {
			return nil, fmt.Errorf("scan amount group: %w", err)
		}
		groups = append(groups, core.AmountGroup{
			OperationType: core.OperationType(opType),
			Frequency:     core.Frequency(freq),
			Total:         core.Money{Cents: total},
		})
	}
	return groups, rows.Err()
}

// ListUsersWithDue returns the distinct users that have at least one due
// planned transaction, for the periodic worker sweep.
func (r *SQLiteRepository) ListUsersWithDue(ctx context.Context, asOf core.Date) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM planned_transactions
		WHERE active = 1 AND next_date <= ?
		ORDER BY user_id`, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("list users with due: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) queryPlanned(ctx context.Context, query string, args ...any) ([]core.PlannedTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query planned transactions: %w", err)
	}
	defer rows.Close()

	var out []core.PlannedTransaction
	for rows.Next() {
		p, err := scanPlanned(rows)
		if err != nil {
			return nil, fmt.Errorf("scan planned transaction: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPlanned(row rowScanner) (*core.PlannedTransaction, error) {
	var (
		p            core.PlannedTransaction
		opType       string
		freq         string
		nextDate     string
		interestRate sql.NullFloat64
		duration     sql.NullInt64
		durationUnit sql.NullString
		catID        sql.NullInt64
		subCatID     sql.NullInt64
		accountID    sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Amount.Cents,
		&opType, &freq, &nextDate, &interestRate, &duration, &durationUnit,
		&catID, &subCatID, &accountID, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.OperationType = core.OperationType(opType)
	p.Frequency = core.Frequency(freq)
	d, err := core.ParseDate(nextDate)
	if err != nil {
		return nil, fmt.Errorf("parse next date %q: %w", nextDate, err)
	}
	p.NextDate = d

	if interestRate.Valid {
		rate := interestRate.Float64
		p.InterestRate = &rate
	}
	if duration.Valid {
		dur := duration.Int64
		p.Duration = &dur
	}
	if durationUnit.Valid {
		p.DurationUnit = core.DurationUnit(durationUnit.String)
	}
	p.CategoryID = nullableID(catID)
	p.SubCategoryID = nullableID(subCatID)
	p.AccountID = nullableID(accountID)
	return &p, nil
}

func nullableUnit(u core.DurationUnit) any {
	if u == "" {
		return nil
	}
	return string(u)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
