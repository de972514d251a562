package core

import "time"

// Transaction is an immutable, already-posted ledger entry. AmountCents is
// signed: negative for expenses, positive for income.
type Transaction struct {
	ID                   string
	UserID               string
	Title                string
	Description          string
	AmountCents          int64
	PostedDate           Date
	CategoryID           *int64
	SubCategoryID        *int64
	AccountID            *int64
	PlannedTransactionID *int64
	CreatedAt            time.Time
}

// PlannedCounts is a single-round-trip summary of a user's planned
// transactions as of a given date.
type PlannedCounts struct {
	Total         int64
	Active        int64
	Inactive      int64
	Due           int64
	IncomeActive  int64
	ExpenseActive int64
}
