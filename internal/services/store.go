package services

import (
	"context"

	"bilancio/internal/core"
)

// RecurrenceStore is the persistence surface the execution engine depends on.
// Every query is scoped by user id at the query itself, never filtered after
// the fact. FindByID returns (nil, nil) when the record is absent or owned by
// a different user, so missing and foreign records are indistinguishable.
type RecurrenceStore interface {
	FindByID(ctx context.Context, id int64, userID string) (*core.PlannedTransaction, error)
	FindAllDue(ctx context.Context, userID string, asOf core.Date) ([]core.PlannedTransaction, error)
	FindUpcoming(ctx context.Context, userID string, asOf core.Date, horizonDays int) ([]core.PlannedTransaction, error)
	FindByOperationType(ctx context.Context, userID string, opType core.OperationType, activeOnly bool) ([]core.PlannedTransaction, error)
	PersistNextDate(ctx context.Context, id int64, newDate core.Date) error
	SetActive(ctx context.Context, id int64, userID string, active bool) error
	AggregateCounts(ctx context.Context, userID string, asOf core.Date) (core.PlannedCounts, error)
	SumAmountsByTypeAndFrequency(ctx context.Context, userID string) ([]core.AmountGroup, error)
}
