package ledger

import (
	"context"

	"bilancio/internal/core"
)

// Writer posts immutable transactions to the ledger and returns the assigned
// transaction ID. Implementations must not mutate the entry.
type Writer interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (string, error)
}

// Reader retrieves posted transactions by ID.
type Reader interface {
	GetTransaction(ctx context.Context, id string) (*core.Transaction, error)
}
