package sheets

import (
	"context"

	"bilancio/internal/core"
)

// TransactionWriter mirrors ledger transactions to an external sheet.
type TransactionWriter interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
