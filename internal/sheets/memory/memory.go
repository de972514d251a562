// Package memory provides an in-memory sheet adapter for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"bilancio/internal/core"
	ports "bilancio/internal/sheets"
)

type Writer struct {
	mu   sync.Mutex
	rows []core.Transaction

	// FailNext makes the next Append return an error, for failure-path tests.
	FailNext error
}

var _ ports.TransactionWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{}
}

func (w *Writer) Append(_ context.Context, t core.Transaction) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.FailNext != nil {
		err := w.FailNext
		w.FailNext = nil
		return "", err
	}

	w.rows = append(w.rows, t)
	return fmt.Sprintf("memory!A%d", len(w.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (w *Writer) Rows() []core.Transaction {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]core.Transaction, len(w.rows))
	copy(out, w.rows)
	return out
}
