package services

import "fmt"

// ErrorKind classifies execution failures so callers can react
// programmatically instead of parsing message strings.
type ErrorKind string

const (
	// KindNotFound: the planned transaction is absent or owned by another user.
	KindNotFound ErrorKind = "not_found"
	// KindInactive: execution was attempted on a disabled rule.
	KindInactive ErrorKind = "inactive"
	// KindLedgerWrite: the ledger posting failed; the schedule was not touched.
	KindLedgerWrite ErrorKind = "ledger_write_failed"
	// KindScheduleUpdate: the ledger posting succeeded but advancing the
	// schedule failed. The record will show up as due again and may
	// double-post on retry; operators must intervene.
	KindScheduleUpdate ErrorKind = "schedule_update_failed"
)

// ExecutionError is a classified failure from executing one planned transaction.
type ExecutionError struct {
	Kind      ErrorKind
	PlannedID int64
	Err       error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("planned transaction %d: %s", e.PlannedID, e.Kind)
	}
	return fmt.Sprintf("planned transaction %d: %s: %v", e.PlannedID, e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func execError(kind ErrorKind, plannedID int64, err error) *ExecutionError {
	return &ExecutionError{Kind: kind, PlannedID: plannedID, Err: err}
}
