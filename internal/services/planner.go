package services

import (
	"context"
	"fmt"
	"log/slog"

	"bilancio/internal/core"
)

// PlannedStore extends the execution surface with the lifecycle operations the
// API needs. Mutations are scoped by user id inside the query.
type PlannedStore interface {
	RecurrenceStore
	CreatePlanned(ctx context.Context, p core.PlannedTransaction) (int64, error)
	UpdatePlanned(ctx context.Context, p core.PlannedTransaction) error
	DeletePlanned(ctx context.Context, id int64, userID string) error
	ListPlanned(ctx context.Context, userID string) ([]core.PlannedTransaction, error)
}

// PlannedService manages the lifecycle of planned transactions. Execution is
// the Coordinator's job; this service never touches the ledger.
type PlannedService struct {
	store PlannedStore
	clock core.Clock
}

func NewPlannedService(store PlannedStore, clock core.Clock) *PlannedService {
	return &PlannedService{store: store, clock: clock}
}

// Create validates and persists a new planned transaction. New records start
// active. A next date in the past is allowed: the record is simply due at once.
func (s *PlannedService) Create(ctx context.Context, p core.PlannedTransaction) (*core.PlannedTransaction, error) {
	p.Active = true
	if err := p.Validate(); err != nil {
		return nil, err
	}

	id, err := s.store.CreatePlanned(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("create planned transaction: %w", err)
	}
	p.ID = id

	return &p, nil
}

// Get returns one planned transaction, or (nil, nil) when it does not exist
// for this user.
func (s *PlannedService) Get(ctx context.Context, id int64, userID string) (*core.PlannedTransaction, error) {
	return s.store.FindByID(ctx, id, userID)
}

// List returns all of a user's planned transactions, earliest schedule first.
func (s *PlannedService) List(ctx context.Context, userID string) ([]core.PlannedTransaction, error) {
	return s.store.ListPlanned(ctx, userID)
}

// Update validates and persists changes to an existing planned transaction.
func (s *PlannedService) Update(ctx context.Context, p core.PlannedTransaction) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdatePlanned(ctx, p); err != nil {
		return fmt.Errorf("update planned transaction: %w", err)
	}

	slog.InfoContext(ctx, "Planned transaction updated",
		"id", p.ID,
		"user_id", p.UserID,
		"next_date", p.NextDate.String())
	return nil
}

// Delete removes a planned transaction. Ledger entries it already produced
// are untouched.
func (s *PlannedService) Delete(ctx context.Context, id int64, userID string) error {
	if err := s.store.DeletePlanned(ctx, id, userID); err != nil {
		return fmt.Errorf("delete planned transaction: %w", err)
	}
	slog.InfoContext(ctx, "Planned transaction deleted", "id", id, "user_id", userID)
	return nil
}

// SetActive pauses or resumes a planned transaction's schedule.
func (s *PlannedService) SetActive(ctx context.Context, id int64, userID string, active bool) error {
	if err := s.store.SetActive(ctx, id, userID, active); err != nil {
		return fmt.Errorf("set planned transaction active: %w", err)
	}
	return nil
}

// Upcoming returns active records scheduled within the next horizonDays,
// starting from today.
func (s *PlannedService) Upcoming(ctx context.Context, userID string, horizonDays int) ([]core.PlannedTransaction, error) {
	return s.store.FindUpcoming(ctx, userID, s.clock.Today(), horizonDays)
}

// ByOperationType returns a user's planned income or expense records.
func (s *PlannedService) ByOperationType(ctx context.Context, userID string, opType core.OperationType, activeOnly bool) ([]core.PlannedTransaction, error) {
	return s.store.FindByOperationType(ctx, userID, opType, activeOnly)
}
