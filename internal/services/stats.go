package services

import (
	"context"
	"fmt"

	"bilancio/internal/core"
)

// Stats is the combined reporting payload: record counts plus the normalized
// monthly projection over active rules.
type Stats struct {
	Counts     core.PlannedCounts
	Projection core.Projection
}

// StatsService composes the store aggregates into one payload. It owns no
// algorithm of its own beyond delegation.
type StatsService struct {
	store RecurrenceStore
	clock core.Clock
}

func NewStatsService(store RecurrenceStore, clock core.Clock) *StatsService {
	return &StatsService{store: store, clock: clock}
}

// GetStats returns counts and the monthly projection for a user.
func (s *StatsService) GetStats(ctx context.Context, userID string) (*Stats, error) {
	counts, err := s.store.AggregateCounts(ctx, userID, s.clock.Today())
	if err != nil {
		return nil, fmt.Errorf("aggregate counts: %w", err)
	}

	groups, err := s.store.SumAmountsByTypeAndFrequency(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum amounts by type and frequency: %w", err)
	}

	return &Stats{
		Counts:     counts,
		Projection: core.MonthlyProjection(groups),
	}, nil
}
