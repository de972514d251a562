package services

import (
	"context"
	"errors"
	"testing"

	"bilancio/internal/core"
)

func (s *fakeStore) CreatePlanned(_ context.Context, p core.PlannedTransaction) (int64, error) {
	id := int64(len(s.records) + 1)
	p.ID = id
	s.records[id] = &p
	return id, nil
}

func (s *fakeStore) UpdatePlanned(_ context.Context, p core.PlannedTransaction) error {
	r, ok := s.records[p.ID]
	if !ok || r.UserID != p.UserID {
		return errors.New("no such record")
	}
	s.records[p.ID] = &p
	return nil
}

func (s *fakeStore) DeletePlanned(_ context.Context, id int64, userID string) error {
	r, ok := s.records[id]
	if !ok || r.UserID != userID {
		return errors.New("no such record")
	}
	delete(s.records, id)
	return nil
}

func (s *fakeStore) ListPlanned(_ context.Context, userID string) ([]core.PlannedTransaction, error) {
	var out []core.PlannedTransaction
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func TestPlannedService_Create(t *testing.T) {
	clock := fixedClock{today: core.NewDate(2024, 3, 1)}

	t.Run("valid record starts active", func(t *testing.T) {
		store := newFakeStore()
		svc := NewPlannedService(store, clock)

		p := plannedFixture(0, "Rent", 120000, core.Expense, core.Monthly, core.NewDate(2024, 4, 1))
		p.Active = false // caller cannot opt out of starting active

		created, err := svc.Create(context.Background(), p)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.ID == 0 {
			t.Error("created ID not assigned")
		}
		if !created.Active {
			t.Error("created record is inactive, want active")
		}
	})

	t.Run("unknown frequency rejected", func(t *testing.T) {
		svc := NewPlannedService(newFakeStore(), clock)
		p := plannedFixture(0, "Rent", 120000, core.Expense, "biweekly", core.NewDate(2024, 4, 1))
		if _, err := svc.Create(context.Background(), p); !errors.Is(err, core.ErrInvalidFrequency) {
			t.Errorf("Create() error = %v, want ErrInvalidFrequency", err)
		}
	})

	t.Run("zero amount rejected", func(t *testing.T) {
		svc := NewPlannedService(newFakeStore(), clock)
		p := plannedFixture(0, "Rent", 0, core.Expense, core.Monthly, core.NewDate(2024, 4, 1))
		if _, err := svc.Create(context.Background(), p); !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("Create() error = %v, want ErrInvalidAmount", err)
		}
	})
}

func TestPlannedService_Update_Validates(t *testing.T) {
	clock := fixedClock{today: core.NewDate(2024, 3, 1)}
	existing := plannedFixture(1, "Rent", 120000, core.Expense, core.Monthly, core.NewDate(2024, 4, 1))
	store := newFakeStore(existing)
	svc := NewPlannedService(store, clock)

	bad := existing
	bad.Title = ""
	if err := svc.Update(context.Background(), bad); !errors.Is(err, core.ErrEmptyTitle) {
		t.Errorf("Update() error = %v, want ErrEmptyTitle", err)
	}
	if store.records[1].Title != "Rent" {
		t.Error("invalid update was persisted")
	}
}

func TestPlannedService_Upcoming(t *testing.T) {
	today := core.NewDate(2024, 3, 15)
	inWindow := plannedFixture(1, "Rent", 120000, core.Expense, core.Monthly, core.NewDate(2024, 4, 1))
	pastDue := plannedFixture(2, "Netflix", 1500, core.Expense, core.Monthly, core.NewDate(2024, 3, 10))
	beyond := plannedFixture(3, "Insurance", 40000, core.Expense, core.Yearly, core.NewDate(2024, 6, 1))

	svc := NewPlannedService(newFakeStore(inWindow, pastDue, beyond), fixedClock{today: today})

	got, err := svc.Upcoming(context.Background(), "user-1", 30)
	if err != nil {
		t.Fatalf("Upcoming() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("Upcoming() = %+v, want only id 1", got)
	}
}
