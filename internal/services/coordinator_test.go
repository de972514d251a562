package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"bilancio/internal/core"
)

type fixedClock struct {
	today core.Date
}

func (c fixedClock) Now() time.Time {
	return c.today.Time
}

func (c fixedClock) Today() core.Date {
	return c.today
}

// fakeStore is an in-memory RecurrenceStore for coordinator tests.
type fakeStore struct {
	records    map[int64]*core.PlannedTransaction
	persistErr map[int64]error
	findDueErr error
}

func newFakeStore(records ...core.PlannedTransaction) *fakeStore {
	s := &fakeStore{
		records:    make(map[int64]*core.PlannedTransaction),
		persistErr: make(map[int64]error),
	}
	for i := range records {
		r := records[i]
		s.records[r.ID] = &r
	}
	return s
}

func (s *fakeStore) FindByID(_ context.Context, id int64, userID string) (*core.PlannedTransaction, error) {
	r, ok := s.records[id]
	if !ok || r.UserID != userID {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *fakeStore) FindAllDue(_ context.Context, userID string, asOf core.Date) ([]core.PlannedTransaction, error) {
	if s.findDueErr != nil {
		return nil, s.findDueErr
	}
	var due []core.PlannedTransaction
	for _, r := range s.records {
		if r.UserID == userID && r.IsDue(asOf) {
			due = append(due, *r)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextDate.Equal(due[j].NextDate) {
			return due[i].NextDate.Before(due[j].NextDate)
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

func (s *fakeStore) FindUpcoming(_ context.Context, userID string, asOf core.Date, horizonDays int) ([]core.PlannedTransaction, error) {
	var out []core.PlannedTransaction
	end := asOf.AddDays(horizonDays)
	for _, r := range s.records {
		if r.UserID == userID && r.Active && !r.NextDate.Before(asOf) && !r.NextDate.After(end.Time) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) FindByOperationType(_ context.Context, userID string, opType core.OperationType, activeOnly bool) ([]core.PlannedTransaction, error) {
	var out []core.PlannedTransaction
	for _, r := range s.records {
		if r.UserID == userID && r.OperationType == opType && (!activeOnly || r.Active) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *fakeStore) PersistNextDate(_ context.Context, id int64, newDate core.Date) error {
	if err := s.persistErr[id]; err != nil {
		return err
	}
	r, ok := s.records[id]
	if !ok {
		return errors.New("no such record")
	}
	r.NextDate = newDate
	return nil
}

func (s *fakeStore) SetActive(_ context.Context, id int64, userID string, active bool) error {
	r, ok := s.records[id]
	if !ok || r.UserID != userID {
		return errors.New("no such record")
	}
	r.Active = active
	return nil
}

func (s *fakeStore) AggregateCounts(_ context.Context, userID string, asOf core.Date) (core.PlannedCounts, error) {
	var c core.PlannedCounts
	for _, r := range s.records {
		if r.UserID != userID {
			continue
		}
		c.Total++
		if r.Active {
			c.Active++
			if r.OperationType == core.Income {
				c.IncomeActive++
			} else {
				c.ExpenseActive++
			}
			if r.IsDue(asOf) {
				c.Due++
			}
		} else {
			c.Inactive++
		}
	}
	return c, nil
}

func (s *fakeStore) SumAmountsByTypeAndFrequency(_ context.Context, userID string) ([]core.AmountGroup, error) {
	totals := make(map[[2]string]int64)
	for _, r := range s.records {
		if r.UserID != userID || !r.Active {
			continue
		}
		key := [2]string{string(r.OperationType), string(r.Frequency)}
		totals[key] += r.Amount.Cents
	}
	var groups []core.AmountGroup
	for key, cents := range totals {
		groups = append(groups, core.AmountGroup{
			OperationType: core.OperationType(key[0]),
			Frequency:     core.Frequency(key[1]),
			Total:         core.Money{Cents: cents},
		})
	}
	return groups, nil
}

// fakeLedger records postings and can be told to reject specific planned ids.
type fakeLedger struct {
	entries []core.Transaction
	failFor map[int64]error
	nextID  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{failFor: make(map[int64]error)}
}

func (l *fakeLedger) CreateTransaction(_ context.Context, t core.Transaction) (string, error) {
	if t.PlannedTransactionID != nil {
		if err := l.failFor[*t.PlannedTransactionID]; err != nil {
			return "", err
		}
	}
	l.nextID++
	t.ID = fmt.Sprintf("tx-%d", l.nextID)
	l.entries = append(l.entries, t)
	return t.ID, nil
}

func plannedFixture(id int64, title string, cents int64, opType core.OperationType, freq core.Frequency, next core.Date) core.PlannedTransaction {
	return core.PlannedTransaction{
		ID:            id,
		UserID:        "user-1",
		Title:         title,
		Amount:        core.Money{Cents: cents},
		OperationType: opType,
		Frequency:     freq,
		NextDate:      next,
		Active:        true,
	}
}

func TestCoordinator_ExecuteOne(t *testing.T) {
	today := core.NewDate(2024, 3, 1)
	rent := plannedFixture(1, "Rent", 120000, core.Expense, core.Monthly, core.NewDate(2024, 3, 1))

	store := newFakeStore(rent)
	ld := newFakeLedger()
	coord := NewCoordinator(store, ld, fixedClock{today: today})

	result, err := coord.ExecuteOne(context.Background(), 1, "user-1")
	if err != nil {
		t.Fatalf("ExecuteOne() error = %v", err)
	}

	if result.Transaction.AmountCents != -120000 {
		t.Errorf("posted amount = %d, want -120000", result.Transaction.AmountCents)
	}
	if !result.Transaction.PostedDate.Equal(today) {
		t.Errorf("posted date = %s, want %s", result.Transaction.PostedDate, today)
	}
	if result.Transaction.ID == "" {
		t.Error("transaction ID not assigned")
	}
	want := core.NewDate(2024, 4, 1)
	if !result.NextDate.Equal(want) {
		t.Errorf("next date = %s, want %s", result.NextDate, want)
	}
	if !result.ScheduleUpdated {
		t.Error("ScheduleUpdated = false, want true")
	}
	if !store.records[1].NextDate.Equal(want) {
		t.Errorf("persisted next date = %s, want %s", store.records[1].NextDate, want)
	}
	if len(ld.entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(ld.entries))
	}
}

func TestCoordinator_ExecuteOne_PostingDateIsToday(t *testing.T) {
	// An overdue rule executed late posts on the execution date, not the
	// scheduled date.
	today := core.NewDate(2024, 3, 10)
	rec := plannedFixture(1, "Gym", 5000, core.Expense, core.Monthly, core.NewDate(2024, 3, 1))

	store := newFakeStore(rec)
	ld := newFakeLedger()
	coord := NewCoordinator(store, ld, fixedClock{today: today})

	result, err := coord.ExecuteOne(context.Background(), 1, "user-1")
	if err != nil {
		t.Fatalf("ExecuteOne() error = %v", err)
	}
	if !result.Transaction.PostedDate.Equal(today) {
		t.Errorf("posted date = %s, want %s", result.Transaction.PostedDate, today)
	}
	// Schedule advances from the scheduled date, not from today.
	want := core.NewDate(2024, 4, 1)
	if !result.NextDate.Equal(want) {
		t.Errorf("next date = %s, want %s", result.NextDate, want)
	}
}

func TestCoordinator_ExecuteOne_Failures(t *testing.T) {
	today := core.NewDate(2024, 3, 1)

	t.Run("not found", func(t *testing.T) {
		coord := NewCoordinator(newFakeStore(), newFakeLedger(), fixedClock{today: today})
		_, err := coord.ExecuteOne(context.Background(), 99, "user-1")
		assertKind(t, err, KindNotFound)
	})

	t.Run("other user's record looks absent", func(t *testing.T) {
		rec := plannedFixture(1, "Rent", 120000, core.Expense, core.Monthly, today)
		coord := NewCoordinator(newFakeStore(rec), newFakeLedger(), fixedClock{today: today})
		_, err := coord.ExecuteOne(context.Background(), 1, "user-2")
		assertKind(t, err, KindNotFound)
	})

	t.Run("inactive record", func(t *testing.T) {
		rec := plannedFixture(1, "Rent", 120000, core.Expense, core.Monthly, today)
		rec.Active = false
		store := newFakeStore(rec)
		ld := newFakeLedger()
		coord := NewCoordinator(store, ld, fixedClock{today: today})
		_, err := coord.ExecuteOne(context.Background(), 1, "user-1")
		assertKind(t, err, KindInactive)
		if len(ld.entries) != 0 {
			t.Errorf("ledger entries = %d, want 0", len(ld.entries))
		}
	})

	t.Run("ledger write failure leaves schedule untouched", func(t *testing.T) {
		rec := plannedFixture(1, "Rent", 120000, core.Expense, core.Monthly, today)
		store := newFakeStore(rec)
		ld := newFakeLedger()
		ld.failFor[1] = errors.New("ledger rejected entry")
		coord := NewCoordinator(store, ld, fixedClock{today: today})

		_, err := coord.ExecuteOne(context.Background(), 1, "user-1")
		assertKind(t, err, KindLedgerWrite)
		if !store.records[1].NextDate.Equal(today) {
			t.Errorf("next date moved to %s despite ledger failure", store.records[1].NextDate)
		}
	})

	t.Run("schedule update failure still returns the posting", func(t *testing.T) {
		rec := plannedFixture(1, "Rent", 120000, core.Expense, core.Monthly, today)
		store := newFakeStore(rec)
		store.persistErr[1] = errors.New("disk full")
		ld := newFakeLedger()
		coord := NewCoordinator(store, ld, fixedClock{today: today})

		result, err := coord.ExecuteOne(context.Background(), 1, "user-1")
		assertKind(t, err, KindScheduleUpdate)
		if result == nil {
			t.Fatal("result = nil, want posting details despite schedule failure")
		}
		if result.ScheduleUpdated {
			t.Error("ScheduleUpdated = true, want false")
		}
		if len(ld.entries) != 1 {
			t.Errorf("ledger entries = %d, want 1", len(ld.entries))
		}
	})
}

func TestCoordinator_ExecuteOne_RetryAfterScheduleFailureDoublePosts(t *testing.T) {
	// At-least-once by design: when the schedule failed to advance, a retry
	// legitimately posts a second ledger entry. Nothing deduplicates it.
	today := core.NewDate(2024, 3, 1)
	rec := plannedFixture(1, "Rent", 120000, core.Expense, core.Monthly, today)
	store := newFakeStore(rec)
	store.persistErr[1] = errors.New("disk full")
	ld := newFakeLedger()
	coord := NewCoordinator(store, ld, fixedClock{today: today})

	if _, err := coord.ExecuteOne(context.Background(), 1, "user-1"); err == nil {
		t.Fatal("first ExecuteOne() expected schedule update error")
	}

	delete(store.persistErr, 1)
	result, err := coord.ExecuteOne(context.Background(), 1, "user-1")
	if err != nil {
		t.Fatalf("second ExecuteOne() error = %v", err)
	}
	if !result.ScheduleUpdated {
		t.Error("second run should advance the schedule")
	}
	if len(ld.entries) != 2 {
		t.Errorf("ledger entries = %d, want 2 (documented double post)", len(ld.entries))
	}
}

func TestCoordinator_ExecuteAllDue(t *testing.T) {
	today := core.NewDate(2024, 3, 15)

	first := plannedFixture(1, "Netflix", 1500, core.Expense, core.Monthly, core.NewDate(2024, 3, 10))
	second := plannedFixture(2, "Rent", 120000, core.Expense, core.Monthly, core.NewDate(2024, 3, 12))
	third := plannedFixture(3, "Salary", 300000, core.Income, core.Monthly, core.NewDate(2024, 3, 15))
	upcoming := plannedFixture(4, "Insurance", 40000, core.Expense, core.Yearly, core.NewDate(2024, 6, 1))
	inactive := plannedFixture(5, "Old gym", 3000, core.Expense, core.Monthly, core.NewDate(2024, 3, 1))
	inactive.Active = false

	store := newFakeStore(first, second, third, upcoming, inactive)
	ld := newFakeLedger()
	ld.failFor[2] = errors.New("ledger rejected entry")
	coord := NewCoordinator(store, ld, fixedClock{today: today})

	batch, err := coord.ExecuteAllDue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ExecuteAllDue() error = %v", err)
	}

	if batch.TotalExecuted != 2 {
		t.Errorf("TotalExecuted = %d, want 2", batch.TotalExecuted)
	}
	if batch.TotalFailed != 1 {
		t.Errorf("TotalFailed = %d, want 1", batch.TotalFailed)
	}

	// Output order follows ascending next date.
	if len(batch.Executed) != 2 || batch.Executed[0].PlannedID != 1 || batch.Executed[1].PlannedID != 3 {
		t.Errorf("Executed order = %+v, want ids [1 3]", batch.Executed)
	}
	if len(batch.Failed) != 1 || batch.Failed[0].PlannedID != 2 {
		t.Fatalf("Failed = %+v, want id 2", batch.Failed)
	}
	if batch.Failed[0].Kind != KindLedgerWrite {
		t.Errorf("failure kind = %s, want %s", batch.Failed[0].Kind, KindLedgerWrite)
	}

	// Surviving items advanced, the failed one did not, untouched records kept.
	if !store.records[1].NextDate.Equal(core.NewDate(2024, 4, 10)) {
		t.Errorf("record 1 next date = %s, want 2024-04-10", store.records[1].NextDate)
	}
	if !store.records[2].NextDate.Equal(core.NewDate(2024, 3, 12)) {
		t.Errorf("record 2 next date = %s, want unchanged 2024-03-12", store.records[2].NextDate)
	}
	if !store.records[3].NextDate.Equal(core.NewDate(2024, 4, 15)) {
		t.Errorf("record 3 next date = %s, want 2024-04-15", store.records[3].NextDate)
	}
	if !store.records[4].NextDate.Equal(core.NewDate(2024, 6, 1)) {
		t.Errorf("upcoming record touched: next date = %s", store.records[4].NextDate)
	}
	if len(ld.entries) != 2 {
		t.Errorf("ledger entries = %d, want 2", len(ld.entries))
	}
}

func TestCoordinator_ExecuteAllDue_SecondSweepIsEmpty(t *testing.T) {
	today := core.NewDate(2024, 3, 15)
	rec := plannedFixture(1, "Netflix", 1500, core.Expense, core.Monthly, core.NewDate(2024, 3, 15))
	store := newFakeStore(rec)
	ld := newFakeLedger()
	coord := NewCoordinator(store, ld, fixedClock{today: today})

	first, err := coord.ExecuteAllDue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("first sweep error = %v", err)
	}
	if first.TotalExecuted != 1 {
		t.Fatalf("first sweep executed = %d, want 1", first.TotalExecuted)
	}

	second, err := coord.ExecuteAllDue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("second sweep error = %v", err)
	}
	if second.TotalExecuted != 0 || second.TotalFailed != 0 {
		t.Errorf("second sweep = %d executed / %d failed, want 0/0", second.TotalExecuted, second.TotalFailed)
	}
}

func TestCoordinator_ExecuteAllDue_InactiveExclusion(t *testing.T) {
	today := core.NewDate(2024, 3, 15)
	rec := plannedFixture(1, "Netflix", 1500, core.Expense, core.Monthly, core.NewDate(2024, 3, 10))
	store := newFakeStore(rec)
	coord := NewCoordinator(store, newFakeLedger(), fixedClock{today: today})

	if err := store.SetActive(context.Background(), 1, "user-1", false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	batch, err := coord.ExecuteAllDue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ExecuteAllDue() error = %v", err)
	}
	if batch.TotalExecuted != 0 {
		t.Errorf("TotalExecuted = %d, want 0 after deactivation", batch.TotalExecuted)
	}
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want *ExecutionError", err)
	}
	if execErr.Kind != want {
		t.Errorf("error kind = %s, want %s", execErr.Kind, want)
	}
}
