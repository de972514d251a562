package services

import (
	"context"
	"testing"

	"bilancio/internal/core"
)

func TestStatsService_GetStats(t *testing.T) {
	today := core.NewDate(2024, 3, 15)

	salary := plannedFixture(1, "Salary", 300000, core.Income, core.Monthly, core.NewDate(2024, 3, 27))
	groceries := plannedFixture(2, "Groceries", 10000, core.Expense, core.Weekly, core.NewDate(2024, 3, 18))
	rent := plannedFixture(3, "Rent", 120000, core.Expense, core.Monthly, core.NewDate(2024, 3, 1))
	retired := plannedFixture(4, "Old gym", 3000, core.Expense, core.Monthly, core.NewDate(2024, 1, 1))
	retired.Active = false

	store := newFakeStore(salary, groceries, rent, retired)
	svc := NewStatsService(store, fixedClock{today: today})

	stats, err := svc.GetStats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}

	c := stats.Counts
	if c.Total != 4 || c.Active != 3 || c.Inactive != 1 {
		t.Errorf("counts = %+v, want total 4 / active 3 / inactive 1", c)
	}
	if c.Due != 1 {
		t.Errorf("due = %d, want 1 (only rent is due on %s)", c.Due, today)
	}
	if c.IncomeActive != 1 || c.ExpenseActive != 2 {
		t.Errorf("active split = %d income / %d expense, want 1/2", c.IncomeActive, c.ExpenseActive)
	}

	// 3000.00 monthly income; 100.00 weekly * 4.33 + 1200.00 monthly expense.
	p := stats.Projection
	if got := p.MonthlyIncome.StringFixed(2); got != "3000.00" {
		t.Errorf("monthly income = %s, want 3000.00", got)
	}
	if got := p.MonthlyExpense.StringFixed(2); got != "1633.00" {
		t.Errorf("monthly expense = %s, want 1633.00", got)
	}
	if got := p.MonthlyBalance.StringFixed(2); got != "1367.00" {
		t.Errorf("monthly balance = %s, want 1367.00", got)
	}
}

func TestStatsService_GetStats_EmptyUser(t *testing.T) {
	store := newFakeStore()
	svc := NewStatsService(store, fixedClock{today: core.NewDate(2024, 3, 15)})

	stats, err := svc.GetStats(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.Counts.Total != 0 {
		t.Errorf("total = %d, want 0", stats.Counts.Total)
	}
	if !stats.Projection.MonthlyBalance.IsZero() {
		t.Errorf("balance = %s, want 0", stats.Projection.MonthlyBalance)
	}
}
