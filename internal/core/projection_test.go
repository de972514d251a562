package core

import "testing"

func TestMonthlyProjection(t *testing.T) {
	tests := []struct {
		name        string
		groups      []AmountGroup
		wantIncome  string
		wantExpense string
		wantBalance string
	}{
		{
			name:        "empty",
			groups:      nil,
			wantIncome:  "0.00",
			wantExpense: "0.00",
			wantBalance: "0.00",
		},
		{
			name: "monthly income and weekly expense",
			groups: []AmountGroup{
				{OperationType: Income, Frequency: Monthly, Total: Money{Cents: 300000}},
				{OperationType: Expense, Frequency: Weekly, Total: Money{Cents: 10000}},
			},
			wantIncome:  "3000.00",
			wantExpense: "433.00",
			wantBalance: "2567.00",
		},
		{
			name: "daily multiplies by thirty",
			groups: []AmountGroup{
				{OperationType: Expense, Frequency: Daily, Total: Money{Cents: 500}},
			},
			wantIncome:  "0.00",
			wantExpense: "150.00",
			wantBalance: "-150.00",
		},
		{
			name: "yearly divides by twelve with rounding",
			groups: []AmountGroup{
				{OperationType: Income, Frequency: Yearly, Total: Money{Cents: 100000}},
			},
			wantIncome:  "83.33",
			wantExpense: "0.00",
			wantBalance: "83.33",
		},
		{
			name: "unrecognized frequency treated as monthly",
			groups: []AmountGroup{
				{OperationType: Income, Frequency: Frequency("biweekly"), Total: Money{Cents: 20000}},
			},
			wantIncome:  "200.00",
			wantExpense: "0.00",
			wantBalance: "200.00",
		},
		{
			name: "mixed frequencies accumulate per side",
			groups: []AmountGroup{
				{OperationType: Income, Frequency: Monthly, Total: Money{Cents: 250000}},
				{OperationType: Income, Frequency: Yearly, Total: Money{Cents: 1200000}},
				{OperationType: Expense, Frequency: Monthly, Total: Money{Cents: 90000}},
				{OperationType: Expense, Frequency: Daily, Total: Money{Cents: 1000}},
			},
			wantIncome:  "3500.00",
			wantExpense: "1200.00",
			wantBalance: "2300.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyProjection(tt.groups)
			if s := got.MonthlyIncome.StringFixed(2); s != tt.wantIncome {
				t.Errorf("MonthlyIncome = %s, want %s", s, tt.wantIncome)
			}
			if s := got.MonthlyExpense.StringFixed(2); s != tt.wantExpense {
				t.Errorf("MonthlyExpense = %s, want %s", s, tt.wantExpense)
			}
			if s := got.MonthlyBalance.StringFixed(2); s != tt.wantBalance {
				t.Errorf("MonthlyBalance = %s, want %s", s, tt.wantBalance)
			}
		})
	}
}
