package core

import "github.com/shopspring/decimal"

// AmountGroup is a per-(operation type, frequency) total of active planned
// transaction amounts, as produced by the storage grouped aggregate.
type AmountGroup struct {
	OperationType OperationType
	Frequency     Frequency
	Total         Money
}

// Projection is a normalized monthly-equivalent estimate of recurring cash
// flow. It is a forecasting approximation (the weekly factor is non-integer),
// not an accounting reconciliation.
type Projection struct {
	MonthlyIncome  decimal.Decimal
	MonthlyExpense decimal.Decimal
	MonthlyBalance decimal.Decimal
}

var (
	daysPerMonth  = decimal.NewFromInt(30)
	weeksPerMonth = decimal.RequireFromString("4.33") // 52 weeks / 12 months
	monthsPerYear = decimal.NewFromInt(12)
	centsPerUnit  = decimal.NewFromInt(100)
)

// monthlyEquivalent converts a per-frequency total into its monthly figure.
// Unrecognized frequencies are treated as already monthly so legacy stored
// values still contribute; Validate rejects them at the write boundary.
func monthlyEquivalent(total Money, frequency Frequency) decimal.Decimal {
	amount := decimal.NewFromInt(total.Cents).Div(centsPerUnit)
	switch frequency {
	case Daily:
		return amount.Mul(daysPerMonth)
	case Weekly:
		return amount.Mul(weeksPerMonth)
	case Yearly:
		return amount.Div(monthsPerYear)
	default:
		return amount
	}
}

// MonthlyProjection sums the monthly equivalents of the given groups into
// income, expense, and balance figures, each rounded to two decimal places.
func MonthlyProjection(groups []AmountGroup) Projection {
	income := decimal.Zero
	expense := decimal.Zero
	for _, g := range groups {
		eq := monthlyEquivalent(g.Total, g.Frequency)
		if g.OperationType == Expense {
			expense = expense.Add(eq)
		} else {
			income = income.Add(eq)
		}
	}
	income = income.Round(2)
	expense = expense.Round(2)
	return Projection{
		MonthlyIncome:  income,
		MonthlyExpense: expense,
		MonthlyBalance: income.Sub(expense).Round(2),
	}
}
