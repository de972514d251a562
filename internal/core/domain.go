package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	Income  OperationType = "income"
	Expense OperationType = "expense"
)

const (
	DurationDays   DurationUnit = "day"
	DurationMonths DurationUnit = "month"
	DurationYears  DurationUnit = "year"
)

type (
	Frequency     string
	OperationType string
	DurationUnit  string

	// Date is a calendar date with no time component, normalized to UTC midnight.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// PlannedTransaction is a user-defined recurring income or expense rule.
	// Amount is always a positive magnitude; the sign is derived from
	// OperationType at read time via SignedCents.
	PlannedTransaction struct {
		ID            int64
		UserID        string
		Title         string
		Description   string
		Amount        Money
		OperationType OperationType
		Frequency     Frequency
		NextDate      Date
		InterestRate  *float64 // percentage in [0,100], informational
		Duration      *int64
		DurationUnit  DurationUnit
		CategoryID    *int64
		SubCategoryID *int64
		AccountID     *int64
		Active        bool
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyTitle          = errors.New("empty title")
	ErrTitleTooLong        = errors.New("title too long (max 150 characters)")
	ErrDescriptionTooLong  = errors.New("description too long (max 1000 characters)")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrInvalidOperation    = errors.New("invalid operation type")
	ErrInvalidInterestRate = errors.New("interest rate must be between 0 and 100")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrEmptyUser           = errors.New("empty user id")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t.UTC()}, nil
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// Equal reports whether d and other are the same calendar date.
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SignedCents returns the amount with the sign implied by the operation type:
// negative for expenses, positive for income. The magnitude always equals Amount.
func (p PlannedTransaction) SignedCents() int64 {
	if p.OperationType == Expense {
		return -p.Amount.Cents
	}
	return p.Amount.Cents
}

// IsDueToday reports whether the rule fires exactly today.
func (p PlannedTransaction) IsDueToday(today Date) bool {
	return p.Active && p.NextDate.Equal(today)
}

// IsOverdue reports whether the rule's scheduled date has already passed.
func (p PlannedTransaction) IsOverdue(today Date) bool {
	return p.Active && p.NextDate.Before(today)
}

// IsDue reports whether the rule is eligible for execution: active and
// scheduled for today or earlier.
func (p PlannedTransaction) IsDue(today Date) bool {
	return p.Active && !p.NextDate.After(today.Time)
}

func (p PlannedTransaction) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUser
	}
	if len(strings.TrimSpace(p.Title)) == 0 {
		return ErrEmptyTitle
	}
	if utf8.RuneCountInString(p.Title) > 150 {
		return ErrTitleTooLong
	}
	if utf8.RuneCountInString(p.Description) > 1000 {
		return ErrDescriptionTooLong
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	switch p.OperationType {
	case Income, Expense:
	default:
		return ErrInvalidOperation
	}
	switch p.Frequency {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return ErrInvalidFrequency
	}
	if err := p.NextDate.Validate(); err != nil {
		return errors.New("invalid next date: " + err.Error())
	}
	if p.InterestRate != nil {
		if *p.InterestRate < 0 || *p.InterestRate > 100 {
			return ErrInvalidInterestRate
		}
	}
	if p.Duration != nil {
		if *p.Duration <= 0 {
			return ErrInvalidDuration
		}
		switch p.DurationUnit {
		case DurationDays, DurationMonths, DurationYears:
		default:
			return ErrInvalidDuration
		}
	}
	return nil
}
