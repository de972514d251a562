// Package core provides business logic for schedule advancement.
//
// This file implements the Strategy Pattern for recurrence date advancement.
// Each frequency type (daily, weekly, monthly, yearly) has its own strategy
// that encapsulates the calendar arithmetic for that interval.

package core

import "time"

// Advancer is the strategy interface for computing the next occurrence date
// of a recurring rule from its current scheduled date.
type Advancer interface {
	// Advance returns the next occurrence date strictly after current.
	Advance(current Date) Date
}

// DailyAdvancer moves the schedule forward by one day.
type DailyAdvancer struct{}

func (DailyAdvancer) Advance(current Date) Date {
	return current.AddDays(1)
}

// WeeklyAdvancer moves the schedule forward by seven days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Advance(current Date) Date {
	return current.AddDays(7)
}

// MonthlyAdvancer moves the schedule forward by one calendar month.
// The day of month is clamped to the last day of the target month when the
// source day does not exist there (Jan 31 -> Feb 28/29).
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Advance(current Date) Date {
	return addMonthsClamped(current, 1)
}

// YearlyAdvancer moves the schedule forward by one calendar year,
// clamping Feb 29 to Feb 28 on non-leap target years.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Advance(current Date) Date {
	return addMonthsClamped(current, 12)
}

func addMonthsClamped(d Date, months int) Date {
	year, month, day := d.Date()
	// First of the target month avoids AddDate normalization overflow
	// (Jan 31 + 1 month must not become Mar 2/3).
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return NewDate(first.Year(), int(first.Month()), day)
}

// advancers maps frequencies to their corresponding strategies.
var advancers = map[Frequency]Advancer{
	Daily:   DailyAdvancer{},
	Weekly:  WeeklyAdvancer{},
	Monthly: MonthlyAdvancer{},
	Yearly:  YearlyAdvancer{},
}

// AdvancerFor returns the strategy for a frequency. Unrecognized frequencies
// fall back to monthly advancement so legacy stored values keep progressing;
// Validate rejects them at the write boundary.
func AdvancerFor(frequency Frequency) Advancer {
	if a, ok := advancers[frequency]; ok {
		return a
	}
	return MonthlyAdvancer{}
}

// Advance computes the next occurrence date for the given frequency.
func Advance(current Date, frequency Frequency) Date {
	return AdvancerFor(frequency).Advance(current)
}
