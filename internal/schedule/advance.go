// Package schedule computes occurrence dates for recurring items.
//
// Each frequency has its own advancer that encapsulates the calendar rule for
// moving an anchor date to the next occurrence. Advancers are pure: the result
// depends only on the anchor date and the item's interval.
package schedule

import (
	"fmt"
	"time"

	"cadence/internal/core"
)

// Advancer is the strategy interface for computing the next occurrence date
// from an anchor date. customDays is only meaningful for the custom frequency;
// other advancers ignore it.
type Advancer interface {
	Advance(anchor core.Date, customDays int) core.Date
}

// DailyAdvancer moves the anchor forward by one day.
type DailyAdvancer struct{}

func (DailyAdvancer) Advance(anchor core.Date, _ int) core.Date {
	return anchor.AddDays(1)
}

// WeeklyAdvancer moves the anchor forward by seven days.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Advance(anchor core.Date, _ int) core.Date {
	return anchor.AddDays(7)
}

// MonthlyAdvancer moves the anchor to the same day of the next month, clamping
// to the last valid day when the target month is shorter (Jan 31 advances to
// Feb 28 or 29, never Mar 2).
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Advance(anchor core.Date, _ int) core.Date {
	year, month, day := anchor.Year(), anchor.Month(), anchor.Day()
	month++
	if month > 12 {
		month = 1
		year++
	}
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

// YearlyAdvancer moves the anchor to the same day of the next year, clamping
// Feb 29 to Feb 28 in non-leap target years.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Advance(anchor core.Date, _ int) core.Date {
	year, month, day := anchor.Year()+1, anchor.Month(), anchor.Day()
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return core.NewDate(year, month, day)
}

// CustomAdvancer moves the anchor forward by the item's own interval in days.
// An unset interval falls back to one day, matching the daily rule.
type CustomAdvancer struct{}

func (CustomAdvancer) Advance(anchor core.Date, customDays int) core.Date {
	if customDays < 1 {
		customDays = 1
	}
	return anchor.AddDays(customDays)
}

// advancers maps frequencies to their corresponding strategies.
var advancers = map[core.Frequency]Advancer{
	core.Daily:   DailyAdvancer{},
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
	core.Custom:  CustomAdvancer{},
}

// GetAdvancer returns the advancer for a frequency.
// Returns an error if the frequency is not supported.
func GetAdvancer(frequency core.Frequency) (Advancer, error) {
	a, ok := advancers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return a, nil
}

// RegisterAdvancer allows registering custom advancers for new frequencies.
func RegisterAdvancer(frequency core.Frequency, a Advancer) {
	advancers[frequency] = a
}

// Advance computes the next occurrence date after anchor for the given
// frequency. For valid frequencies any calendar date yields a valid result.
func Advance(anchor core.Date, frequency core.Frequency, customDays int) (core.Date, error) {
	a, err := GetAdvancer(frequency)
	if err != nil {
		return core.Date{}, err
	}
	return a.Advance(anchor, customDays), nil
}

// IsDue reports whether an item whose next occurrence is nextDate should be
// surfaced as due on today. Overdue items are due.
func IsDue(nextDate, today core.Date) bool {
	return !nextDate.After(today.Time)
}

func lastDayOfMonth(year, month int) int {
	// Day zero of the following month.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
