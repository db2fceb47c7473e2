// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"time"

	"github.com/iwvelando/rental-analytics/pkg/constants"
)

const (
	// DateLayout is the calendar date format used in datasets.
	DateLayout = constants.DateLayout
)

// MustParseDate parses a calendar date and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseDate(dateStr string) time.Time {
	t, err := ParseDate(dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDate parses a YYYY-MM-DD date at midnight UTC.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(DateLayout, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q with layout %s: %w", dateStr, DateLayout, err)
	}
	return t, nil
}

// ParseOptionalDate parses dateStr, returning nil for an empty string.
func ParseOptionalDate(dateStr string) (*time.Time, error) {
	if dateStr == "" {
		return nil, nil
	}
	t, err := ParseDate(dateStr)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MonthBounds returns the half-open interval [start, end) covering the given
// calendar month.
func MonthBounds(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// YearBounds returns the half-open interval [start, end) covering the given
// calendar year.
func YearBounds(year int) (time.Time, time.Time) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(1, 0, 0)
}

// Overlaps reports whether [start, end) intersects [windowStart, windowEnd).
// A nil end is open-ended.
func Overlaps(start time.Time, end *time.Time, windowStart, windowEnd time.Time) bool {
	if !start.Before(windowEnd) {
		return false
	}
	return end == nil || end.After(windowStart)
}

// MonthLabel formats the month as YYYY-MM.
func MonthLabel(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format(constants.MonthLayout)
}
