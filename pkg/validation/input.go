// Package validation provides input validation helpers and the warning type
// returned by aggregations that skip records instead of failing.
package validation

import (
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/rental-analytics/pkg/mathutil"
)

// ErrInvalidInput is wrapped by every error reporting a caller contract
// violation: negative amounts, impossible terms, malformed dates.
var ErrInvalidInput = errors.New("invalid input")

// Invalidf formats an error that wraps ErrInvalidInput.
func Invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}

// IsInvalidInput reports whether err wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// NonNegative returns an error if value is negative, NaN or infinite.
func NonNegative(field string, value float64) error {
	if !mathutil.IsFinite(value) || value < 0 {
		return Invalidf("%s must be >= 0, got %.2f", field, value)
	}
	return nil
}

// Percentage returns an error unless 0 <= value <= 100.
func Percentage(field string, value float64) error {
	if !mathutil.IsFinite(value) || value < 0 || value > 100 {
		return Invalidf("%s must be between 0 and 100, got %.2f", field, value)
	}
	return nil
}

// DateRange returns an error if end is set and falls before start.
func DateRange(field string, start time.Time, end *time.Time) error {
	if start.IsZero() {
		return Invalidf("%s start date is required", field)
	}
	if end != nil && end.Before(start) {
		return Invalidf("%s end date %s is before start date %s",
			field, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return nil
}

// FirstError returns the first non-nil error.
func FirstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
