package datetime

import (
	"testing"
	"time"
)

func TestMustParseDate(t *testing.T) {
	tests := []struct {
		name     string
		dateStr  string
		expected string
	}{
		{
			name:     "Valid date",
			dateStr:  "2025-01-15",
			expected: "2025-01-15",
		},
		{
			name:     "Leap day",
			dateStr:  "2024-02-29",
			expected: "2024-02-29",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MustParseDate(tt.dateStr)
			if result.Format(DateLayout) != tt.expected {
				t.Errorf("MustParseDate() = %s, expected %s", result.Format(DateLayout), tt.expected)
			}
			if result.Location() != time.UTC {
				t.Errorf("MustParseDate() location = %v, expected UTC", result.Location())
			}
		})
	}
}

func TestMustParseDatePanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected MustParseDate to panic with invalid date")
		}
	}()

	MustParseDate("2024-13-01")
}

func TestParseOptionalDate(t *testing.T) {
	got, err := ParseOptionalDate("")
	if err != nil || got != nil {
		t.Fatalf("ParseOptionalDate(\"\") = %v, %v; expected nil, nil", got, err)
	}

	got, err = ParseOptionalDate("2022-10-01")
	if err != nil {
		t.Fatalf("ParseOptionalDate() error = %v", err)
	}
	if got == nil || got.Format(DateLayout) != "2022-10-01" {
		t.Fatalf("ParseOptionalDate() = %v, expected 2022-10-01", got)
	}

	if _, err := ParseOptionalDate("01/10/2022"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		name          string
		year          int
		month         time.Month
		expectedStart string
		expectedEnd   string
	}{
		{"January", 2024, time.January, "2024-01-01", "2024-02-01"},
		{"February leap year", 2024, time.February, "2024-02-01", "2024-03-01"},
		{"December rolls into next year", 2024, time.December, "2024-12-01", "2025-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := MonthBounds(tt.year, tt.month)
			if start.Format(DateLayout) != tt.expectedStart || end.Format(DateLayout) != tt.expectedEnd {
				t.Errorf("MonthBounds() = [%s, %s), expected [%s, %s)",
					start.Format(DateLayout), end.Format(DateLayout), tt.expectedStart, tt.expectedEnd)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	windowStart, windowEnd := MonthBounds(2024, time.June)
	endOnWindowStart := MustParseDate("2024-06-01")
	endInside := MustParseDate("2024-06-02")
	endBefore := MustParseDate("2024-05-20")

	tests := []struct {
		name     string
		start    time.Time
		end      *time.Time
		expected bool
	}{
		{"Open-ended lease started before", MustParseDate("2022-10-01"), nil, true},
		{"Starts mid-month", MustParseDate("2024-06-15"), nil, true},
		{"Starts on next month start", MustParseDate("2024-07-01"), nil, false},
		{"Ends exactly on window start", MustParseDate("2024-01-01"), &endOnWindowStart, false},
		{"Ends one day into window", MustParseDate("2024-01-01"), &endInside, true},
		{"Ended before window", MustParseDate("2024-01-01"), &endBefore, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.start, tt.end, windowStart, windowEnd); got != tt.expected {
				t.Errorf("Overlaps() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel(2024, time.October); got != "2024-10" {
		t.Errorf("MonthLabel() = %s, expected 2024-10", got)
	}
}
