// Package datetime provides month arithmetic for "YYYY-MM" periods.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/fpna/pkg/constants"
)

const (
	// DateTimeLayout is the month format used throughout the ledger.
	DateTimeLayout = constants.DateTimeLayout
)

// dateLayouts are the layouts accepted by MonthOf, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	DateTimeLayout,
}

// ParseMonth parses a "YYYY-MM" month.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(DateTimeLayout, strings.TrimSpace(month))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: expected YYYY-MM", month)
	}
	return t, nil
}

// ValidMonth reports whether month is a well-formed "YYYY-MM" value.
func ValidMonth(month string) bool {
	_, err := ParseMonth(month)
	return err == nil
}

// OffsetDate returns the string-formatted date offset by the given number of
// months relative to the given date.
func OffsetDate(date, layout string, months int) (string, error) {
	t, err := time.Parse(layout, date)
	if err != nil {
		return date, err
	}
	return t.AddDate(0, months, 0).Format(layout), nil
}

// NextMonths returns the n months that follow month, in order.
func NextMonths(month string, n int) ([]string, error) {
	start, err := ParseMonth(month)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, start.AddDate(0, i, 0).Format(DateTimeLayout))
	}
	return out, nil
}

// MonthsOfYear lists the twelve months of a fiscal year.
func MonthsOfYear(year int) []string {
	months := make([]string, 0, constants.MonthsPerYear)
	for m := 1; m <= constants.MonthsPerYear; m++ {
		months = append(months, fmt.Sprintf("%04d-%02d", year, m))
	}
	return months
}

// MonthIndex returns the zero-based position of month within its year.
func MonthIndex(month string) (int, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return 0, err
	}
	return int(t.Month()) - 1, nil
}

// InYear reports whether month belongs to year. Malformed months never do.
func InYear(month string, year int) bool {
	return strings.HasPrefix(month, fmt.Sprintf("%04d-", year))
}

// WithYear replaces the year of month, keeping the calendar month.
func WithYear(month string, year int) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return month, err
	}
	return fmt.Sprintf("%04d-%02d", year, int(t.Month())), nil
}

// DateBeforeDate returns true if firstDate is strictly before secondDate.
func DateBeforeDate(firstDate string, secondDate string) (bool, error) {
	firstDateT, err := ParseMonth(firstDate)
	if err != nil {
		return false, err
	}
	secondDateT, err := ParseMonth(secondDate)
	if err != nil {
		return false, err
	}
	return firstDateT.Before(secondDateT), nil
}

// MonthOf extracts the "YYYY-MM" month from a transaction date in any of the
// common export layouts.
func MonthOf(date string) (string, error) {
	trimmed := strings.TrimSpace(date)
	if trimmed == "" {
		return "", fmt.Errorf("date cannot be empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(DateTimeLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", date)
}
