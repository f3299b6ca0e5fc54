// Package validation provides request and configuration validation utilities.
package validation

import (
	"fmt"
	"math"

	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/datetime"
)

// Fiscal years outside this range are rejected.
const (
	MinFiscalYear = 1900
	MaxFiscalYear = 9999
)

// ValidateHorizon checks a forecast horizon in months.
func ValidateHorizon(months int) error {
	if months < 1 || months > constants.MaxForecastHorizon {
		return fmt.Errorf("horizon must be between 1 and %d months, got %d", constants.MaxForecastHorizon, months)
	}
	return nil
}

// ValidateFiscalYear checks a four-digit fiscal year.
func ValidateFiscalYear(year int) error {
	if year < MinFiscalYear || year > MaxFiscalYear {
		return fmt.Errorf("fiscal year must be between %d and %d, got %d", MinFiscalYear, MaxFiscalYear, year)
	}
	return nil
}

// ValidatePct checks an adjustment applied as amount x (1 + pct). Anything at
// or below -1 would zero or flip the sign of every amount.
func ValidatePct(name string, pct float64) error {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return fmt.Errorf("%s must be a finite number", name)
	}
	if pct <= -1 {
		return fmt.Errorf("%s must be greater than -1, got %g", name, pct)
	}
	return nil
}

// ValidateMonthWindow checks an optional inclusive YYYY-MM window. Either
// bound may be empty.
func ValidateMonthWindow(start, end string) error {
	for _, m := range []string{start, end} {
		if m != "" && !datetime.ValidMonth(m) {
			return fmt.Errorf("invalid month %q: expected YYYY-MM", m)
		}
	}
	if start != "" && end != "" && start > end {
		return fmt.Errorf("start month %s is after end month %s", start, end)
	}
	return nil
}

// ValidateSeedYears returns warnings about a seed budget year that does not
// follow the actuals year.
func ValidateSeedYears(actualsYear, budgetYear int) []string {
	var warnings []string
	if budgetYear <= actualsYear {
		warnings = append(warnings, fmt.Sprintf("seed budget year %d is not after actuals year %d", budgetYear, actualsYear))
	} else if budgetYear-actualsYear > 1 {
		warnings = append(warnings, fmt.Sprintf("seed budget year %d skips %d year(s) after actuals year %d", budgetYear, budgetYear-actualsYear-1, actualsYear))
	}
	return warnings
}
