// Package roster expands employee records into monthly payroll budget rows.
package roster

import (
	"fmt"
	"strings"

	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/datetime"
	"github.com/shopspring/decimal"
)

// Default payroll burden rates.
const (
	DefaultTaxesPct    = 0.076
	DefaultBenefitsPct = 0.08
)

// Employee is one roster entry.
type Employee struct {
	ID           string  `json:"emp_id" yaml:"emp_id"`
	Name         string  `json:"name" yaml:"name"`
	Dept         string  `json:"dept" yaml:"dept"`
	StartMonth   string  `json:"start_month" yaml:"start_month"`
	AnnualSalary float64 `json:"annual_salary" yaml:"annual_salary"`
	FTE          float64 `json:"fte" yaml:"fte"`
	RaiseMonth   string  `json:"raise_month,omitempty" yaml:"raise_month,omitempty"`
	RaisePct     float64 `json:"raise_pct" yaml:"raise_pct"`
	BenefitsPct  float64 `json:"benefits_pct" yaml:"benefits_pct"`
	TaxesPct     float64 `json:"taxes_pct" yaml:"taxes_pct"`
	Currency     string  `json:"currency" yaml:"currency"`
}

// DefaultEmployee returns an entry carrying the default FTE, burden rates
// and currency. Decode requests into it so omitted fields keep the defaults.
func DefaultEmployee() Employee {
	return Employee{
		Dept:        ledger.DeptHQ,
		FTE:         1.0,
		BenefitsPct: DefaultBenefitsPct,
		TaxesPct:    DefaultTaxesPct,
		Currency:    constants.DefaultFunctionalCurrency,
	}
}

// Validate checks an entry before it is stored.
func (e Employee) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("emp_id cannot be empty")
	}
	if !ledger.ValidDept(e.Dept) {
		return fmt.Errorf("employee %s: unknown department %q", e.ID, e.Dept)
	}
	if !datetime.ValidMonth(e.StartMonth) {
		return fmt.Errorf("employee %s: invalid start_month %q", e.ID, e.StartMonth)
	}
	if e.RaiseMonth != "" && !datetime.ValidMonth(e.RaiseMonth) {
		return fmt.Errorf("employee %s: invalid raise_month %q", e.ID, e.RaiseMonth)
	}
	if e.AnnualSalary < 0 {
		return fmt.Errorf("employee %s: annual_salary cannot be negative", e.ID)
	}
	if e.FTE <= 0 {
		return fmt.Errorf("employee %s: fte must be positive", e.ID)
	}
	if e.RaisePct < 0 || e.BenefitsPct < 0 || e.TaxesPct < 0 {
		return fmt.Errorf("employee %s: percentages cannot be negative", e.ID)
	}
	return nil
}

var twelve = decimal.NewFromInt(constants.MonthsPerYear)

// Expand produces one Labor, PayrollTaxes and Benefits row per employee for
// every month of year on or after the employee's start month. The raise
// applies from its month onward. Amounts are rounded to cents.
func Expand(employees []Employee, year int) []ledger.Row {
	var rows []ledger.Row
	for _, e := range employees {
		currency := e.Currency
		if currency == "" {
			currency = constants.DefaultFunctionalCurrency
		}
		for _, month := range datetime.MonthsOfYear(year) {
			if month < e.StartMonth {
				continue
			}
			annual := decimal.NewFromFloat(e.AnnualSalary)
			if e.RaiseMonth != "" && month >= e.RaiseMonth {
				annual = annual.Mul(decimal.NewFromFloat(1 + e.RaisePct))
			}
			monthly := annual.Div(twelve).Mul(decimal.NewFromFloat(e.FTE))
			taxes := monthly.Mul(decimal.NewFromFloat(e.TaxesPct))
			benefits := monthly.Mul(decimal.NewFromFloat(e.BenefitsPct))

			rows = append(rows,
				ledger.Row{Account: ledger.AccountLabor, Month: month, Amount: monthly.Round(2).InexactFloat64(), Dept: e.Dept, Currency: currency},
				ledger.Row{Account: ledger.AccountPayrollTaxes, Month: month, Amount: taxes.Round(2).InexactFloat64(), Dept: e.Dept, Currency: currency},
				ledger.Row{Account: ledger.AccountBenefits, Month: month, Amount: benefits.Round(2).InexactFloat64(), Dept: e.Dept, Currency: currency},
			)
		}
	}
	return rows
}

// ReplacePayroll drops the payroll rows of year from budget and appends
// payroll. Rows of other years and other accounts are untouched.
func ReplacePayroll(budget []ledger.Row, year int, payroll []ledger.Row) []ledger.Row {
	out := make([]ledger.Row, 0, len(budget)+len(payroll))
	for _, r := range budget {
		if ledger.IsPayroll(r.Account) && datetime.InYear(r.Month, year) {
			continue
		}
		out = append(out, r)
	}
	return append(out, payroll...)
}

// Upsert replaces the entry with the same ID or appends e.
func Upsert(employees []Employee, e Employee) []Employee {
	out := append([]Employee(nil), employees...)
	for i := range out {
		if out[i].ID == e.ID {
			out[i] = e
			return out
		}
	}
	return append(out, e)
}

// Remove deletes the entry with id, reporting whether it existed.
func Remove(employees []Employee, id string) ([]Employee, bool) {
	out := make([]Employee, 0, len(employees))
	found := false
	for _, e := range employees {
		if e.ID == id {
			found = true
			continue
		}
		out = append(out, e)
	}
	return out, found
}
