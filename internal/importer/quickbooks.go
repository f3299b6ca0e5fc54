// Package importer maps accounting-system exports onto ledger rows.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/datetime"
	"github.com/shopspring/decimal"
)

// ErrMissingColumn matches any MissingColumnError.
var ErrMissingColumn = errors.New("missing column")

// MissingColumnError names a required column absent from an import.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("Missing %s column", e.Column)
}

// Is reports whether target is ErrMissingColumn.
func (e *MissingColumnError) Is(target error) bool {
	return target == ErrMissingColumn
}

// Column names of a QuickBooks general ledger export.
const (
	ColDate     = "Date"
	ColAccount  = "Account"
	ColAmount   = "Amount"
	ColDept     = "Dept"
	ColCurrency = "Currency"
)

// RequiredColumns must be present in every import.
var RequiredColumns = []string{ColDate, ColAccount, ColAmount}

var accountMap = map[string]string{
	"Sales - Food":     ledger.AccountRevenueFood,
	"Sales - Beverage": ledger.AccountRevenueBeverage,
	"COGS - Food":      ledger.AccountCOGSFood,
	"COGS - Paper":     ledger.AccountCOGSPaper,
	"Wages":            ledger.AccountLabor,
	"Payroll Taxes":    ledger.AccountPayrollTaxes,
	"Benefits":         ledger.AccountBenefits,
	"Rent":             ledger.AccountRent,
	"Utilities":        ledger.AccountUtilities,
	"Royalty":          ledger.AccountRoyalty,
	"Advertising":      ledger.AccountAdFund,
	"Repairs":          ledger.AccountRepairs,
	"Supplies":         ledger.AccountSupplies,
	"Insurance":        ledger.AccountInsurance,
	"Depreciation":     ledger.AccountDepreciation,
}

// MapAccount translates a QuickBooks account name to the standard chart.
// Unknown names pass through unchanged.
func MapAccount(name string) string {
	name = strings.TrimSpace(name)
	if std, ok := accountMap[name]; ok {
		return std
	}
	return name
}

// Record is one decoded import row keyed by column name.
type Record map[string]any

// FromRecords converts records to ledger rows. Dept defaults to HQ and
// Currency to functional; the transaction date is reduced to its month.
func FromRecords(records []Record, functional string) ([]ledger.Row, error) {
	present := make(map[string]bool)
	for _, rec := range records {
		for col := range rec {
			present[col] = true
		}
	}
	if len(records) > 0 {
		for _, col := range RequiredColumns {
			if !present[col] {
				return nil, &MissingColumnError{Column: col}
			}
		}
	}

	rows := make([]ledger.Row, 0, len(records))
	for i, rec := range records {
		row, err := parseRecord(rec, functional)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec Record, functional string) (ledger.Row, error) {
	month, err := datetime.MonthOf(text(rec[ColDate]))
	if err != nil {
		return ledger.Row{}, err
	}
	account := MapAccount(text(rec[ColAccount]))
	if account == "" {
		return ledger.Row{}, fmt.Errorf("account cannot be empty")
	}
	amount, err := ParseAmount(rec[ColAmount])
	if err != nil {
		return ledger.Row{}, err
	}

	row := ledger.Row{
		Account:  account,
		Month:    month,
		Amount:   amount,
		Dept:     text(rec[ColDept]),
		Currency: text(rec[ColCurrency]),
	}
	row.Normalize(functional)
	return row, nil
}

// ParseAmount accepts JSON numbers and strings such as "1,234.50",
// "$99" or the accounting negative "(12.00)".
func ParseAmount(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case nil:
		return 0, fmt.Errorf("amount is empty")
	}

	s := strings.TrimSpace(text(v))
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", text(v), err)
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64(), nil
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// ReadCSV decodes a CSV export with a header row into records. Blank cells
// are left out so column defaults apply.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	lines, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	header := make([]string, len(lines[0]))
	for i, h := range lines[0] {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	for _, col := range RequiredColumns {
		if !contains(header, col) {
			return nil, &MissingColumnError{Column: col}
		}
	}

	records := make([]Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rec := make(Record, len(header))
		for i, cell := range line {
			if i >= len(header) || strings.TrimSpace(cell) == "" {
				continue
			}
			rec[header[i]] = cell
		}
		// Required columns stay present so blank cells surface as row errors.
		for _, col := range RequiredColumns {
			if _, ok := rec[col]; !ok {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// FromCSV reads a CSV export straight into ledger rows.
func FromCSV(r io.Reader, functional string) ([]ledger.Row, error) {
	records, err := ReadCSV(r)
	if err != nil {
		return nil, err
	}
	return FromRecords(records, functional)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
