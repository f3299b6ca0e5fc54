package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/iwvelando/fpna/internal/forecast"
	"github.com/iwvelando/fpna/internal/scenario"
	"github.com/iwvelando/fpna/internal/variance"
	"github.com/iwvelando/fpna/pkg/optimization"
)

func sampleAnalysis() scenario.Analysis {
	return scenario.Analysis{
		Year:           2025,
		Scenario:       "2025:Base",
		Summary:        "Revenue is under budget.",
		HotspotSummary: "Largest miss: Revenue:Food in 2025-03.",
		Totals:         variance.CategoryTotals{Revenue: -1500, COGS: 200, Opex: 0},
		Hotspots: []variance.Hotspot{
			{Account: "Revenue:Food", Month: "2025-03", Actual: 9000, Budget: 10500, Variance: -1500, Status: variance.Unfavorable},
		},
		Lines: []variance.Line{
			{Account: "Revenue:Food", Month: "2025-03", Dept: "Store", Currency: "USD", Actual: 9000, Budget: 10500, Rate: 1, ActualFunc: 9000, BudgetFunc: 10500, Variance: -1500, Status: variance.Unfavorable},
			{Account: "COGS:Food", Month: "2025-03", Dept: "Store", Currency: "EUR", Actual: 3000, Budget: 3200, Rate: 1.1, ActualFunc: 3300, BudgetFunc: 3520, Variance: 220, Status: variance.Favorable},
		},
	}
}

func TestPrettyVariance(t *testing.T) {
	var buf bytes.Buffer
	PrettyVariance(&buf, sampleAnalysis())
	output := buf.String()

	for _, want := range []string{
		"--- Budget vs actual 2025 (2025:Base) ---",
		"Revenue is under budget.",
		"Largest miss: Revenue:Food in 2025-03.",
		"Revenue  | -$1,500.00",
		"COGS     | $200.00",
		"Account | Month | Actual | Budget | Variance | FU",
		"Revenue:Food | 2025-03 | $9,000.00 | $10,500.00 | -$1,500.00 | U",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("PrettyVariance missing %q in:\n%s", want, output)
		}
	}
}

func TestPrettyVarianceWithoutHotspots(t *testing.T) {
	a := sampleAnalysis()
	a.Hotspots = nil
	a.HotspotSummary = ""

	var buf bytes.Buffer
	PrettyVariance(&buf, a)
	if strings.Contains(buf.String(), "Account | Month") {
		t.Errorf("expected no hotspot table, got:\n%s", buf.String())
	}
}

func TestCsvVariance(t *testing.T) {
	var buf bytes.Buffer
	if err := CsvVariance(&buf, sampleAnalysis()); err != nil {
		t.Fatalf("CsvVariance() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if records[0][0] != "account" || records[0][10] != "fu" {
		t.Errorf("unexpected header %v", records[0])
	}
	want := []string{"COGS:Food", "Store", "2025-03", "EUR", "3000.00", "3200.00", "1.1", "3300.00", "3520.00", "220.00", "F"}
	for i, v := range want {
		if records[2][i] != v {
			t.Errorf("column %d = %q, expected %q", i, records[2][i], v)
		}
	}
}

func TestForecastFormats(t *testing.T) {
	res := forecast.Result{
		Model:  "arima",
		Method: "ARIMA(1,1,0)",
		Points: []forecast.Point{{Month: "2026-01", Value: 1234.5}, {Month: "2026-02", Value: 1300}},
	}

	var pretty bytes.Buffer
	PrettyForecast(&pretty, "Revenue:Food", res)
	if !strings.Contains(pretty.String(), "--- Forecast for Revenue:Food (arima, ARIMA(1,1,0)) ---") {
		t.Errorf("PrettyForecast missing header:\n%s", pretty.String())
	}
	if !strings.Contains(pretty.String(), "2026-01 | $1,234.50") {
		t.Errorf("PrettyForecast missing first point:\n%s", pretty.String())
	}

	var buf bytes.Buffer
	if err := CsvForecast(&buf, "Revenue:Food", res); err != nil {
		t.Fatalf("CsvForecast() error = %v", err)
	}
	expected := "month,Revenue:Food (ARIMA(1,1,0))\n2026-01,1234.50\n2026-02,1300.00\n"
	if buf.String() != expected {
		t.Errorf("CsvForecast() = %q, expected %q", buf.String(), expected)
	}
}

func TestSolveFormats(t *testing.T) {
	s := optimization.Summary{
		Method:         optimization.MethodGrid,
		Scenario:       "2025:Base",
		Target:         500000,
		BaselineEBITDA: 450000,
		BestEBITDA:     499000,
		RevenuePct:     0.05,
		COGSPct:        -0.025,
		LaborPct:       0,
		AbsError:       1000,
		Evaluations:    729,
		AppliedTo:      "2025:Solved",
		Notes:          []string{"first", "second"},
	}

	var pretty bytes.Buffer
	PrettySolve(&pretty, s)
	output := pretty.String()
	for _, want := range []string{
		"--- Goal seek for 2025:Base (grid) ---",
		"Target EBITDA:   $500,000.00",
		"Revenue lever:   5.0%",
		"COGS lever:      -2.5%",
		"Evaluations:     729",
		"Applied to:      2025:Solved",
		"Notes:           first; second",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("PrettySolve missing %q in:\n%s", want, output)
		}
	}

	var buf bytes.Buffer
	if err := CsvSolve(&buf, s); err != nil {
		t.Fatalf("CsvSolve() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[1] != "2025:Base,grid,500000.00,450000.00,499000.00,1000.00,0.05,-0.025,0,729,2025:Solved" {
		t.Errorf("unexpected row %q", lines[1])
	}
}
