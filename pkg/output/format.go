// Package output renders analysis, forecast and solver results for the CLI.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/fpna/internal/forecast"
	"github.com/iwvelando/fpna/internal/scenario"
	"github.com/iwvelando/fpna/pkg/format"
	"github.com/iwvelando/fpna/pkg/optimization"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func amount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// PrettyVariance writes the BvA summary, hotspots and category totals as a
// human-readable report.
func PrettyVariance(w io.Writer, a scenario.Analysis) {
	_, _ = fmt.Fprintf(w, "--- Budget vs actual %d (%s) ---\n", a.Year, a.Scenario)
	_, _ = fmt.Fprintf(w, "%s\n", a.Summary)
	if a.HotspotSummary != "" {
		_, _ = fmt.Fprintf(w, "%s\n", a.HotspotSummary)
	}
	_, _ = fmt.Fprintf(w, "\nCategory | Variance\n")
	_, _ = fmt.Fprintf(w, "________ | ________\n")
	_, _ = fmt.Fprintf(w, "Revenue  | %s\n", format.Currency(a.Totals.Revenue))
	_, _ = fmt.Fprintf(w, "COGS     | %s\n", format.Currency(a.Totals.COGS))
	_, _ = fmt.Fprintf(w, "Opex     | %s\n", format.Currency(a.Totals.Opex))

	if len(a.Hotspots) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "\nAccount | Month | Actual | Budget | Variance | FU\n")
	_, _ = fmt.Fprintf(w, "_______ | _____ | ______ | ______ | ________ | __\n")
	for _, h := range a.Hotspots {
		_, _ = fmt.Fprintf(w, "%s | %s | %s | %s | %s | %s\n",
			h.Account, h.Month,
			format.Currency(h.Actual), format.Currency(h.Budget), format.Currency(h.Variance),
			h.Status)
	}
}

// CsvVariance writes every variance line in comma-separated value format.
func CsvVariance(w io.Writer, a scenario.Analysis) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"account", "dept", "month", "currency", "actual", "budget", "rate", "actual_func", "budget_func", "variance", "fu"})
	for _, l := range a.Lines {
		_ = cw.Write([]string{
			l.Account, l.Dept, l.Month, l.Currency,
			amount(l.Actual), amount(l.Budget),
			strconv.FormatFloat(l.Rate, 'f', -1, 64),
			amount(l.ActualFunc), amount(l.BudgetFunc), amount(l.Variance),
			string(l.Status),
		})
	}
	cw.Flush()
	return cw.Error()
}

// PrettyForecast writes a forecast as a month/value table.
func PrettyForecast(w io.Writer, account string, res forecast.Result) {
	_, _ = fmt.Fprintf(w, "--- Forecast for %s (%s, %s) ---\n", account, res.Model, res.Method)
	_, _ = fmt.Fprintf(w, "Month   | Value\n")
	_, _ = fmt.Fprintf(w, "_____   | _____\n")
	for _, pt := range res.Points {
		_, _ = fmt.Fprintf(w, "%s | %s\n", pt.Month, format.Currency(pt.Value))
	}
}

// CsvForecast writes a forecast in comma-separated value format.
func CsvForecast(w io.Writer, account string, res forecast.Result) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"month", fmt.Sprintf("%s (%s)", account, res.Method)})
	for _, pt := range res.Points {
		_ = cw.Write([]string{pt.Month, amount(pt.Value)})
	}
	cw.Flush()
	return cw.Error()
}

// PrettySolve writes a goal-seek summary.
func PrettySolve(w io.Writer, s optimization.Summary) {
	p := message.NewPrinter(language.English)
	_, _ = fmt.Fprintf(w, "--- Goal seek for %s (%s) ---\n", s.Scenario, s.Method)
	_, _ = fmt.Fprintf(w, "Target EBITDA:   %s\n", format.Currency(s.Target))
	_, _ = fmt.Fprintf(w, "Baseline EBITDA: %s\n", format.Currency(s.BaselineEBITDA))
	_, _ = fmt.Fprintf(w, "Best EBITDA:     %s\n", format.Currency(s.BestEBITDA))
	_, _ = fmt.Fprintf(w, "Abs error:       %s\n", format.Currency(s.AbsError))
	_, _ = fmt.Fprintf(w, "Revenue lever:   %s\n", format.Percent(s.RevenuePct))
	_, _ = fmt.Fprintf(w, "COGS lever:      %s\n", format.Percent(s.COGSPct))
	_, _ = fmt.Fprintf(w, "Labor lever:     %s\n", format.Percent(s.LaborPct))
	_, _ = p.Fprintf(w, "Evaluations:     %d\n", s.Evaluations)
	if s.AppliedTo != "" {
		_, _ = fmt.Fprintf(w, "Applied to:      %s\n", s.AppliedTo)
	}
	if len(s.Notes) > 0 {
		_, _ = fmt.Fprintf(w, "Notes:           %s\n", strings.Join(s.Notes, "; "))
	}
}

// CsvSolve writes a goal-seek summary as a header and one row.
func CsvSolve(w io.Writer, s optimization.Summary) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"scenario", "method", "target_ebitda", "baseline_ebitda", "best_ebitda", "abs_error", "revenue_pct", "cogs_pct", "labor_pct", "evaluations", "applied_to"})
	_ = cw.Write([]string{
		s.Scenario, s.Method,
		amount(s.Target), amount(s.BaselineEBITDA), amount(s.BestEBITDA), amount(s.AbsError),
		strconv.FormatFloat(s.RevenuePct, 'f', -1, 64),
		strconv.FormatFloat(s.COGSPct, 'f', -1, 64),
		strconv.FormatFloat(s.LaborPct, 'f', -1, 64),
		strconv.Itoa(s.Evaluations), s.AppliedTo,
	})
	cw.Flush()
	return cw.Error()
}
