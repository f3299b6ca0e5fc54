// Package report renders the board pack: an executive summary and headline
// KPIs for a fiscal year.
package report

import (
	"fmt"
	"strings"

	"github.com/iwvelando/fpna/internal/kpi"
	"github.com/iwvelando/fpna/pkg/format"
	"gopkg.in/yaml.v3"
)

// KPI is one headline figure, already formatted.
type KPI struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// BoardPack is the rendered content of a board meeting deck.
type BoardPack struct {
	Year     int         `json:"year" yaml:"year"`
	Scenario string      `json:"scenario" yaml:"scenario"`
	Summary  string      `json:"summary" yaml:"summary"`
	Variance string      `json:"variance_summary,omitempty" yaml:"variance_summary,omitempty"`
	KPIs     []KPI       `json:"kpis" yaml:"kpis"`
	Months   []kpi.Month `json:"months" yaml:"-"`
}

// Build assembles the pack for year from its KPI summary. varianceSummary is
// the BvA narrative against scenario and may be empty.
func Build(year int, scenario string, s kpi.Summary, varianceSummary string) BoardPack {
	return BoardPack{
		Year:     year,
		Scenario: scenario,
		Summary:  fmt.Sprintf("Auto board summary for %d. GM avg %s.", year, format.Percent(s.AvgGrossMargin)),
		Variance: varianceSummary,
		KPIs: []KPI{
			{Name: "Revenue (YTD)", Value: format.WholeCurrency(s.Revenue)},
			{Name: "EBITDA (YTD)", Value: format.WholeCurrency(s.EBITDA)},
			{Name: "GM% (avg)", Value: format.Percent(s.AvgGrossMargin)},
		},
		Months: s.Months,
	}
}

// Markdown renders the pack as a Markdown document.
func (b BoardPack) Markdown() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Board Pack %d", b.Year)
	if b.Scenario != "" {
		fmt.Fprintf(&sb, " (%s)", b.Scenario)
	}
	sb.WriteString("\n\n## Executive Summary\n\n")
	sb.WriteString(b.Summary)
	sb.WriteString("\n")
	if b.Variance != "" {
		sb.WriteString("\n")
		sb.WriteString(b.Variance)
		sb.WriteString("\n")
	}

	sb.WriteString("\n## Key KPIs\n\n| KPI | Value |\n|---|---|\n")
	for _, k := range b.KPIs {
		fmt.Fprintf(&sb, "| %s | %s |\n", k.Name, k.Value)
	}

	if len(b.Months) > 0 {
		sb.WriteString("\n## Monthly Trend\n\n| Month | Revenue | COGS | EBITDA | GM% |\n|---|---|---|---|---|\n")
		for _, m := range b.Months {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
				m.Month,
				format.WholeCurrency(m.Revenue),
				format.WholeCurrency(m.COGS),
				format.WholeCurrency(m.EBITDA),
				format.Percent(m.GrossMargin),
			)
		}
	}
	return sb.String()
}

// YAML renders the summary and KPIs as YAML.
func (b BoardPack) YAML() ([]byte, error) {
	out, err := yaml.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal board pack: %w", err)
	}
	return out, nil
}
