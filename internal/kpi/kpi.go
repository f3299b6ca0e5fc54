// Package kpi derives monthly profitability measures from ledger rows.
package kpi

import (
	"sort"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/mathutil"
)

// Month holds the measures of one period, all in functional currency.
// Opex excludes depreciation so that Revenue - COGS - Opex is EBITDA.
type Month struct {
	Month        string  `json:"month"`
	Revenue      float64 `json:"revenue"`
	COGS         float64 `json:"cogs"`
	Opex         float64 `json:"opex"`
	Depreciation float64 `json:"depreciation"`
	EBITDA       float64 `json:"ebitda"`
	GrossMargin  float64 `json:"gm"`
}

// Summary is the monthly series plus year-to-date totals.
type Summary struct {
	Months         []Month `json:"months"`
	Revenue        float64 `json:"revenue_total"`
	COGS           float64 `json:"cogs_total"`
	EBITDA         float64 `json:"ebitda_total"`
	AvgGrossMargin float64 `json:"gm_avg"`
}

// EBITDA returns revenue less COGS less operating expense excluding
// depreciation, converted through n. A nil normalizer uses native amounts.
func EBITDA(rows []ledger.Row, n *fx.Normalizer) float64 {
	total := 0.0
	for _, r := range rows {
		amt := amount(r, n)
		switch ledger.CategoryOf(r.Account) {
		case ledger.CategoryRevenue:
			total += amt
		case ledger.CategoryCOGS:
			total -= amt
		case ledger.CategoryOpex:
			if r.Account != ledger.AccountDepreciation {
				total -= amt
			}
		}
	}
	return total
}

// Summarize buckets rows by month. Gross margin is (revenue - COGS) / revenue
// and zero for a month without revenue.
func Summarize(rows []ledger.Row, n *fx.Normalizer) Summary {
	byMonth := make(map[string]*Month)
	for _, r := range rows {
		m, ok := byMonth[r.Month]
		if !ok {
			m = &Month{Month: r.Month}
			byMonth[r.Month] = m
		}
		amt := amount(r, n)
		switch ledger.CategoryOf(r.Account) {
		case ledger.CategoryRevenue:
			m.Revenue += amt
		case ledger.CategoryCOGS:
			m.COGS += amt
		case ledger.CategoryOpex:
			if r.Account == ledger.AccountDepreciation {
				m.Depreciation += amt
			} else {
				m.Opex += amt
			}
		}
	}

	var s Summary
	margins := make([]float64, 0, len(byMonth))
	for _, m := range byMonth {
		m.EBITDA = m.Revenue - m.COGS - m.Opex
		m.GrossMargin = mathutil.CalculatePercentage(m.Revenue-m.COGS, m.Revenue) / constants.PercentageMultiplier
		s.Months = append(s.Months, *m)
		s.Revenue += m.Revenue
		s.COGS += m.COGS
		s.EBITDA += m.EBITDA
		margins = append(margins, m.GrossMargin)
	}
	sort.Slice(s.Months, func(i, j int) bool { return s.Months[i].Month < s.Months[j].Month })
	s.AvgGrossMargin = mathutil.Mean(margins)
	return s
}

func amount(r ledger.Row, n *fx.Normalizer) float64 {
	if n == nil {
		return r.Amount
	}
	return n.Convert(r)
}
