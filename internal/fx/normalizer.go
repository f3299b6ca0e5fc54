// Package fx converts ledger amounts into the functional currency.
package fx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/datetime"
)

// Rate is one entry of the FX table: one unit of Base is worth Rate units of
// Quote in Month.
type Rate struct {
	Base  string  `json:"base" yaml:"base"`
	Quote string  `json:"quote" yaml:"quote"`
	Month string  `json:"month" yaml:"month"`
	Rate  float64 `json:"rate" yaml:"rate"`
}

// Validate checks a single rate entry.
func (r Rate) Validate() error {
	if strings.TrimSpace(r.Base) == "" || strings.TrimSpace(r.Quote) == "" {
		return fmt.Errorf("rate requires base and quote currencies")
	}
	if !datetime.ValidMonth(r.Month) {
		return fmt.Errorf("rate %s/%s: invalid month %q", r.Base, r.Quote, r.Month)
	}
	if r.Rate <= 0 {
		return fmt.Errorf("rate %s/%s %s must be positive, got %v", r.Base, r.Quote, r.Month, r.Rate)
	}
	return nil
}

type point struct {
	month string
	rate  float64
}

// Normalizer resolves the rate for a (currency, month) pair. Only rates
// quoted in the functional currency are considered. A month with no rate
// takes the latest earlier rate of the same currency, then the earliest
// later one; a currency with no rate at all converts at 1.0.
type Normalizer struct {
	functional string
	series     map[string][]point
}

// NewNormalizer indexes rates for conversion into functional.
func NewNormalizer(functional string, rates []Rate) *Normalizer {
	functional = strings.ToUpper(strings.TrimSpace(functional))
	n := &Normalizer{functional: functional, series: make(map[string][]point)}

	latest := make(map[string]map[string]float64)
	for _, r := range rates {
		if !strings.EqualFold(r.Quote, functional) {
			continue
		}
		base := strings.ToUpper(strings.TrimSpace(r.Base))
		if latest[base] == nil {
			latest[base] = make(map[string]float64)
		}
		latest[base][r.Month] = r.Rate
	}
	for base, byMonth := range latest {
		pts := make([]point, 0, len(byMonth))
		for m, rate := range byMonth {
			pts = append(pts, point{month: m, rate: rate})
		}
		sort.Slice(pts, func(i, j int) bool { return pts[i].month < pts[j].month })
		n.series[base] = pts
	}
	return n
}

// Functional returns the functional currency code.
func (n *Normalizer) Functional() string {
	return n.functional
}

// RateFor returns the rate converting currency into the functional currency
// for month.
func (n *Normalizer) RateFor(currency, month string) float64 {
	pts := n.series[strings.ToUpper(strings.TrimSpace(currency))]
	if len(pts) == 0 {
		return 1.0
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].month >= month })
	switch {
	case i < len(pts) && pts[i].month == month:
		return pts[i].rate
	case i > 0:
		return pts[i-1].rate
	default:
		return pts[0].rate
	}
}

// Amount converts a native amount.
func (n *Normalizer) Amount(amount float64, currency, month string) float64 {
	return amount * n.RateFor(currency, month)
}

// Convert returns the functional-currency amount of row.
func (n *Normalizer) Convert(row ledger.Row) float64 {
	return n.Amount(row.Amount, row.Currency, row.Month)
}

// DefaultRates returns the demo rate table: USD at par, EUR at 1.10 and INR
// at 0.012 against functional for every month of years.
func DefaultRates(functional string, years ...int) []Rate {
	fixed := []struct {
		base string
		rate float64
	}{
		{"USD", 1.0},
		{"EUR", 1.1},
		{"INR", 0.012},
	}
	var out []Rate
	for _, y := range years {
		for _, m := range datetime.MonthsOfYear(y) {
			for _, f := range fixed {
				out = append(out, Rate{Base: f.base, Quote: functional, Month: m, Rate: f.rate})
			}
		}
	}
	return out
}

// Upsert merges incoming rates into existing, replacing entries with the same
// (base, quote, month).
func Upsert(existing, incoming []Rate) []Rate {
	type key struct{ base, quote, month string }
	idx := make(map[key]int, len(existing))
	out := append([]Rate(nil), existing...)
	for i, r := range out {
		idx[key{r.Base, r.Quote, r.Month}] = i
	}
	for _, r := range incoming {
		r.Base = strings.ToUpper(strings.TrimSpace(r.Base))
		r.Quote = strings.ToUpper(strings.TrimSpace(r.Quote))
		k := key{r.Base, r.Quote, r.Month}
		if i, ok := idx[k]; ok {
			out[i] = r
			continue
		}
		idx[k] = len(out)
		out = append(out, r)
	}
	return out
}
