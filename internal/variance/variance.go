// Package variance computes budget-vs-actual variance in the functional
// currency and classifies each line as favorable or unfavorable.
package variance

import (
	"math"
	"sort"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/mathutil"
	"go.uber.org/zap"
)

// Status is the favorable/unfavorable flag of a variance line.
type Status string

const (
	Favorable   Status = "F"
	Unfavorable Status = "U"
)

// Classify applies the sign rule: revenue is favorable when it beats plan,
// every other account is favorable when it comes in at or under plan.
func Classify(account string, variance float64) Status {
	if ledger.IsRevenue(account) {
		if variance >= 0 {
			return Favorable
		}
		return Unfavorable
	}
	if variance <= 0 {
		return Favorable
	}
	return Unfavorable
}

// Line is one joined (account, department, month, currency) cell.
type Line struct {
	Account    string  `json:"account_std"`
	Month      string  `json:"month"`
	Dept       string  `json:"dept"`
	Currency   string  `json:"currency"`
	Actual     float64 `json:"amount_actual"`
	Budget     float64 `json:"amount_budget"`
	Rate       float64 `json:"rate"`
	ActualFunc float64 `json:"amount_func"`
	BudgetFunc float64 `json:"budget_func"`
	Variance   float64 `json:"variance"`
	Status     Status  `json:"FU"`
}

// Engine joins actuals against a budget.
type Engine struct {
	logger     *zap.Logger
	normalizer *fx.Normalizer
}

// NewEngine creates an engine converting through normalizer.
func NewEngine(logger *zap.Logger, normalizer *fx.Normalizer) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger, normalizer: normalizer}
}

// Compute outer-joins actuals and budget on (account, department, month,
// currency). A side with no row contributes zero and duplicate keys within a
// side are summed. Lines are returned ordered by account, department, month
// and currency.
func (e *Engine) Compute(actuals, budget []ledger.Row) []Line {
	type cell struct {
		actual, budget float64
	}
	cells := make(map[ledger.Key]*cell)
	get := func(k ledger.Key) *cell {
		c, ok := cells[k]
		if !ok {
			c = &cell{}
			cells[k] = c
		}
		return c
	}
	for _, r := range actuals {
		get(r.Key()).actual += r.Amount
	}
	for _, r := range budget {
		get(r.Key()).budget += r.Amount
	}

	lines := make([]Line, 0, len(cells))
	for k, c := range cells {
		rate := e.normalizer.RateFor(k.Currency, k.Month)
		l := Line{
			Account:    k.Account,
			Month:      k.Month,
			Dept:       k.Dept,
			Currency:   k.Currency,
			Actual:     c.actual,
			Budget:     c.budget,
			Rate:       rate,
			ActualFunc: c.actual * rate,
			BudgetFunc: c.budget * rate,
		}
		l.Variance = l.ActualFunc - l.BudgetFunc
		l.Status = Classify(l.Account, l.Variance)
		lines = append(lines, l)
	}
	sortLines(lines)

	e.logger.Debug("computed variance",
		zap.String("op", "variance.Compute"),
		zap.Int("actualRows", len(actuals)),
		zap.Int("budgetRows", len(budget)),
		zap.Int("lines", len(lines)),
	)
	return lines
}

func sortLines(lines []Line) {
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.Account != b.Account {
			return a.Account < b.Account
		}
		if a.Dept != b.Dept {
			return a.Dept < b.Dept
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		return a.Currency < b.Currency
	})
}

// AccountTotal is the summed functional variance of one account.
type AccountTotal struct {
	Account  string  `json:"account_std"`
	Variance float64 `json:"variance"`
}

// TotalsByAccount sums variance per account and ranks the totals by absolute
// magnitude, largest first. Ties keep account order.
func TotalsByAccount(lines []Line) []AccountTotal {
	sums := make(map[string]float64)
	for _, l := range lines {
		sums[l.Account] += l.Variance
	}
	totals := make([]AccountTotal, 0, len(sums))
	for a, v := range sums {
		totals = append(totals, AccountTotal{Account: a, Variance: v})
	}
	sort.Slice(totals, func(i, j int) bool {
		ai, aj := math.Abs(totals[i].Variance), math.Abs(totals[j].Variance)
		if ai != aj {
			return ai > aj
		}
		return totals[i].Account < totals[j].Account
	})
	return totals
}

// CategoryTotals holds variance summed per account category.
type CategoryTotals struct {
	Revenue float64 `json:"revenue"`
	COGS    float64 `json:"cogs"`
	Opex    float64 `json:"opex"`
}

// Net is the bottom-line variance: revenue less costs.
func (c CategoryTotals) Net() float64 {
	return c.Revenue - c.COGS - c.Opex
}

// ByCategory sums variance per category.
func ByCategory(lines []Line) CategoryTotals {
	var c CategoryTotals
	for _, l := range lines {
		switch ledger.CategoryOf(l.Account) {
		case ledger.CategoryRevenue:
			c.Revenue += l.Variance
		case ledger.CategoryCOGS:
			c.COGS += l.Variance
		case ledger.CategoryOpex:
			c.Opex += l.Variance
		}
	}
	return c
}

// Hotspot is a variance aggregated to (account, month).
type Hotspot struct {
	Account  string  `json:"account_std"`
	Month    string  `json:"month"`
	Actual   float64 `json:"amount_func"`
	Budget   float64 `json:"budget_func"`
	Variance float64 `json:"variance"`
	Status   Status  `json:"FU"`
}

// Hotspots aggregates lines to (account, month), drops cells where both sides
// are zero to the cent and returns the n largest by absolute variance.
// n <= 0 returns all.
func Hotspots(lines []Line, n int) []Hotspot {
	type key struct{ account, month string }
	agg := make(map[key]*Hotspot)
	for _, l := range lines {
		k := key{l.Account, l.Month}
		h, ok := agg[k]
		if !ok {
			h = &Hotspot{Account: l.Account, Month: l.Month}
			agg[k] = h
		}
		h.Actual += l.ActualFunc
		h.Budget += l.BudgetFunc
	}

	out := make([]Hotspot, 0, len(agg))
	for _, h := range agg {
		if mathutil.IsZero(h.Actual) && mathutil.IsZero(h.Budget) {
			continue
		}
		h.Variance = h.Actual - h.Budget
		h.Status = Classify(h.Account, h.Variance)
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Variance), math.Abs(out[j].Variance)
		if ai != aj {
			return ai > aj
		}
		if out[i].Account != out[j].Account {
			return out[i].Account < out[j].Account
		}
		return out[i].Month < out[j].Month
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
