// Package optimizer searches budget lever adjustments that bring EBITDA as
// close as possible to a target.
package optimizer

import (
	"fmt"
	"math"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/kpi"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/format"
	"github.com/iwvelando/fpna/pkg/mathutil"
	"github.com/iwvelando/fpna/pkg/optimization"
	"go.uber.org/zap"
)

// BisectionIterations is the fixed iteration count of the revenue-only search.
const BisectionIterations = 20

const bisectionNote = "Apply this % to all Revenue to hit target EBITDA (approx.)"

// Levers are the fractional adjustments applied to revenue, COGS and labor.
type Levers struct {
	Revenue float64 `json:"revenue_pct"`
	COGS    float64 `json:"cogs_pct"`
	Labor   float64 `json:"labor_pct"`
}

// Grid returns the nine lever steps used for each dimension of the search.
func Grid(searchRange float64) []float64 {
	return []float64{-searchRange, -0.10, -0.05, -0.02, 0, 0.02, 0.05, 0.10, searchRange}
}

// ApplyLevers returns a copy of rows with every Revenue account scaled by
// l.Revenue, every COGS account by l.COGS and Opex:Labor by l.Labor.
func ApplyLevers(rows []ledger.Row, l Levers) []ledger.Row {
	out := ledger.Clone(rows)
	for i := range out {
		switch {
		case ledger.CategoryOf(out[i].Account) == ledger.CategoryRevenue:
			out[i].Amount = mathutil.Scale(out[i].Amount, l.Revenue)
		case ledger.CategoryOf(out[i].Account) == ledger.CategoryCOGS:
			out[i].Amount = mathutil.Scale(out[i].Amount, l.COGS)
		case out[i].Account == ledger.AccountLabor:
			out[i].Amount = mathutil.Scale(out[i].Amount, l.Labor)
		}
	}
	return out
}

// ValidateSearchRange checks the outer lever bound.
func ValidateSearchRange(searchRange float64) error {
	if math.IsNaN(searchRange) || searchRange <= 0 || searchRange > 1 {
		return fmt.Errorf("search range must be greater than 0 and at most 1, got %v", searchRange)
	}
	return nil
}

// Runner evaluates lever settings against a budget.
type Runner struct {
	logger     *zap.Logger
	normalizer *fx.Normalizer
}

type evaluation struct {
	levers Levers
	ebitda float64
	err    float64
}

// Result is the outcome of a search: the summary and the budget with the
// winning levers applied.
type Result struct {
	Summary optimization.Summary
	Levers  Levers
	Rows    []ledger.Row
}

// NewRunner constructs a Runner that measures EBITDA through normalizer.
func NewRunner(logger *zap.Logger, normalizer *fx.Normalizer) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger, normalizer: normalizer}
}

func (r *Runner) evaluate(budget []ledger.Row, l Levers, target float64) evaluation {
	e := kpi.EBITDA(ApplyLevers(budget, l), r.normalizer)
	return evaluation{levers: l, ebitda: e, err: math.Abs(e - target)}
}

// GoalSeek evaluates all 729 combinations of Grid(searchRange) for the three
// levers and keeps the one whose EBITDA is closest to target. Ties keep the
// first combination found.
func (r *Runner) GoalSeek(budget []ledger.Row, target, searchRange float64) (*Result, error) {
	if err := ValidateSearchRange(searchRange); err != nil {
		return nil, err
	}

	steps := Grid(searchRange)
	best := evaluation{ebitda: math.Inf(-1), err: math.Inf(1)}
	evaluations := 0
	for _, rp := range steps {
		for _, cp := range steps {
			for _, lp := range steps {
				eval := r.evaluate(budget, Levers{Revenue: rp, COGS: cp, Labor: lp}, target)
				evaluations++
				if eval.err < best.err {
					best = eval
				}
			}
		}
	}

	res := r.result(optimization.MethodGrid, budget, target, searchRange, best, evaluations)
	r.logger.Info("goal seek complete",
		zap.String("op", "optimizer.GoalSeek"),
		zap.Float64("target", target),
		zap.Float64("bestEbitda", best.ebitda),
		zap.Float64("revenuePct", best.levers.Revenue),
		zap.Float64("cogsPct", best.levers.COGS),
		zap.Float64("laborPct", best.levers.Labor),
		zap.Float64("absError", best.err),
		zap.Int("evaluations", evaluations),
	)
	return res, nil
}

// Bisect searches the revenue lever alone over [-searchRange, searchRange]
// for BisectionIterations halvings, moving the lower bound up while EBITDA
// is short of target.
func (r *Runner) Bisect(budget []ledger.Row, target, searchRange float64) (*Result, error) {
	if err := ValidateSearchRange(searchRange); err != nil {
		return nil, err
	}

	lower, upper := -searchRange, searchRange
	best := evaluation{ebitda: math.Inf(-1), err: math.Inf(1)}
	iterations := 0
	for iterations < BisectionIterations {
		mid := lower + (upper-lower)/2
		eval := r.evaluate(budget, Levers{Revenue: mid}, target)
		iterations++
		if eval.err < best.err {
			best = eval
		}
		if eval.ebitda < target {
			lower = mid
		} else {
			upper = mid
		}
	}

	res := r.result(optimization.MethodBisection, budget, target, searchRange, best, iterations)
	res.Summary.Notes = append(res.Summary.Notes, bisectionNote)
	r.logger.Info("bisection complete",
		zap.String("op", "optimizer.Bisect"),
		zap.Float64("target", target),
		zap.Float64("bestEbitda", best.ebitda),
		zap.Float64("revenuePct", best.levers.Revenue),
		zap.Float64("absError", best.err),
		zap.Int("iterations", iterations),
	)
	return res, nil
}

func (r *Runner) result(method string, budget []ledger.Row, target, searchRange float64, best evaluation, evaluations int) *Result {
	baseline := kpi.EBITDA(budget, r.normalizer)
	summary := optimization.Summary{
		Method:         method,
		Target:         target,
		BaselineEBITDA: mathutil.Round(baseline),
		BestEBITDA:     mathutil.Round(best.ebitda),
		RevenuePct:     best.levers.Revenue,
		COGSPct:        best.levers.COGS,
		LaborPct:       best.levers.Labor,
		AbsError:       mathutil.Round(best.err),
		SearchRange:    searchRange,
		Evaluations:    evaluations,
		TargetDisplay:  format.Currency(target),
		BestDisplay:    format.Currency(best.ebitda),
	}
	if len(budget) == 0 {
		summary.Notes = append(summary.Notes, "budget has no rows; every combination yields zero EBITDA")
	}
	return &Result{Summary: summary, Levers: best.levers, Rows: ApplyLevers(budget, best.levers)}
}
