package optimizer

import (
	"math"
	"testing"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/kpi"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/optimization"
	"go.uber.org/zap"
)

func testBudget() []ledger.Row {
	return []ledger.Row{
		{Account: "Revenue:Food", Month: "2026-01", Amount: 10000, Dept: "Sales", Currency: "USD"},
		{Account: "Revenue:Beverage", Month: "2026-01", Amount: 1000, Dept: "Sales", Currency: "EUR"},
		{Account: "COGS:Food", Month: "2026-01", Amount: 3000, Dept: "Ops", Currency: "USD"},
		{Account: "COGS:Paper", Month: "2026-01", Amount: 400, Dept: "Ops", Currency: "USD"},
		{Account: "Opex:Labor", Month: "2026-01", Amount: 2500, Dept: "Ops", Currency: "USD"},
		{Account: "Opex:Rent", Month: "2026-01", Amount: 1000, Dept: "HQ", Currency: "USD"},
		{Account: "Opex:Depreciation", Month: "2026-01", Amount: 500, Dept: "HQ", Currency: "USD"},
	}
}

func testRunner() *Runner {
	return NewRunner(zap.NewNop(), fx.NewNormalizer("USD", fx.DefaultRates("USD", 2026)))
}

func TestGoalSeekBeatsEveryGridCombination(t *testing.T) {
	runner := testRunner()
	budget := testBudget()

	for _, target := range []float64{0, 4000, 5250, 6000, 9000, -1000} {
		for _, searchRange := range []float64{0.1, 0.2, 0.5} {
			res, err := runner.GoalSeek(budget, target, searchRange)
			if err != nil {
				t.Fatalf("GoalSeek(%v, %v) error: %v", target, searchRange, err)
			}
			if res.Summary.Evaluations != 729 {
				t.Errorf("evaluations = %d, expected 729", res.Summary.Evaluations)
			}

			bestErr := math.Abs(kpi.EBITDA(ApplyLevers(budget, res.Levers), runner.normalizer) - target)
			steps := Grid(searchRange)
			for _, rp := range steps {
				for _, cp := range steps {
					for _, lp := range steps {
						e := kpi.EBITDA(ApplyLevers(budget, Levers{rp, cp, lp}), runner.normalizer)
						if math.Abs(e-target) < bestErr {
							t.Fatalf("target %v: combination (%v,%v,%v) error %v beats reported %v",
								target, rp, cp, lp, math.Abs(e-target), bestErr)
						}
					}
				}
			}
			if math.Abs(res.Summary.AbsError-bestErr) > 0.01 {
				t.Errorf("summary abs error %v, recomputed %v", res.Summary.AbsError, bestErr)
			}
		}
	}
}

func TestGoalSeekSummary(t *testing.T) {
	res, err := testRunner().GoalSeek(testBudget(), 5750, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	s := res.Summary
	if s.Method != optimization.MethodGrid {
		t.Errorf("method = %s", s.Method)
	}
	// 11100 revenue - 3400 COGS - 3500 opex excluding depreciation.
	if s.BaselineEBITDA != 4200 {
		t.Errorf("baseline = %v, expected 4200", s.BaselineEBITDA)
	}
	if s.TargetDisplay != "$5,750.00" {
		t.Errorf("target display = %q", s.TargetDisplay)
	}
	if len(res.Rows) != len(testBudget()) {
		t.Errorf("adjusted budget has %d rows", len(res.Rows))
	}
	if got := kpi.EBITDA(res.Rows, testRunner().normalizer); math.Abs(got-s.BestEBITDA) > 0.01 {
		t.Errorf("adjusted rows EBITDA %v, summary %v", got, s.BestEBITDA)
	}
}

func TestApplyLevers(t *testing.T) {
	rows := append(testBudget(), ledger.Row{Account: "Opex:LaborBonus", Month: "2026-01", Amount: 100})
	adjusted := ApplyLevers(rows, Levers{Revenue: 0.1, COGS: -0.5, Labor: 0.2})

	expected := map[string]float64{
		"Revenue:Food":      11000,
		"Revenue:Beverage":  1100,
		"COGS:Food":         1500,
		"COGS:Paper":        200,
		"Opex:Labor":        3000,
		"Opex:Rent":         1000,
		"Opex:Depreciation": 500,
		"Opex:LaborBonus":   100,
	}
	for _, r := range adjusted {
		if math.Abs(r.Amount-expected[r.Account]) > 1e-9 {
			t.Errorf("%s = %v, expected %v", r.Account, r.Amount, expected[r.Account])
		}
	}
	if rows[0].Amount != 10000 {
		t.Errorf("input mutated: %v", rows[0].Amount)
	}
}

func TestBisect(t *testing.T) {
	runner := testRunner()
	budget := testBudget()
	// Revenue is 11100 in USD, so +10% adds 1110.
	res, err := runner.Bisect(budget, 5310, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	s := res.Summary
	if s.Method != optimization.MethodBisection {
		t.Errorf("method = %s", s.Method)
	}
	if s.Evaluations != BisectionIterations {
		t.Errorf("evaluations = %d, expected %d", s.Evaluations, BisectionIterations)
	}
	if math.Abs(s.RevenuePct-0.1) > 1e-4 {
		t.Errorf("revenue pct = %v, expected 0.1", s.RevenuePct)
	}
	if s.COGSPct != 0 || s.LaborPct != 0 {
		t.Errorf("bisection moved non-revenue levers: %+v", res.Levers)
	}
	if s.AbsError > 1 {
		t.Errorf("abs error = %v", s.AbsError)
	}
	if len(s.Notes) == 0 {
		t.Error("expected bisection note")
	}
}

func TestBisectClampsToRange(t *testing.T) {
	res, err := testRunner().Bisect(testBudget(), 1e9, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.RevenuePct < 0.19 || res.Summary.RevenuePct > 0.2 {
		t.Errorf("revenue pct = %v, expected close to upper bound", res.Summary.RevenuePct)
	}
}

func TestSearchRangeValidation(t *testing.T) {
	runner := testRunner()
	for _, r := range []float64{0, -0.1, 1.5, math.NaN()} {
		if _, err := runner.GoalSeek(testBudget(), 1, r); err == nil {
			t.Errorf("GoalSeek accepted search range %v", r)
		}
		if _, err := runner.Bisect(testBudget(), 1, r); err == nil {
			t.Errorf("Bisect accepted search range %v", r)
		}
	}
}

func TestGoalSeekEmptyBudget(t *testing.T) {
	res, err := testRunner().GoalSeek(nil, 100, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.AbsError != 100 || len(res.Summary.Notes) == 0 {
		t.Errorf("unexpected summary %+v", res.Summary)
	}
}
