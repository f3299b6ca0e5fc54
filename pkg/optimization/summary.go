// Package optimization provides shared data structures for optimization results.
package optimization

// Method names the search strategy behind a Summary.
const (
	MethodGrid      = "grid"
	MethodBisection = "bisection"
)

// Summary captures the result of a single goal-seek run.
type Summary struct {
	Method         string   `json:"method"`
	Scenario       string   `json:"scenario"`
	Target         float64  `json:"target_ebitda"`
	BaselineEBITDA float64  `json:"baseline_ebitda"`
	BestEBITDA     float64  `json:"best_ebitda"`
	RevenuePct     float64  `json:"revenue_pct"`
	COGSPct        float64  `json:"cogs_pct"`
	LaborPct       float64  `json:"labor_pct"`
	AbsError       float64  `json:"abs_error"`
	SearchRange    float64  `json:"search_range"`
	Evaluations    int      `json:"evaluations"`
	AppliedTo      string   `json:"applied_to,omitempty"`
	Notes          []string `json:"notes,omitempty"`
	TargetDisplay  string   `json:"target_display,omitempty"`
	BestDisplay    string   `json:"best_display,omitempty"`
}
