package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/fpna/internal/auth"
	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/preset"
	"github.com/iwvelando/fpna/internal/store"
	"github.com/iwvelando/fpna/pkg/validation"
	"go.uber.org/zap"
)

// SeedRequest controls demonstration seeding.
type SeedRequest struct {
	ActualsYear int
	BudgetYear  int
	Uplift      float64
}

// SeedResult reports what Seed wrote.
type SeedResult struct {
	Actuals  int    `json:"actuals"`
	Scenario string `json:"scenario,omitempty"`
	Rates    int    `json:"rates"`
}

// Seed fills an empty store with a year of QSR actuals, the Base budget of
// the budget year and the demo FX table. Non-empty parts are left alone.
func (s *Service) Seed(ctx context.Context, actor auth.Principal, req SeedRequest) (SeedResult, error) {
	var res SeedResult
	actuals, err := s.store.Actuals(ctx)
	if err != nil {
		return res, fmt.Errorf("load actuals: %w", err)
	}
	if len(actuals) == 0 {
		actuals = preset.SeedActuals(req.ActualsYear, s.opts.FunctionalCurrency)
		if err := s.store.ReplaceActuals(ctx, actuals); err != nil {
			return res, fmt.Errorf("seed actuals: %w", err)
		}
		res.Actuals = len(actuals)
	}

	key := ledger.ScenarioKey(req.BudgetYear, "")
	if _, err := s.store.Scenario(ctx, key); errors.Is(err, store.ErrNotFound) {
		budget := preset.SeedBudget(ledger.FilterYear(actuals, req.ActualsYear), req.BudgetYear, req.Uplift)
		if err := s.store.PutScenario(ctx, key, budget); err != nil {
			return res, fmt.Errorf("seed budget: %w", err)
		}
		res.Scenario = key
	} else if err != nil {
		return res, fmt.Errorf("load scenario %s: %w", key, err)
	}

	rates, err := s.store.Rates(ctx)
	if err != nil {
		return res, fmt.Errorf("load fx rates: %w", err)
	}
	if len(rates) == 0 {
		rates = fx.DefaultRates(s.opts.FunctionalCurrency, req.ActualsYear, req.BudgetYear)
		if err := s.store.PutRates(ctx, rates); err != nil {
			return res, fmt.Errorf("seed fx rates: %w", err)
		}
		res.Rates = len(rates)
	}

	if res.Actuals > 0 || res.Scenario != "" || res.Rates > 0 {
		s.record(ctx, actor, "seed", map[string]any{"actuals": res.Actuals, "scenario": res.Scenario, "rates": res.Rates})
	}
	s.logger.Info("seed complete",
		zap.String("op", "scenario.Seed"),
		zap.Int("actuals", res.Actuals),
		zap.String("scenario", res.Scenario),
		zap.Int("rates", res.Rates),
	)
	return res, nil
}

// Generated reports a budget written to a scenario.
type Generated struct {
	Scenario string `json:"scenario"`
	Rows     int    `json:"rows"`
}

// PresetRequest asks for a QSR driver-based budget.
type PresetRequest struct {
	FiscalYear int            `json:"fiscal_year"`
	Overrides  map[string]any `json:"overrides,omitempty"`
	GDPGrowth  float64        `json:"gdp_growth"`
}

// PresetQSR writes a QSR budget into "<fiscal year>:Base".
func (s *Service) PresetQSR(ctx context.Context, actor auth.Principal, req PresetRequest) (Generated, error) {
	params, err := s.opts.QSR.WithOverrides(req.Overrides)
	if err != nil {
		return Generated{}, invalid(err)
	}
	rows, err := preset.QSR(req.FiscalYear, params, req.GDPGrowth, s.opts.FunctionalCurrency)
	if err != nil {
		return Generated{}, invalid(err)
	}
	key := ledger.ScenarioKey(req.FiscalYear, "")
	if err := s.store.PutScenario(ctx, key, rows); err != nil {
		return Generated{}, fmt.Errorf("store scenario %s: %w", key, err)
	}
	s.record(ctx, actor, "preset_qsr", map[string]any{"scenario": key})
	return Generated{Scenario: key, Rows: len(rows)}, nil
}

// AutogenRequest asks for a trend-based budget.
type AutogenRequest struct {
	FiscalYear int     `json:"fiscal_year"`
	YoY        float64 `json:"yoy"`
	GDPGrowth  float64 `json:"gdp_growth"`
}

// Autogen writes a budget built from the trailing actuals into
// "<fiscal year>:Base".
func (s *Service) Autogen(ctx context.Context, actor auth.Principal, req AutogenRequest) (Generated, error) {
	actuals, err := s.store.Actuals(ctx)
	if err != nil {
		return Generated{}, fmt.Errorf("load actuals: %w", err)
	}
	if len(actuals) == 0 {
		return Generated{}, ErrNoActuals
	}
	rows := preset.Autogen(actuals, req.FiscalYear, req.YoY, req.GDPGrowth)
	key := ledger.ScenarioKey(req.FiscalYear, "")
	if err := s.store.PutScenario(ctx, key, rows); err != nil {
		return Generated{}, fmt.Errorf("store scenario %s: %w", key, err)
	}
	s.record(ctx, actor, "budget_autogen", map[string]any{"scenario": key})
	return Generated{Scenario: key, Rows: len(rows)}, nil
}

// Scenarios lists scenario keys.
func (s *Service) Scenarios(ctx context.Context) ([]string, error) {
	keys, err := s.store.Scenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	if keys == nil {
		keys = []string{}
	}
	return keys, nil
}

// Scenario returns the rows of key.
func (s *Service) Scenario(ctx context.Context, key string) ([]ledger.Row, error) {
	rows, err := s.store.Scenario(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrScenarioNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load scenario %s: %w", key, err)
	}
	if rows == nil {
		rows = []ledger.Row{}
	}
	return rows, nil
}

// DeleteScenario removes key.
func (s *Service) DeleteScenario(ctx context.Context, actor auth.Principal, key string) error {
	err := s.store.DeleteScenario(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrScenarioNotFound, key)
	}
	if err != nil {
		return fmt.Errorf("delete scenario %s: %w", key, err)
	}
	s.record(ctx, actor, "scenario_delete", map[string]any{"scenario": key})
	return nil
}

// DefaultClonePct is the adjustment applied by Clone when none is given.
const DefaultClonePct = 0.02

// CloneRequest copies Base into To with every amount scaled by 1 + Pct.
type CloneRequest struct {
	Base string  `json:"base"`
	To   string  `json:"to"`
	Pct  float64 `json:"pct"`
}

// Clone writes an independent, uniformly adjusted copy of a scenario.
func (s *Service) Clone(ctx context.Context, actor auth.Principal, req CloneRequest) (Generated, error) {
	if strings.TrimSpace(req.To) == "" {
		return Generated{}, invalidf("target scenario cannot be empty")
	}
	if err := validation.ValidatePct("pct", req.Pct); err != nil {
		return Generated{}, invalid(err)
	}
	rows, err := s.store.Scenario(ctx, req.Base)
	if errors.Is(err, store.ErrNotFound) {
		return Generated{}, fmt.Errorf("%w: base %s", ErrScenarioNotFound, req.Base)
	}
	if err != nil {
		return Generated{}, fmt.Errorf("load scenario %s: %w", req.Base, err)
	}
	scaled, _ := ledger.Scale(rows, req.Pct, nil)
	if err := s.store.PutScenario(ctx, req.To, scaled); err != nil {
		return Generated{}, fmt.Errorf("store scenario %s: %w", req.To, err)
	}
	s.record(ctx, actor, "scenario_clone", map[string]any{"from": req.Base, "to": req.To, "pct": req.Pct})
	s.logger.Info("scenario cloned",
		zap.String("op", "scenario.Clone"),
		zap.String("from", req.Base),
		zap.String("to", req.To),
		zap.Float64("pct", req.Pct),
	)
	return Generated{Scenario: req.To, Rows: len(scaled)}, nil
}

// DefaultSensitivityPattern and DefaultSensitivityPct apply when a
// sensitivity request leaves them out.
const (
	DefaultSensitivityPattern = "COGS:*"
	DefaultSensitivityPct     = 0.1
)

// SensitivityRequest scales the matching rows of a scenario in place.
type SensitivityRequest struct {
	Scenario       string  `json:"scenario"`
	AccountPattern string  `json:"account_pattern"`
	StartMonth     string  `json:"start_month,omitempty"`
	EndMonth       string  `json:"end_month,omitempty"`
	Pct            float64 `json:"pct"`
}

// Sensitivity scales rows whose account matches the pattern and whose month
// falls in the optional inclusive window. It returns the number of rows
// changed.
func (s *Service) Sensitivity(ctx context.Context, actor auth.Principal, req SensitivityRequest) (int, error) {
	if err := validation.ValidateMonthWindow(req.StartMonth, req.EndMonth); err != nil {
		return 0, invalid(err)
	}
	if err := validation.ValidatePct("pct", req.Pct); err != nil {
		return 0, invalid(err)
	}
	pattern := req.AccountPattern
	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultSensitivityPattern
	}

	rows, err := s.Scenario(ctx, req.Scenario)
	if err != nil {
		return 0, err
	}
	scaled, n := ledger.Scale(rows, req.Pct, func(r ledger.Row) bool {
		if !ledger.MatchPattern(r.Account, pattern) {
			return false
		}
		if req.StartMonth != "" && r.Month < req.StartMonth {
			return false
		}
		if req.EndMonth != "" && r.Month > req.EndMonth {
			return false
		}
		return true
	})
	if err := s.store.PutScenario(ctx, req.Scenario, scaled); err != nil {
		return 0, fmt.Errorf("store scenario %s: %w", req.Scenario, err)
	}
	s.record(ctx, actor, "scenario_sensitivity", map[string]any{"scenario": req.Scenario, "pattern": pattern, "pct": req.Pct})
	return n, nil
}

// SaveVersion snapshots a scenario under name and returns the scenario's
// version names.
func (s *Service) SaveVersion(ctx context.Context, actor auth.Principal, scenario, name string) ([]string, error) {
	if strings.TrimSpace(name) == "" {
		return nil, invalidf("version name cannot be empty")
	}
	rows, err := s.Scenario(ctx, scenario)
	if err != nil {
		return nil, err
	}
	v := store.Version{Scenario: scenario, Name: name, SavedAt: s.now().UTC(), Rows: rows}
	if err := s.store.SaveVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("save version %s: %w", name, err)
	}
	s.record(ctx, actor, "versions_save", map[string]any{"scenario": scenario, "name": name})
	return s.Versions(ctx, scenario)
}

// Versions lists the version names of scenario.
func (s *Service) Versions(ctx context.Context, scenario string) ([]string, error) {
	names, err := s.store.Versions(ctx, scenario)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// RestoreVersion replaces a scenario's rows with a saved snapshot.
func (s *Service) RestoreVersion(ctx context.Context, actor auth.Principal, scenario, name string) error {
	v, err := s.store.Version(ctx, scenario, name)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrVersionNotFound, scenario, name)
	}
	if err != nil {
		return fmt.Errorf("load version %s: %w", name, err)
	}
	if err := s.store.PutScenario(ctx, scenario, v.Rows); err != nil {
		return fmt.Errorf("store scenario %s: %w", scenario, err)
	}
	s.record(ctx, actor, "versions_restore", map[string]any{"scenario": scenario, "name": name})
	return nil
}

// RetrieveRequest selects scenario rows for a spreadsheet view.
type RetrieveRequest struct {
	Year     int      `json:"year"`
	Scenario string   `json:"scenario"`
	Accounts []string `json:"accounts,omitempty"`
}

// Retrieve returns the rows of the scenario in Year whose accounts match
// any of Accounts, ordered by account, department and month. A short
// scenario label is qualified with Year.
func (s *Service) Retrieve(ctx context.Context, req RetrieveRequest) ([]ledger.Row, error) {
	key := ledger.ResolveScenario(req.Year, req.Scenario)
	rows, err := s.Scenario(ctx, key)
	if err != nil {
		return nil, err
	}
	out := []ledger.Row{}
	for _, r := range ledger.FilterYear(rows, req.Year) {
		if ledger.MatchAny(r.Account, req.Accounts) {
			out = append(out, r)
		}
	}
	ledger.Sort(out)
	return out, nil
}

// SubmitRequest writes spreadsheet rows back into a scenario.
type SubmitRequest struct {
	Scenario string       `json:"scenario"`
	Rows     []ledger.Row `json:"rows"`
}

// SubmitResult reports whether the scenario was created or updated.
type SubmitResult struct {
	Created string `json:"created,omitempty"`
	Rows    int    `json:"rows,omitempty"`
	Updated int    `json:"updated,omitempty"`
}

// Submit upserts rows into the scenario, last write wins on
// (account, department, month). A missing scenario is created from rows.
func (s *Service) Submit(ctx context.Context, actor auth.Principal, req SubmitRequest) (SubmitResult, error) {
	if strings.TrimSpace(req.Scenario) == "" {
		return SubmitResult{}, invalidf("scenario cannot be empty")
	}
	incoming := ledger.Clone(req.Rows)
	for i := range incoming {
		incoming[i].Normalize(s.opts.FunctionalCurrency)
		if err := incoming[i].Validate(); err != nil {
			return SubmitResult{}, invalidf("row %d: %v", i+1, err)
		}
	}

	existing, err := s.store.Scenario(ctx, req.Scenario)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.store.PutScenario(ctx, req.Scenario, incoming); err != nil {
			return SubmitResult{}, fmt.Errorf("store scenario %s: %w", req.Scenario, err)
		}
		s.record(ctx, actor, "excel_submit_create", map[string]any{"scenario": req.Scenario, "rows": len(incoming)})
		return SubmitResult{Created: req.Scenario, Rows: len(incoming)}, nil
	}
	if err != nil {
		return SubmitResult{}, fmt.Errorf("load scenario %s: %w", req.Scenario, err)
	}

	if err := s.store.PutScenario(ctx, req.Scenario, ledger.Upsert(existing, incoming)); err != nil {
		return SubmitResult{}, fmt.Errorf("store scenario %s: %w", req.Scenario, err)
	}
	s.record(ctx, actor, "excel_submit_update", map[string]any{"scenario": req.Scenario, "rows": len(incoming)})
	return SubmitResult{Updated: len(incoming)}, nil
}
