package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iwvelando/fpna/internal/auth"
	"github.com/iwvelando/fpna/internal/forecast"
	"github.com/iwvelando/fpna/internal/kpi"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/narrative"
	"github.com/iwvelando/fpna/internal/optimizer"
	"github.com/iwvelando/fpna/internal/report"
	"github.com/iwvelando/fpna/internal/variance"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/optimization"
	"github.com/iwvelando/fpna/pkg/validation"
	"go.uber.org/zap"
)

// AnalyzeRequest compares a year of actuals with a scenario.
type AnalyzeRequest struct {
	Year     int    `json:"year"`
	Scenario string `json:"scenario"`
}

// Analysis is the BvA result.
type Analysis struct {
	Year           int                     `json:"year"`
	Scenario       string                  `json:"scenario"`
	Summary        string                  `json:"summary"`
	HotspotSummary string                  `json:"hotspot_summary"`
	Totals         variance.CategoryTotals `json:"totals"`
	Hotspots       []variance.Hotspot      `json:"hotspots"`
	Lines          []variance.Line         `json:"lines"`
}

func (s *Service) yearActuals(ctx context.Context, year int) ([]ledger.Row, error) {
	actuals, err := s.store.Actuals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load actuals: %w", err)
	}
	return ledger.FilterYear(actuals, year), nil
}

// Analyze joins the year's actuals with the scenario's budget and narrates
// the variance. A short scenario label is qualified with Year.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (Analysis, error) {
	key := ledger.ResolveScenario(req.Year, req.Scenario)
	budget, err := s.Scenario(ctx, key)
	if err != nil {
		return Analysis{}, err
	}
	actuals, err := s.yearActuals(ctx, req.Year)
	if err != nil {
		return Analysis{}, err
	}
	n, err := s.normalizer(ctx)
	if err != nil {
		return Analysis{}, err
	}

	lines := variance.NewEngine(s.logger, n).Compute(actuals, budget)
	hotspots := variance.Hotspots(lines, constants.HotspotLimit)
	return Analysis{
		Year:           req.Year,
		Scenario:       key,
		Summary:        narrative.Summarize(lines),
		HotspotSummary: narrative.SummarizeHotspots(hotspots),
		Totals:         variance.ByCategory(lines),
		Hotspots:       hotspots,
		Lines:          lines,
	}, nil
}

// ForecastRequest projects one account's actuals forward.
type ForecastRequest struct {
	Year    int    `json:"year"`
	Account string `json:"account"`
	Model   string `json:"model"`
	Months  int    `json:"months"`
}

// Forecast builds the account's monthly functional-currency series for Year
// and forecasts Months periods. Zero Months and an empty Model use the
// service defaults.
func (s *Service) Forecast(ctx context.Context, req ForecastRequest) (forecast.Result, error) {
	modelName := req.Model
	if strings.TrimSpace(modelName) == "" {
		modelName = s.opts.ForecastModel
	}
	model, err := forecast.ParseModel(modelName)
	if err != nil {
		return forecast.Result{}, invalid(err)
	}
	horizon := req.Months
	if horizon == 0 {
		horizon = s.opts.ForecastHorizon
	}
	if err := validation.ValidateHorizon(horizon); err != nil {
		return forecast.Result{}, invalid(err)
	}

	actuals, err := s.store.Actuals(ctx)
	if err != nil {
		return forecast.Result{}, fmt.Errorf("load actuals: %w", err)
	}
	n, err := s.normalizer(ctx)
	if err != nil {
		return forecast.Result{}, err
	}
	history := forecast.SeriesFromRows(actuals, req.Account, req.Year, n)
	if len(history) == 0 {
		return forecast.Result{}, fmt.Errorf("%w: %s in %d", ErrNoActuals, req.Account, req.Year)
	}

	res, err := forecast.NewForecaster(s.logger).Forecast(history, model, horizon)
	if errors.Is(err, forecast.ErrNoHistory) {
		return forecast.Result{}, fmt.Errorf("%w: %s in %d", ErrNoActuals, req.Account, req.Year)
	}
	if err != nil {
		return forecast.Result{}, invalid(err)
	}
	return res, nil
}

// SolveRequest asks for lever settings that reach a target EBITDA.
type SolveRequest struct {
	Scenario     string  `json:"scenario"`
	TargetEBITDA float64 `json:"target_ebitda"`
	SearchRange  float64 `json:"search_range"`
	Method       string  `json:"method"`
	Apply        bool    `json:"apply"`
}

// Solve runs the grid goal-seek, or bisection on revenue when Method is
// "bisection". With Apply the winning levers are written to the scenario.
func (s *Service) Solve(ctx context.Context, actor auth.Principal, req SolveRequest) (optimization.Summary, error) {
	searchRange := req.SearchRange
	if searchRange == 0 {
		searchRange = s.opts.SearchRange
	}
	if err := optimizer.ValidateSearchRange(searchRange); err != nil {
		return optimization.Summary{}, invalid(err)
	}

	budget, err := s.Scenario(ctx, req.Scenario)
	if err != nil {
		return optimization.Summary{}, err
	}
	n, err := s.normalizer(ctx)
	if err != nil {
		return optimization.Summary{}, err
	}

	runner := optimizer.NewRunner(s.logger, n)
	var res *optimizer.Result
	switch strings.ToLower(strings.TrimSpace(req.Method)) {
	case "", optimization.MethodGrid:
		res, err = runner.GoalSeek(budget, req.TargetEBITDA, searchRange)
	case optimization.MethodBisection:
		res, err = runner.Bisect(budget, req.TargetEBITDA, searchRange)
	default:
		return optimization.Summary{}, invalidf("unknown solver method %q", req.Method)
	}
	if err != nil {
		return optimization.Summary{}, invalid(err)
	}
	res.Summary.Scenario = req.Scenario

	if req.Apply {
		if err := s.store.PutScenario(ctx, req.Scenario, res.Rows); err != nil {
			return optimization.Summary{}, fmt.Errorf("store scenario %s: %w", req.Scenario, err)
		}
		res.Summary.AppliedTo = req.Scenario
		s.record(ctx, actor, "solver_apply", map[string]any{
			"scenario":    req.Scenario,
			"method":      res.Summary.Method,
			"revenue_pct": res.Levers.Revenue,
			"cogs_pct":    res.Levers.COGS,
			"labor_pct":   res.Levers.Labor,
		})
	}
	return res.Summary, nil
}

// KPIs summarizes the year's actuals.
func (s *Service) KPIs(ctx context.Context, year int) (kpi.Summary, error) {
	actuals, err := s.yearActuals(ctx, year)
	if err != nil {
		return kpi.Summary{}, err
	}
	n, err := s.normalizer(ctx)
	if err != nil {
		return kpi.Summary{}, err
	}
	return kpi.Summarize(actuals, n), nil
}

// BoardPack builds the board pack for the year's actuals against scenario.
func (s *Service) BoardPack(ctx context.Context, actor auth.Principal, req AnalyzeRequest) (report.BoardPack, error) {
	analysis, err := s.Analyze(ctx, req)
	if err != nil {
		return report.BoardPack{}, err
	}
	summary, err := s.KPIs(ctx, req.Year)
	if err != nil {
		return report.BoardPack{}, err
	}
	pack := report.Build(req.Year, analysis.Scenario, summary, analysis.Summary)
	s.record(ctx, actor, "boardpack", map[string]any{"scenario": analysis.Scenario, "year": req.Year})
	s.logger.Info("board pack built",
		zap.String("op", "scenario.BoardPack"),
		zap.String("scenario", analysis.Scenario),
		zap.Int("year", req.Year),
	)
	return pack, nil
}
