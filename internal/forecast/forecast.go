// Package forecast projects a monthly series forward with either an
// autoregressive model on first differences or a lagged linear regression,
// each with a simple fallback when the fit is not usable.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/datetime"
	"github.com/iwvelando/fpna/pkg/mathutil"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrUnknownModel is returned for a model name other than arima or ml.
	ErrUnknownModel = errors.New("unknown forecast model")
	// ErrNoHistory is returned when there is nothing to forecast from.
	ErrNoHistory = errors.New("no history to forecast from")
)

// Model selects the forecasting strategy.
type Model string

const (
	ModelARIMA Model = "arima"
	ModelML    Model = "ml"
)

// Methods report which computation produced a forecast.
const (
	MethodARI      = "ari(1,1)"
	MethodGrowth   = "recent-growth"
	MethodLagOLS   = "lag3-ols"
	fallbackGrowth = 0.01
	growthWindow   = 3
	minDiffs       = 3

	// rankTolerance is the singular value cutoff, relative to the largest,
	// below which a regression direction counts as collinear.
	rankTolerance = 1e-10
	// flatTolerance bounds the spread of values treated as constant.
	flatTolerance = 1e-9
)

// Lag is the number of previous observations fed to the regression model and
// MinWindows the number of training windows it needs.
const (
	Lag        = 3
	MinWindows = 5
)

// ParseModel maps a request value to a Model. An empty value selects arima.
func ParseModel(s string) (Model, error) {
	switch Model(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModelARIMA:
		return ModelARIMA, nil
	case ModelML:
		return ModelML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

// Point is one month of a series.
type Point struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

// Result is a forecast and how it was produced.
type Result struct {
	Model  Model   `json:"model"`
	Method string  `json:"method"`
	Points []Point `json:"points"`
}

// Forecaster runs forecasts.
type Forecaster struct {
	logger *zap.Logger
}

// NewForecaster creates a Forecaster.
func NewForecaster(logger *zap.Logger) *Forecaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Forecaster{logger: logger}
}

// Forecast projects history forward by horizon months using model. History
// must be in month order; the output starts the month after its last point
// and always holds exactly horizon points.
func (f *Forecaster) Forecast(history []Point, model Model, horizon int) (Result, error) {
	if len(history) == 0 {
		return Result{}, ErrNoHistory
	}
	if horizon <= 0 || horizon > constants.MaxForecastHorizon {
		return Result{}, fmt.Errorf("horizon must be between 1 and %d, got %d", constants.MaxForecastHorizon, horizon)
	}
	months, err := datetime.NextMonths(history[len(history)-1].Month, horizon)
	if err != nil {
		return Result{}, err
	}

	values := make([]float64, len(history))
	for i, p := range history {
		values[i] = p.Value
	}

	var (
		out    []float64
		method string
	)
	switch model {
	case ModelARIMA:
		out, method = f.arima(values, horizon)
	case ModelML:
		out, method = f.lagged(values, horizon)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	res := Result{Model: model, Method: method, Points: make([]Point, horizon)}
	for i := range months {
		res.Points[i] = Point{Month: months[i], Value: out[i]}
	}
	f.logger.Debug("forecast complete",
		zap.String("op", "forecast.Forecast"),
		zap.String("model", string(model)),
		zap.String("method", method),
		zap.Int("history", len(history)),
		zap.Int("horizon", horizon),
	)
	return res, nil
}

// arima fits an AR(1) with drift to the first differences and integrates the
// forecast differences back onto the last level.
func (f *Forecaster) arima(values []float64, horizon int) ([]float64, string) {
	diffs := differences(values)
	if len(diffs) < minDiffs {
		return growth(values, horizon), MethodGrowth
	}

	var alpha, beta float64
	if constant(diffs[:len(diffs)-1]) {
		// No spread in the lagged differences to fit a slope on; keep the drift.
		alpha = mathutil.Mean(diffs)
	} else {
		alpha, beta = stat.LinearRegression(diffs[:len(diffs)-1], diffs[1:], nil, false)
	}
	if !finite(alpha) || !finite(beta) || math.Abs(beta) >= 1 {
		f.logger.Debug("difference model unusable, using recent growth",
			zap.String("op", "forecast.arima"),
			zap.Float64("alpha", alpha),
			zap.Float64("beta", beta),
		)
		return growth(values, horizon), MethodGrowth
	}

	out := make([]float64, horizon)
	level := values[len(values)-1]
	d := diffs[len(diffs)-1]
	for i := range out {
		d = alpha + beta*d
		level += d
		out[i] = level
	}
	if !allFinite(out) {
		return growth(values, horizon), MethodGrowth
	}
	return out, MethodARI
}

// lagged regresses each value on the Lag values before it and predicts
// recursively, feeding predictions back as inputs. Collinear lags are solved
// for the minimum-norm coefficients. Short histories fall back to arima.
func (f *Forecaster) lagged(values []float64, horizon int) ([]float64, string) {
	windows := len(values) - Lag
	if windows < MinWindows {
		f.logger.Debug("insufficient windows for regression, using arima",
			zap.String("op", "forecast.lagged"),
			zap.Int("windows", windows),
		)
		return f.arima(values, horizon)
	}

	x := mat.NewDense(windows, Lag+1, nil)
	y := mat.NewVecDense(windows, nil)
	for i := 0; i < windows; i++ {
		x.Set(i, 0, 1)
		for j := 0; j < Lag; j++ {
			x.Set(i, j+1, values[i+j])
		}
		y.SetVec(i, values[i+Lag])
	}

	var svd mat.SVD
	if !svd.Factorize(x, mat.SVDThin) {
		f.logger.Debug("regression factorization failed, using arima",
			zap.String("op", "forecast.lagged"),
		)
		return f.arima(values, horizon)
	}
	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return f.arima(values, horizon)
	}
	var coef mat.VecDense
	if err := svd.SolveVecTo(&coef, y, rank); err != nil {
		f.logger.Debug("regression fit failed, using arima",
			zap.String("op", "forecast.lagged"),
			zap.Int("rank", rank),
			zap.Error(err),
		)
		return f.arima(values, horizon)
	}

	hist := append([]float64(nil), values...)
	out := make([]float64, horizon)
	for i := range out {
		p := coef.AtVec(0)
		tail := hist[len(hist)-Lag:]
		for j := 0; j < Lag; j++ {
			p += coef.AtVec(j+1) * tail[j]
		}
		out[i] = p
		hist = append(hist, p)
	}
	if !allFinite(out) {
		return f.arima(values, horizon)
	}
	return out, MethodLagOLS
}

// growth compounds the last value by the recent average change relative to
// the recent level, or by 1% a month when history is too short.
func growth(values []float64, horizon int) []float64 {
	g := fallbackGrowth
	if len(values) > growthWindow {
		diffs := differences(values)
		recentDiff := mathutil.Mean(diffs[len(diffs)-growthWindow:])
		recentLevel := mathutil.Mean(values[len(values)-growthWindow:])
		g = recentDiff / math.Max(recentLevel, 1e-6)
	}
	out := make([]float64, horizon)
	last := values[len(values)-1]
	for i := range out {
		last *= 1 + g
		out[i] = last
	}
	return out
}

func differences(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	d := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		d[i-1] = values[i] - values[i-1]
	}
	return d
}

// constant reports whether every value equals the first within flatTolerance.
func constant(values []float64) bool {
	for _, v := range values {
		if !mathutil.WithinTolerance(v, values[0], flatTolerance) {
			return false
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if !finite(v) {
			return false
		}
	}
	return true
}

// SeriesFromRows builds the monthly functional-currency series of account.
// Rows of every department and currency in the same month are summed. A zero
// year keeps every month.
func SeriesFromRows(rows []ledger.Row, account string, year int, n *fx.Normalizer) []Point {
	sums := make(map[string]float64)
	for _, r := range rows {
		if r.Account != account {
			continue
		}
		if year != 0 && !datetime.InYear(r.Month, year) {
			continue
		}
		amt := r.Amount
		if n != nil {
			amt = n.Convert(r)
		}
		sums[r.Month] += amt
	}
	points := make([]Point, 0, len(sums))
	for m, v := range sums {
		points = append(points, Point{Month: m, Value: v})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return points
}
