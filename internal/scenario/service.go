// Package scenario implements the planning operations behind the API: budget
// generation, scenario and version management, BvA, forecasting, goal-seek,
// roster baking, imports and the audit trail.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iwvelando/fpna/internal/auth"
	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/preset"
	"github.com/iwvelando/fpna/internal/store"
	"github.com/iwvelando/fpna/pkg/constants"
	"go.uber.org/zap"
)

var (
	// ErrScenarioNotFound is returned for an unknown scenario key.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrVersionNotFound is returned when restoring an unknown version.
	ErrVersionNotFound = errors.New("version not found")
	// ErrEmployeeNotFound is returned when removing an unknown roster entry.
	ErrEmployeeNotFound = errors.New("employee not found")
	// ErrNoActuals is returned when an operation needs actuals that are absent.
	ErrNoActuals = errors.New("no actuals for account/year")
)

// ValidationError marks a request the caller must correct.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

func invalidf(format string, args ...any) error {
	return invalid(fmt.Errorf(format, args...))
}

// Options are the service defaults.
type Options struct {
	FunctionalCurrency string
	SearchRange        float64
	ForecastHorizon    int
	ForecastModel      string
	QSR                preset.QSRParams
}

// DefaultOptions returns the stock defaults.
func DefaultOptions() Options {
	return Options{
		FunctionalCurrency: constants.DefaultFunctionalCurrency,
		SearchRange:        constants.DefaultSearchRange,
		ForecastHorizon:    constants.DefaultForecastHorizon,
		ForecastModel:      "arima",
		QSR:                preset.DefaultQSRParams(),
	}
}

// Service runs planning operations against a store.
type Service struct {
	store  store.Store
	logger *zap.Logger
	opts   Options
	now    func() time.Time
	newID  func() string
}

// NewService creates a Service. Zero-valued options take their defaults.
func NewService(st store.Store, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOptions()
	if opts.FunctionalCurrency == "" {
		opts.FunctionalCurrency = def.FunctionalCurrency
	}
	if opts.SearchRange == 0 {
		opts.SearchRange = def.SearchRange
	}
	if opts.ForecastHorizon == 0 {
		opts.ForecastHorizon = def.ForecastHorizon
	}
	if opts.ForecastModel == "" {
		opts.ForecastModel = def.ForecastModel
	}
	if len(opts.QSR.Seasonality) == 0 {
		opts.QSR = def.QSR
	}
	return &Service{
		store:  st,
		logger: logger,
		opts:   opts,
		now:    time.Now,
		newID:  newID,
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Functional returns the functional currency.
func (s *Service) Functional() string {
	return s.opts.FunctionalCurrency
}

func (s *Service) normalizer(ctx context.Context) (*fx.Normalizer, error) {
	rates, err := s.store.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fx rates: %w", err)
	}
	return fx.NewNormalizer(s.opts.FunctionalCurrency, rates), nil
}

// record appends an audit event. A failed write is logged, not returned,
// since the audited change has already been stored.
func (s *Service) record(ctx context.Context, actor auth.Principal, action string, detail map[string]any) {
	e := store.AuditEvent{
		ID:     s.newID(),
		Action: action,
		Detail: detail,
		User:   actor.User,
		Role:   string(actor.Role),
		At:     s.now().UTC(),
	}
	if err := s.store.AppendAudit(ctx, e); err != nil {
		s.logger.Warn("failed to record audit event",
			zap.String("op", "scenario.record"),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

// AuditLog returns the latest limit events; limit <= 0 uses the default.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]store.AuditEvent, error) {
	if limit <= 0 {
		limit = constants.AuditLogLimit
	}
	events, err := s.store.Audit(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	if events == nil {
		events = []store.AuditEvent{}
	}
	return events, nil
}
