// Package app assembles the planning service from configuration.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/iwvelando/fpna/internal/auth"
	"github.com/iwvelando/fpna/internal/chat"
	"github.com/iwvelando/fpna/internal/config"
	"github.com/iwvelando/fpna/internal/preset"
	"github.com/iwvelando/fpna/internal/scenario"
	"github.com/iwvelando/fpna/internal/server"
	"github.com/iwvelando/fpna/internal/store"
	"github.com/iwvelando/fpna/internal/store/boltstore"
	"github.com/iwvelando/fpna/internal/store/sqlstore"
	"github.com/iwvelando/fpna/pkg/constants"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

// System is the principal recorded for startup writes.
var System = auth.Principal{User: "system", Role: auth.RoleAdmin}

// App is a wired planning service.
type App struct {
	Config  *config.Configuration
	Logger  *zap.Logger
	Service *scenario.Service
	Handler http.Handler
	Server  *server.Server

	store store.Store
	hub   *chat.Hub
}

// New opens the configured store, seeds it when enabled and builds the
// HTTP server around it.
func New(ctx context.Context, conf *config.Configuration, logger *zap.Logger, version string) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opened store.Store
	c := dig.New()
	providers := []any{
		func() *config.Configuration { return conf },
		func() *zap.Logger { return logger },
		func(conf *config.Configuration) (store.Store, error) {
			st, err := OpenStore(ctx, conf.Store)
			opened = st
			return st, err
		},
		func(conf *config.Configuration) (*auth.Directory, error) { return conf.Auth.Directory() },
		newService,
		chat.NewHub,
		func(logger *zap.Logger, svc *scenario.Service, dir *auth.Directory, hub *chat.Hub, conf *config.Configuration) http.Handler {
			return server.NewHandler(logger, svc, dir, hub, conf.Server, version)
		},
		func(logger *zap.Logger, conf *config.Configuration, h http.Handler) *server.Server {
			return server.New(logger, conf.Server, h)
		},
	}
	for _, p := range providers {
		if err := c.Provide(p); err != nil {
			return nil, fmt.Errorf("failed to register provider: %w", err)
		}
	}

	var a *App
	err := c.Invoke(func(st store.Store, svc *scenario.Service, hub *chat.Hub, h http.Handler, srv *server.Server) error {
		a = &App{
			Config:  conf,
			Logger:  logger,
			Service: svc,
			Handler: h,
			Server:  srv,
			store:   st,
			hub:     hub,
		}
		return a.prepare(ctx)
	})
	if err != nil {
		if opened != nil {
			_ = opened.Close()
		}
		return nil, fmt.Errorf("failed to build application: %w", dig.RootCause(err))
	}

	logger.Info("application ready",
		zap.String("op", "app.New"),
		zap.String("store", conf.Store.Driver),
		zap.String("functional_currency", conf.FX.FunctionalCurrency),
		zap.String("address", conf.Server.Address),
	)
	return a, nil
}

// OpenStore opens the store named by cfg.Driver.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", constants.StoreDriverMemory:
		return store.NewMemory(), nil
	case constants.StoreDriverSQLite, constants.StoreDriverPostgres:
		st, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	case constants.StoreDriverBolt:
		st, err := boltstore.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func newService(conf *config.Configuration, st store.Store, logger *zap.Logger) (*scenario.Service, error) {
	opts := scenario.Options{
		FunctionalCurrency: conf.FX.FunctionalCurrency,
		SearchRange:        conf.Solver.SearchRange,
		ForecastHorizon:    conf.Forecast.Horizon,
		ForecastModel:      conf.Forecast.Model,
	}
	if conf.Preset.File != "" {
		params, err := preset.LoadQSRParamsFile(conf.Preset.File)
		if err != nil {
			return nil, fmt.Errorf("failed to load preset parameters: %w", err)
		}
		opts.QSR = params
	}
	return scenario.NewService(st, logger, opts), nil
}

// prepare seeds demo data and applies configured FX rates. Configured rates
// go in after seeding so they win over the demo table.
func (a *App) prepare(ctx context.Context) error {
	if a.Config.Seed.Enabled {
		_, err := a.Service.Seed(ctx, System, scenario.SeedRequest{
			ActualsYear: a.Config.Seed.ActualsYear,
			BudgetYear:  a.Config.Seed.BudgetYear,
			Uplift:      a.Config.Seed.Uplift,
		})
		if err != nil {
			return fmt.Errorf("failed to seed store: %w", err)
		}
	}
	if len(a.Config.FX.Rates) > 0 {
		if _, err := a.Service.UpsertRates(ctx, System, a.Config.FX.Rates); err != nil {
			return fmt.Errorf("failed to apply configured fx rates: %w", err)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.Server.Run(ctx)
}

// Close disconnects chat subscribers and closes the store.
func (a *App) Close() error {
	a.hub.Close()
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}
