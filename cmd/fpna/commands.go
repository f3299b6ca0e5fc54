package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/iwvelando/fpna/internal/app"
	"github.com/iwvelando/fpna/internal/config"
	"github.com/iwvelando/fpna/internal/scenario"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/optimization"
	"github.com/iwvelando/fpna/pkg/output"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// withApp loads configuration, builds the application and hands it to fn.
func withApp(ctx context.Context, opts *rootOptions, fn func(*config.Configuration, *app.App) error) error {
	conf, logger, err := opts.setup()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	a, err := app.New(ctx, conf, logger, version)
	if err != nil {
		logger.Error("failed to start",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close application",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()
	return fn(conf, a)
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, opts, func(conf *config.Configuration, a *app.App) error {
				a.Logger.Info("server starting",
					zap.String("op", "main"),
					zap.String("address", conf.Server.Address),
					zap.String("version", version),
				)
				if err := a.Run(ctx); err != nil {
					return err
				}
				a.Logger.Info("server stopped", zap.String("op", "main"))
				return nil
			})
		},
	}
}

func newBvACommand(opts *rootOptions) *cobra.Command {
	var req scenario.AnalyzeRequest
	cmd := &cobra.Command{
		Use:   "bva",
		Short: "Compare actuals with a budget scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(conf *config.Configuration, a *app.App) error {
				if req.Year == 0 {
					req.Year = conf.Seed.BudgetYear
				}
				analysis, err := a.Service.Analyze(cmd.Context(), req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), conf.Output.Format,
					func(w io.Writer) error { output.PrettyVariance(w, analysis); return nil },
					func(w io.Writer) error { return output.CsvVariance(w, analysis) },
				)
			})
		},
	}
	cmd.Flags().IntVar(&req.Year, "year", 0, "fiscal year to analyze (defaults to the seed budget year)")
	cmd.Flags().StringVar(&req.Scenario, "scenario", constants.DefaultScenarioLabel, "budget scenario label or key")
	return cmd
}

func newForecastCommand(opts *rootOptions) *cobra.Command {
	var req scenario.ForecastRequest
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast an account from its monthly actuals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(conf *config.Configuration, a *app.App) error {
				if req.Year == 0 {
					req.Year = conf.Seed.ActualsYear
				}
				res, err := a.Service.Forecast(cmd.Context(), req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), conf.Output.Format,
					func(w io.Writer) error { output.PrettyForecast(w, req.Account, res); return nil },
					func(w io.Writer) error { return output.CsvForecast(w, req.Account, res) },
				)
			})
		},
	}
	cmd.Flags().IntVar(&req.Year, "year", 0, "year of history (defaults to the seed actuals year)")
	cmd.Flags().StringVar(&req.Account, "account", "Revenue:Food", "account to forecast")
	cmd.Flags().StringVar(&req.Model, "model", "", "arima or ml (defaults to forecast.model)")
	cmd.Flags().IntVar(&req.Months, "months", 0, "forecast horizon in months (defaults to forecast.horizon)")
	return cmd
}

func newSolveCommand(opts *rootOptions) *cobra.Command {
	var req scenario.SolveRequest
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Goal-seek revenue, COGS and labor levers to a target EBITDA",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(conf *config.Configuration, a *app.App) error {
				if req.Scenario == "" {
					req.Scenario = fmt.Sprintf("%d:%s", conf.Seed.BudgetYear, constants.DefaultScenarioLabel)
				}
				summary, err := a.Service.Solve(cmd.Context(), app.System, req)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), conf.Output.Format,
					func(w io.Writer) error { output.PrettySolve(w, summary); return nil },
					func(w io.Writer) error { return output.CsvSolve(w, summary) },
				)
			})
		},
	}
	cmd.Flags().StringVar(&req.Scenario, "scenario", "", "scenario key (defaults to the seed budget)")
	cmd.Flags().Float64Var(&req.TargetEBITDA, "target", 0, "target annual EBITDA")
	cmd.Flags().Float64Var(&req.SearchRange, "search-range", 0, "lever search range (defaults to solver.searchRange)")
	cmd.Flags().StringVar(&req.Method, "method", optimization.MethodGrid, "grid or bisection")
	cmd.Flags().BoolVar(&req.Apply, "apply", false, "write the solved levers back to the scenario")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append general-ledger actuals from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(_ *config.Configuration, a *app.App) error {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()

				n, err := a.Service.ImportCSV(cmd.Context(), app.System, f)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows from %s\n", n, args[0])
				return err
			})
		},
	}
}

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report warnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.LoadConfiguration(opts.ConfigPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			warnings := conf.ValidateConfiguration()
			for _, w := range warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintf(out, "configuration ok (%d warnings)\n", len(warnings))
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}

// render writes with pretty or csv depending on format.
func render(w io.Writer, format string, pretty, csv func(io.Writer) error) error {
	switch format {
	case constants.OutputFormatCSV:
		return csv(w)
	default:
		return pretty(w)
	}
}
