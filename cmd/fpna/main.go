package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/fpna/internal/config"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootOptions holds the global flags.
type rootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
}

// initializeLogger creates a zap logger based on configuration and CLI override
func initializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zc zap.Config
	switch format {
	case "console":
		zc = zap.NewDevelopmentConfig()
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zc.OutputPaths = []string{loggingConfig.OutputFile}
		zc.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zc.Build()
}

// setup loads the configuration and builds the logger for a command.
func (o *rootOptions) setup() (*config.Configuration, *zap.Logger, error) {
	conf, err := config.LoadConfiguration(o.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration at %s: %w", o.ConfigPath, err)
	}
	if o.OutputFormat != "" {
		conf.Output.Format = o.OutputFormat
	}
	if err := validation.ValidateOutputFormat(conf.Output.Format); err != nil {
		return nil, nil, err
	}

	logger, err := initializeLogger(conf.Logging, o.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}
	return conf, logger, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "fpna",
		Short:   "Budgeting, forecasting and variance analysis",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.OutputFormat, "output-format", "", "type of output override: pretty, csv")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newBvACommand(opts))
	cmd.AddCommand(newForecastCommand(opts))
	cmd.AddCommand(newSolveCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newValidateCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
