// Package config defines the runtime configuration of the planning service
// and loads it from YAML, a .env file and FPNA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/iwvelando/fpna/internal/auth"
	"github.com/iwvelando/fpna/internal/forecast"
	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/optimizer"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for fpna.
type Configuration struct {
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Output   OutputConfig   `yaml:"output,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Store    StoreConfig    `yaml:"store,omitempty"`
	FX       FXConfig       `yaml:"fx,omitempty"`
	Auth     AuthConfig     `yaml:"auth,omitempty"`
	Seed     SeedConfig     `yaml:"seed,omitempty"`
	Solver   SolverConfig   `yaml:"solver,omitempty"`
	Forecast ForecastConfig `yaml:"forecast,omitempty"`
	Preset   PresetConfig   `yaml:"preset,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// ServerConfig defines runtime parameters for the HTTP server.
type ServerConfig struct {
	Address         string        `yaml:"address,omitempty"`
	MaxUploadSize   string        `yaml:"maxUploadSize,omitempty"`
	RequestTimeout  time.Duration `yaml:"requestTimeout,omitempty"`
	uploadSizeBytes int64
}

// UploadSizeBytes returns the parsed upload limit.
func (s ServerConfig) UploadSizeBytes() int64 {
	if s.uploadSizeBytes <= 0 {
		return constants.DefaultMaxUploadSizeBytes
	}
	return s.uploadSizeBytes
}

// StoreConfig selects the persistence backend. DSN is used by sqlite and
// postgres, Path by bolt.
type StoreConfig struct {
	Driver string `yaml:"driver,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
	Path   string `yaml:"path,omitempty"`
}

// FXConfig sets the functional currency and optional rates loaded at start.
type FXConfig struct {
	FunctionalCurrency string    `yaml:"functionalCurrency,omitempty"`
	Rates              []fx.Rate `yaml:"rates,omitempty"`
}

// TokenConfig maps a bearer token to a principal.
type TokenConfig struct {
	Token string `yaml:"token"`
	User  string `yaml:"user"`
	Role  string `yaml:"role"`
}

// AuthConfig lists the accepted bearer tokens. An empty list uses the demo
// tokens.
type AuthConfig struct {
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// Directory builds the token directory.
func (a AuthConfig) Directory() (*auth.Directory, error) {
	if len(a.Tokens) == 0 {
		return auth.NewDirectory(auth.DefaultTokens())
	}
	tokens := make(map[string]auth.Principal, len(a.Tokens))
	for _, t := range a.Tokens {
		role, err := auth.ParseRole(t.Role)
		if err != nil {
			return nil, fmt.Errorf("token for user %q: %w", t.User, err)
		}
		tokens[t.Token] = auth.Principal{User: t.User, Role: role}
	}
	return auth.NewDirectory(tokens)
}

// SeedConfig controls the demonstration data written into an empty store.
type SeedConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ActualsYear int     `yaml:"actualsYear,omitempty"`
	BudgetYear  int     `yaml:"budgetYear,omitempty"`
	Uplift      float64 `yaml:"uplift,omitempty"`
}

// SolverConfig holds goal-seek defaults.
type SolverConfig struct {
	SearchRange float64 `yaml:"searchRange,omitempty"`
}

// ForecastConfig holds forecast defaults.
type ForecastConfig struct {
	Horizon int    `yaml:"horizon,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// PresetConfig points at a YAML file of QSR driver assumptions.
type PresetConfig struct {
	File string `yaml:"file,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Configuration {
	conf := &Configuration{Seed: SeedConfig{Enabled: true, Uplift: constants.DefaultBudgetUplift}}
	if err := conf.Normalize(); err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxUploadSize", strconv.FormatInt(constants.DefaultMaxUploadSizeBytes, 10))
	v.SetDefault("server.requestTimeout", time.Duration(constants.DefaultRequestTimeoutSeconds)*time.Second)
	v.SetDefault("store.driver", constants.StoreDriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.path", "")
	v.SetDefault("fx.functionalCurrency", constants.DefaultFunctionalCurrency)
	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.actualsYear", 0)
	v.SetDefault("seed.budgetYear", 0)
	v.SetDefault("seed.uplift", constants.DefaultBudgetUplift)
	v.SetDefault("solver.searchRange", constants.DefaultSearchRange)
	v.SetDefault("forecast.horizon", constants.DefaultForecastHorizon)
	v.SetDefault("forecast.model", string(forecast.ModelARIMA))
	v.SetDefault("preset.file", "")
}

// LoadConfiguration loads the YAML configuration at configPath. A .env file
// in the working directory is loaded first and FPNA_* variables override
// file values, e.g. FPNA_SERVER_ADDRESS. A missing default config file
// yields the defaults.
func LoadConfiguration(configPath string) (*Configuration, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		_, statErr := os.Stat(configPath)
		missingDefault := errors.Is(statErr, fs.ErrNotExist) && configPath == constants.DefaultConfigFile
		if !missingDefault {
			v.SetConfigFile(configPath)
			v.SetConfigType("yml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file, %w", err)
			}
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	if err := configuration.Normalize(); err != nil {
		return nil, err
	}
	return &configuration, nil
}

// Normalize fills defaults and rejects settings the service cannot run with.
func (c *Configuration) Normalize() error {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		return err
	}

	if c.Server.Address == "" {
		c.Server.Address = constants.DefaultServerAddress
	}
	size, err := ParseSize(c.Server.MaxUploadSize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.Server.uploadSizeBytes = size
	if c.Server.MaxUploadSize == "" {
		c.Server.MaxUploadSize = strconv.FormatInt(size, 10)
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = time.Duration(constants.DefaultRequestTimeoutSeconds) * time.Second
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case "":
		c.Store.Driver = constants.StoreDriverMemory
	case constants.StoreDriverMemory:
	case constants.StoreDriverSQLite:
		if c.Store.DSN == "" {
			c.Store.DSN = "data/fpna.db"
		}
	case constants.StoreDriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %q requires a dsn", c.Store.Driver)
		}
	case constants.StoreDriverBolt:
		if c.Store.Path == "" {
			c.Store.Path = "data/fpna.bolt"
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}

	c.FX.FunctionalCurrency = strings.ToUpper(strings.TrimSpace(c.FX.FunctionalCurrency))
	if c.FX.FunctionalCurrency == "" {
		c.FX.FunctionalCurrency = constants.DefaultFunctionalCurrency
	}
	for i := range c.FX.Rates {
		r := &c.FX.Rates[i]
		r.Base = strings.ToUpper(strings.TrimSpace(r.Base))
		r.Quote = strings.ToUpper(strings.TrimSpace(r.Quote))
		if err := r.Validate(); err != nil {
			return fmt.Errorf("fx.rates: %w", err)
		}
	}
	for _, t := range c.Auth.Tokens {
		if strings.TrimSpace(t.Token) == "" {
			return fmt.Errorf("auth.tokens: token for user %q cannot be empty", t.User)
		}
		if _, err := auth.ParseRole(t.Role); err != nil {
			return fmt.Errorf("auth.tokens: %w", err)
		}
	}

	if c.Seed.ActualsYear == 0 {
		c.Seed.ActualsYear = time.Now().Year() - 1
	}
	if c.Seed.BudgetYear == 0 {
		c.Seed.BudgetYear = c.Seed.ActualsYear + 1
	}

	if c.Solver.SearchRange == 0 {
		c.Solver.SearchRange = constants.DefaultSearchRange
	}
	if err := optimizer.ValidateSearchRange(c.Solver.SearchRange); err != nil {
		return fmt.Errorf("solver.searchRange: %w", err)
	}

	if c.Forecast.Horizon == 0 {
		c.Forecast.Horizon = constants.DefaultForecastHorizon
	}
	if err := validation.ValidateHorizon(c.Forecast.Horizon); err != nil {
		return fmt.Errorf("forecast.horizon: %w", err)
	}
	if c.Forecast.Model == "" {
		c.Forecast.Model = string(forecast.ModelARIMA)
	}
	if _, err := forecast.ParseModel(c.Forecast.Model); err != nil {
		return fmt.Errorf("forecast.model: %w", err)
	}
	return nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string
	if len(c.Auth.Tokens) == 0 {
		warnings = append(warnings, "no auth tokens configured; the demo tokens are accepted")
	}
	if c.Store.Driver == constants.StoreDriverMemory {
		warnings = append(warnings, "memory store selected; data is lost on restart")
	}
	if c.Seed.Enabled {
		warnings = append(warnings, validation.ValidateSeedYears(c.Seed.ActualsYear, c.Seed.BudgetYear)...)
	}
	if c.Seed.Uplift < 0 {
		warnings = append(warnings, fmt.Sprintf("seed uplift %.2f shrinks the base budget", c.Seed.Uplift))
	}
	if c.Server.RequestTimeout < time.Second {
		warnings = append(warnings, fmt.Sprintf("server request timeout %s is under one second", c.Server.RequestTimeout))
	}
	for _, r := range c.FX.Rates {
		if r.Quote != c.FX.FunctionalCurrency && r.Base != c.FX.FunctionalCurrency {
			warnings = append(warnings, fmt.Sprintf("fx rate %s/%s %s does not involve functional currency %s", r.Base, r.Quote, r.Month, c.FX.FunctionalCurrency))
		}
	}
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}

// ParseSize converts a human-friendly byte string (e.g., "256K", "10M") into bytes.
func ParseSize(value string) (int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	upper := strings.ToUpper(trimmed)
	idx := len(upper)
	for idx > 0 && !unicode.IsDigit(rune(upper[idx-1])) {
		idx--
	}
	if idx == 0 {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	numPart := strings.TrimSpace(upper[:idx])
	unitPart := strings.TrimSpace(upper[idx:])

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}

	var multiplier int64
	switch unitPart {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1024 * 1024 * 1024
	default:
		return 0, fmt.Errorf("unsupported size unit %q", unitPart)
	}

	result := n * multiplier
	if result < 0 {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return result, nil
}
