package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iwvelando/fpna/internal/auth"
	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/pkg/constants"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func fxRate(base, quote string) fx.Rate {
	return fx.Rate{Base: base, Quote: quote, Month: "2025-01", Rate: 1}
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "No config file",
			configPath: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				if err == nil {
					t.Errorf("LoadConfiguration() expected error but got none")
				}
				return
			}
			if err != nil {
				t.Errorf("LoadConfiguration() error = %v", err)
				return
			}
			if config == nil {
				t.Errorf("LoadConfiguration() returned nil config")
			}
		})
	}
}

func TestLoadConfigurationExample(t *testing.T) {
	config, err := LoadConfiguration(filepath.Join("..", "..", "config.yaml.example"))
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if config.Store.Driver != constants.StoreDriverSQLite {
		t.Errorf("store driver = %q, want sqlite", config.Store.Driver)
	}
	if config.Server.UploadSizeBytes() != 10<<20 {
		t.Errorf("upload size = %d, want %d", config.Server.UploadSizeBytes(), 10<<20)
	}
	if config.Server.RequestTimeout != 30*time.Second {
		t.Errorf("request timeout = %s, want 30s", config.Server.RequestTimeout)
	}
	if len(config.Auth.Tokens) != 3 || config.Auth.Tokens[1].Role != string(auth.RoleAnalyst) {
		t.Errorf("unexpected auth tokens: %+v", config.Auth.Tokens)
	}
	if len(config.FX.Rates) != 1 || config.FX.Rates[0].Month != "2025-01" {
		t.Errorf("unexpected fx rates: %+v", config.FX.Rates)
	}
}

func TestLoadConfigurationDefaultsWhenDefaultFileMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	conf, err := LoadConfiguration(constants.DefaultConfigFile)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Server.Address != constants.DefaultServerAddress {
		t.Errorf("expected default address, got %s", conf.Server.Address)
	}
	if conf.Server.UploadSizeBytes() != constants.DefaultMaxUploadSizeBytes {
		t.Errorf("expected default upload size, got %d", conf.Server.UploadSizeBytes())
	}
	if conf.Server.RequestTimeout != time.Duration(constants.DefaultRequestTimeoutSeconds)*time.Second {
		t.Errorf("expected default request timeout, got %s", conf.Server.RequestTimeout)
	}
	if conf.Store.Driver != constants.StoreDriverMemory {
		t.Errorf("expected memory store, got %s", conf.Store.Driver)
	}
	if !conf.Seed.Enabled {
		t.Error("expected seeding to default on")
	}
	if conf.Seed.BudgetYear != conf.Seed.ActualsYear+1 {
		t.Errorf("expected budget year after actuals year, got %d and %d", conf.Seed.ActualsYear, conf.Seed.BudgetYear)
	}
	if conf.Seed.Uplift != constants.DefaultBudgetUplift {
		t.Errorf("expected default uplift, got %v", conf.Seed.Uplift)
	}
	if conf.Forecast.Model != "arima" || conf.Forecast.Horizon != constants.DefaultForecastHorizon {
		t.Errorf("unexpected forecast defaults %+v", conf.Forecast)
	}
}

func TestLoadConfigurationOverrides(t *testing.T) {
	path := writeConfig(t, `logging:
  level: debug
  format: console
  outputFile: /tmp/fpna.log
output:
  format: csv
server:
  address: 127.0.0.1:9000
  maxUploadSize: 2M
  requestTimeout: 30s
store:
  driver: SQLite
  dsn: /tmp/fpna-test.db
fx:
  functionalCurrency: eur
  rates:
    - base: usd
      quote: eur
      month: "2025-01"
      rate: 0.92
auth:
  tokens:
    - token: Secret-ABC
      user: dana
      role: Analyst
seed:
  enabled: false
  actualsYear: 2023
  budgetYear: 2024
  uplift: 0.05
solver:
  searchRange: 0.3
forecast:
  horizon: 6
  model: ml
`)

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if conf.Logging.Level != "debug" || conf.Logging.Format != "console" || conf.Logging.OutputFile != "/tmp/fpna.log" {
		t.Errorf("unexpected logging config %+v", conf.Logging)
	}
	if conf.Output.Format != constants.OutputFormatCSV {
		t.Errorf("expected csv output, got %s", conf.Output.Format)
	}
	if conf.Server.Address != "127.0.0.1:9000" {
		t.Errorf("expected address override, got %s", conf.Server.Address)
	}
	if conf.Server.UploadSizeBytes() != 2*1024*1024 {
		t.Errorf("expected max upload override, got %d", conf.Server.UploadSizeBytes())
	}
	if conf.Server.RequestTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", conf.Server.RequestTimeout)
	}
	if conf.Store.Driver != constants.StoreDriverSQLite || conf.Store.DSN != "/tmp/fpna-test.db" {
		t.Errorf("unexpected store config %+v", conf.Store)
	}
	if conf.FX.FunctionalCurrency != "EUR" {
		t.Errorf("expected EUR functional currency, got %s", conf.FX.FunctionalCurrency)
	}
	if len(conf.FX.Rates) != 1 || conf.FX.Rates[0].Base != "USD" || conf.FX.Rates[0].Rate != 0.92 {
		t.Errorf("unexpected fx rates %+v", conf.FX.Rates)
	}
	if conf.Seed.Enabled || conf.Seed.ActualsYear != 2023 || conf.Seed.BudgetYear != 2024 || conf.Seed.Uplift != 0.05 {
		t.Errorf("unexpected seed config %+v", conf.Seed)
	}
	if conf.Solver.SearchRange != 0.3 {
		t.Errorf("expected search range 0.3, got %v", conf.Solver.SearchRange)
	}
	if conf.Forecast.Horizon != 6 || conf.Forecast.Model != "ml" {
		t.Errorf("unexpected forecast config %+v", conf.Forecast)
	}

	dir, err := conf.Auth.Directory()
	if err != nil {
		t.Fatalf("Directory() error = %v", err)
	}
	p, err := dir.Lookup("Secret-ABC")
	if err != nil {
		t.Fatalf("expected configured token to resolve, got %v", err)
	}
	if p.User != "dana" || p.Role != auth.RoleAnalyst {
		t.Errorf("unexpected principal %+v", p)
	}
	if _, err := dir.Lookup("admin-token"); err == nil {
		t.Error("demo tokens should not be accepted once tokens are configured")
	}
}

func TestLoadConfigurationEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  address: 127.0.0.1:9000\n")
	t.Setenv("FPNA_SERVER_ADDRESS", "127.0.0.1:9999")
	t.Setenv("FPNA_STORE_DRIVER", "bolt")

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Server.Address != "127.0.0.1:9999" {
		t.Errorf("expected env address, got %s", conf.Server.Address)
	}
	if conf.Store.Driver != constants.StoreDriverBolt || conf.Store.Path == "" {
		t.Errorf("expected bolt store with default path, got %+v", conf.Store)
	}
}

func TestLoadConfigurationDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("FPNA_LOGGING_LEVEL", "")
	if err := os.Unsetenv("FPNA_LOGGING_LEVEL"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FPNA_LOGGING_LEVEL=warn\n"), 0600); err != nil {
		t.Fatal(err)
	}

	conf, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	if conf.Logging.Level != "warn" {
		t.Errorf("expected level from .env, got %s", conf.Logging.Level)
	}
}

func TestLoadConfigurationRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"bad upload size":   "server:\n  maxUploadSize: invalid\n",
		"bad driver":        "store:\n  driver: mongo\n",
		"postgres sans dsn": "store:\n  driver: postgres\n",
		"bad role":          "auth:\n  tokens:\n    - token: x\n      user: y\n      role: Owner\n",
		"empty token":       "auth:\n  tokens:\n    - user: y\n      role: Admin\n",
		"bad search range":  "solver:\n  searchRange: 1.5\n",
		"bad horizon":       "forecast:\n  horizon: 500\n",
		"bad model":         "forecast:\n  model: prophet\n",
		"bad output":        "output:\n  format: json\n",
		"bad rate":          "fx:\n  rates:\n    - base: EUR\n      quote: USD\n      month: \"2025-01\"\n      rate: 0\n",
	}

	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, contents)); err == nil {
				t.Errorf("expected error for %s", name)
			}
		})
	}
}

func TestValidateConfiguration(t *testing.T) {
	conf := Default()
	warnings := conf.ValidateConfiguration()
	if len(warnings) != 2 {
		t.Fatalf("expected demo token and memory store warnings, got %v", warnings)
	}

	conf.Auth.Tokens = []TokenConfig{{Token: "t", User: "u", Role: "Admin"}}
	conf.Store.Driver = constants.StoreDriverSQLite
	if warnings := conf.ValidateConfiguration(); warnings != nil {
		t.Errorf("expected no warnings, got %v", warnings)
	}

	conf.Seed.BudgetYear = conf.Seed.ActualsYear
	conf.FX.FunctionalCurrency = "USD"
	conf.FX.Rates = append(conf.FX.Rates, fxRate("EUR", "GBP"))
	warnings = conf.ValidateConfiguration()
	if len(warnings) != 2 {
		t.Fatalf("expected seed year and fx warnings, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "seed budget year") {
		t.Errorf("unexpected first warning %q", warnings[0])
	}
	if !strings.Contains(warnings[1], "EUR/GBP") {
		t.Errorf("unexpected second warning %q", warnings[1])
	}
}

func TestParseSize(t *testing.T) {
	tests := map[string]int64{
		"":          constants.DefaultMaxUploadSizeBytes,
		"1024":      1024,
		"512b":      512,
		"256K":      256 * 1024,
		"1m":        1024 * 1024,
		"3MB":       3 * 1024 * 1024,
		"2G":        2 * 1024 * 1024 * 1024,
		"  4096   ": 4096,
	}

	for input, expected := range tests {
		got, err := ParseSize(input)
		if err != nil {
			t.Fatalf("ParseSize(%q) returned error: %v", input, err)
		}
		if got != expected {
			t.Fatalf("ParseSize(%q) = %d, expected %d", input, got, expected)
		}
	}

	if _, err := ParseSize("1TB"); err == nil {
		t.Fatal("expected error for unsupported unit")
	}
	if _, err := ParseSize("abc"); err == nil {
		t.Fatal("expected error for invalid number")
	}
}
