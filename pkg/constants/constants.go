// Package constants provides shared constants for the fpna application.
package constants

// DateTimeLayout is the month format used by ledger rows, FX rates and roster
// entries. It is also the output date format.
const DateTimeLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DefaultFunctionalCurrency is the currency every row is normalized into
	// before aggregation.
	DefaultFunctionalCurrency = "USD"
)

// Planning defaults
const (
	// DefaultScenarioLabel is the label used when a scenario key is given
	// without its fiscal year prefix.
	DefaultScenarioLabel = "Base"

	// DefaultSearchRange is the outer lever bound for goal-seek.
	DefaultSearchRange = 0.2

	// DefaultForecastHorizon is the number of months forecast when the
	// request does not specify one.
	DefaultForecastHorizon = 12

	// MaxForecastHorizon bounds forecast requests.
	MaxForecastHorizon = 120

	// DefaultBudgetUplift is applied to seeded actuals to build the first
	// Base budget.
	DefaultBudgetUplift = 0.03

	// AuditLogLimit is the number of audit events returned by default.
	AuditLogLimit = 200

	// HotspotLimit is the number of variance lines returned as hotspots.
	HotspotLimit = 10
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Board pack formats served by the report endpoint
const (
	ReportFormatJSON     = "json"
	ReportFormatMarkdown = "markdown"
	ReportFormatYAML     = "yaml"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// EnvPrefix is the prefix for environment overrides, e.g. FPNA_SERVER_ADDRESS.
	EnvPrefix = "FPNA"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for CSV imports (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// DefaultRequestTimeoutSeconds bounds a single API request.
	DefaultRequestTimeoutSeconds = 60
)

// Store drivers
const (
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverBolt     = "bolt"
)
