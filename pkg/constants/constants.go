// Package constants provides shared constants for the rental-analytics application.
package constants

// DateLayout is the calendar date format expected in datasets and used in
// output.
const DateLayout = "2006-01-02"

// MonthLayout is the year-month format used to label monthly buckets.
const MonthLayout = "2006-01"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// DecimalPlaces is the number of decimals kept when rounding currency
	DecimalPlaces = 2

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// ProfitableCashOnCashPct is the cash-on-cash return a deal has to beat
	// to be flagged as profitable. Product policy, not user-configurable.
	ProfitableCashOnCashPct = 6.0
)

// Periodicity multipliers used to annualize recurring amounts.
const (
	MonthlyPeriodsPerYear   = 12
	QuarterlyPeriodsPerYear = 4
	BiannualPeriodsPerYear  = 2
	YearlyPeriodsPerYear    = 1
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatJSON is the machine-readable output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultDataFile is the default dataset file name
	DefaultDataFile = "portfolio.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides, e.g. RENTAL_DATA_FILE
	EnvPrefix = "RENTAL"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (1 MB)
	DefaultMaxUploadSizeBytes int64 = 1024 * 1024
)
