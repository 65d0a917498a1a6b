// Package constants provides shared constants for the voucher valuation application.
package constants

import "time"

// Currency constants
const (
	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyPlaces is the number of decimal places kept for currency values
	CurrencyPlaces = 2

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Usage profile limits and defaults
const (
	// MaxVoucherTotal is the largest voucher face value accepted from input
	MaxVoucherTotal = 2000.0

	// MaxWTPPercent is the upper bound of the willingness-to-pay percentage
	MaxWTPPercent = 100.0

	// MaxVisits is the most visits per category accepted from input
	MaxVisits = 1000

	DefaultVoucherTotal      = 300.0
	DefaultDenomination      = 10.0
	DefaultSupermarketSpend  = 80.0
	DefaultSupermarketVisits = 4
	DefaultHeartlandSpend    = 30.0
	DefaultHeartlandVisits   = 6
	DefaultWTPPercent        = 70.0
)

// Share link query parameter names
const (
	ParamAmount       = "amount"
	ParamDenomination = "denomination"
	ParamSuperSpend   = "super_spend"
	ParamSuperVisits  = "super_visits"
	ParamHeartSpend   = "heart_spend"
	ParamHeartVisits  = "heart_visits"
	ParamWTP          = "wtp"
)

// Session and persistence constants
const (
	// DefaultDebounceDelay is how long a burst of edits is coalesced before recomputing
	DefaultDebounceDelay = 300 * time.Millisecond

	// ProfileMaxAge is how long a saved profile stays loadable
	ProfileMaxAge = 30 * 24 * time.Hour

	// DefaultDatabasePath is the default SQLite file for saved profiles
	DefaultDatabasePath = "profiles.db"

	// SessionIdleTimeout is how long a live session survives without requests
	SessionIdleTimeout = 30 * time.Minute

	// MaxSessions caps the live sessions a server holds at once
	MaxSessions = 10000
)

// Request limits for caller-supplied voucher stacks
const (
	// MinFaceValue is the smallest voucher face value accepted over the API (one cent)
	MinFaceValue = 0.01

	// MaxWalletUnits caps the total vouchers a single request may supply
	MaxWalletUnits = 10000
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"

	// InvalidDisplay is printed in place of a non-finite currency value
	InvalidDisplay = "Invalid"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum request body size (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024

	// MetricsNamespace prefixes every exported Prometheus metric
	MetricsNamespace = "voucher_value"
)
