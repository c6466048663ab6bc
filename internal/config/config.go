package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These match the operational defaults of the platform's API: generous
// timeouts because large FileHash pages are slow to assemble server-side,
// and large batch sizes because the result sets run to millions of records.
const (
	// DefaultMaxHashes is the default collection target. Eight million
	// covers the full FileHash store of a large deployment; operators
	// collecting samples should lower this via --max-hashes.
	DefaultMaxHashes = 8_000_000

	// DefaultBatchSize is the page size for primary source queries.
	// Larger pages mean fewer round trips, but the platform assembles
	// each page in memory, so very large values risk server-side timeouts.
	DefaultBatchSize = 10_000

	// DefaultTimeout is the per-request timeout. FileHash queries over
	// large stores routinely take tens of seconds server-side.
	DefaultTimeout = 120 * time.Second

	// DefaultQueryTimeoutMillis is the server-side query timeout sent in
	// the request envelope, in milliseconds as the API expects.
	DefaultQueryTimeoutMillis = 120_000

	// MaxBatches is a hard safety ceiling on pages requested per run,
	// independent of the target. The API offers no authoritative end-of-
	// results signal, so the loop needs a guard against spinning forever.
	MaxBatches = 10_000

	// SparsityThreshold is the unique-hash count below which the fallback
	// source is queried after the primary pass. The fallback is worth the
	// extra request only when the primary clearly under-delivered.
	SparsityThreshold = 1_000

	// SecondaryResultCap bounds the single fallback query. That source is
	// low-volume by nature, so paging is not implemented for it.
	SecondaryResultCap = 1_000

	// DefaultMaxRetries is the transport-level retry budget for responses
	// with retryable status codes (429, 5xx).
	DefaultMaxRetries = 3

	// DefaultConcurrency is the number of server profiles collected in
	// parallel when multiple profiles are given. Each run owns its own
	// state, so runs never share an accumulator.
	DefaultConcurrency = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "hashharvest"
)

// Format is the output artifact format.
type Format string

// Supported output formats.
const (
	// FormatCSV writes Hash,Hash_Type,Collection_Date rows. The default.
	FormatCSV Format = "csv"

	// FormatJSON writes the full inventory including run statistics.
	FormatJSON Format = "json"

	// FormatMarkdown writes a run summary document, not the full inventory.
	FormatMarkdown Format = "markdown"
)

// Config holds all configuration options for hashharvest.
// This struct is designed to be populated from CLI flags and the optional
// configuration file, then passed through the application via dependency
// injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., ClientConfig, CollectorConfig) for simplicity. The number of
// options is manageable, and nesting would add complexity without
// significant benefit.
type Config struct {
	// ServerURL is the base URL of the platform, e.g.
	// "https://example.net". Trailing slashes are trimmed by the client.
	ServerURL string

	// Username is the account used for the login handshake.
	// API-specific accounts are recommended over GUI accounts.
	Username string

	// Password is the account password.
	Password string

	// MaxHashes is the collection target. Zero means unbounded: collect
	// until the source is exhausted or the safety cap is reached.
	MaxHashes int

	// BatchSize is the page size for primary source queries.
	BatchSize int

	// Timeout is the per-request timeout for all API calls.
	Timeout time.Duration

	// MaxRetries is the transport retry budget for retryable status codes.
	MaxRetries int

	// OutputPath is the artifact file path. Empty means a timestamped
	// file name in the current directory.
	OutputPath string

	// OutputFormat selects the artifact format (csv, json, markdown).
	OutputFormat Format

	// TestOnly checks server reachability and authentication, then exits
	// without collecting.
	TestOnly bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// InsecureSkipVerify disables TLS certificate verification. Some
	// on-premise deployments run with self-signed certificates; this is
	// for those environments only.
	InsecureSkipVerify bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .hashharvest in the current
	// directory and then in the user's home directory.
	ConfigFilePath string

	// Profiles holds named server profiles loaded from the config file.
	Profiles *File

	// Servers is the list of profile names to collect from. Empty means
	// collect from the single server given by ServerURL.
	Servers []string

	// Concurrency is the number of profiles collected in parallel.
	Concurrency int

	// DBDir is the directory for the run-history SQLite database.
	// Defaults to the XDG data directory. Empty disables history.
	DBDir string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases. Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeout, batch
// size). This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		MaxHashes:    DefaultMaxHashes,
		BatchSize:    DefaultBatchSize,
		Timeout:      DefaultTimeout,
		MaxRetries:   DefaultMaxRetries,
		OutputFormat: FormatCSV,
		Concurrency:  DefaultConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for hashharvest.
// On Linux: ~/.local/share/hashharvest
// On macOS: ~/Library/Application Support/hashharvest
// On Windows: %LOCALAPPDATA%\hashharvest
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for hashharvest.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any network traffic.
func (c *Config) Validate() error {
	// A server must come from either flags or profile names
	if c.ServerURL == "" && len(c.Servers) == 0 {
		return ErrNoServer
	}

	// Timeout must be positive; zero timeout would cause immediate failures
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	// BatchSize must be positive; zero would request empty pages forever
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	// MaxHashes of zero means unbounded, but negative is meaningless
	if c.MaxHashes < 0 {
		return ErrInvalidMaxHashes
	}

	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	switch c.OutputFormat {
	case FormatCSV, FormatJSON, FormatMarkdown:
	default:
		return ErrInvalidFormat
	}

	return nil
}
