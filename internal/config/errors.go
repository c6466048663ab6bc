package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoServer is returned when neither a server URL nor a profile
	// name is provided. There is nothing to collect from.
	ErrNoServer = errors.New("no server specified: provide --server or a profile name from the config file")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	// A batch size of zero would page through the source without ever
	// requesting data.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxHashes is returned when the target is negative.
	// Use 0 for an unbounded collection.
	ErrInvalidMaxHashes = errors.New("invalid max hashes: must be non-negative (0 means unbounded)")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidConcurrency is returned when the profile concurrency is
	// not positive. Zero would mean no collection runs at all.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid output format: must be csv, json, or markdown")

	// ErrUnknownProfile is returned when a requested profile name is not
	// present in the configuration file.
	ErrUnknownProfile = errors.New("unknown server profile")
)
