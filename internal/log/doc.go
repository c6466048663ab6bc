// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Collection runs authenticate against the EDR platform with an operator's
// credentials and carry a session cookie for the whole run. Both routinely
// appear next to values worth logging (server URL, batch progress), so the
// SecureHandler masks credential and session attributes before they reach
// the underlying handler:
//   - Authentication material (passwords, tokens, API keys)
//   - HTTP session headers (Cookie, Set-Cookie, Authorization, JSESSIONID)
//   - Values that look like bearer/basic credentials or JWTs
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// Note: unlike generic secret scanners, this handler does NOT mask long
// alphanumeric values by pattern. The tool's whole output is hash strings,
// which are long alphanumeric values; masking them would destroy debug logs.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("authenticated",
//	    "cookie", "JSESSIONID=abc123",  // sanitized to ***REDACTED***
//	    "server", "https://example.net",
//	)
//
//	slog.SetDefault(logger)
package log
