// Package client implements the authenticated HTTP client for the EDR
// platform's investigation API.
//
// The platform uses cookie-session authentication: the client performs a
// form login against /login.html and carries the resulting session cookie
// for the rest of the run. Queries are JSON POSTs against the visual search
// endpoints, with skip-based pagination for the high-volume FileHash source
// and a single bounded request for the Malop fallback source.
//
// The transport retries responses with retryable status codes (429 and the
// 5xx gateway family) using exponential backoff. Network-level failures are
// not retried here; they are surfaced to the collector, which classifies
// them as transient (forward-skip) or terminal.
package client
