package client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ErrAuthFailed is returned when the login handshake does not establish a
// session. Authentication failure is fatal to the run: no collection is
// attempted without a session.
var ErrAuthFailed = errors.New("authentication failed")

// ErrNotAuthenticated is returned when a query is issued before a
// successful Authenticate call. The client never re-authenticates mid-run.
var ErrNotAuthenticated = errors.New("client is not authenticated")

// StatusError reports a request that completed with a non-200 status after
// the transport retry budget was exhausted.
type StatusError struct {
	// Code is the HTTP status code of the final response.
	Code int
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.Code)
}

// retryableStatuses are the response codes retried at the transport layer.
// 429 is explicit rate limiting; the 5xx gateway family is usually a
// transient server-side condition.
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsTransient reports whether a transport error looks like recoverable
// network noise: a connection dropped mid-response or reset by the peer.
// The collection loop treats these as a lost page and skips forward rather
// than stalling; any other failure stops the loop gracefully.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Response body cut short mid-read.
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	// Connection torn down by the peer or the OS.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, net.ErrClosed) {
		return true
	}

	// Timeouts on a single page are worth skipping past: the next page
	// may be assembled faster server-side.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
