package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"
	"time"

	"hashharvest/internal/model"
)

// newTestClient creates an authenticated-by-default client against the
// given handler. The login endpoint is provided by the wrapper so tests
// only describe query behavior.
func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/login.html", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}
		fmt.Fprint(w, "<html>login form</html>")
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>dashboard</html>")
	})
	if handler != nil {
		mux.Handle("/rest/", handler)
	}

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	c, err := New(server.URL, "user", "pass", WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	return c, server
}

// TestNew tests client construction.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("trims trailing slash", func(t *testing.T) {
		t.Parallel()

		c, err := New("https://example.net/", "user", "pass")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.BaseURL() != "https://example.net" {
			t.Errorf("expected trimmed base URL, got %q", c.BaseURL())
		}
	})

	t.Run("empty base URL is rejected", func(t *testing.T) {
		t.Parallel()

		if _, err := New("", "user", "pass"); err == nil {
			t.Error("expected error for empty base URL")
		}
	})
}

// TestAuthenticate tests the login handshake heuristics.
func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("redirect to dashboard succeeds", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestClient(t, nil)
		if err := c.Authenticate(context.Background()); err != nil {
			t.Fatalf("expected successful authentication, got %v", err)
		}
	})

	t.Run("large application shell succeeds", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/login.html", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				fmt.Fprint(w, strings.Repeat("x", authBodyThreshold+1))
				return
			}
			fmt.Fprint(w, "login form")
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		c, err := New(server.URL, "user", "pass")
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if err := c.Authenticate(context.Background()); err != nil {
			t.Fatalf("expected successful authentication, got %v", err)
		}
	})

	t.Run("login form echoed back fails", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		mux.HandleFunc("/login.html", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "<html>login form</html>")
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)

		c, err := New(server.URL, "user", "pass")
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if err := c.Authenticate(context.Background()); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})

	t.Run("missing login page fails", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(server.Close)

		c, err := New(server.URL, "user", "pass")
		if err != nil {
			t.Fatalf("failed to create client: %v", err)
		}
		if err := c.Authenticate(context.Background()); !errors.Is(err, ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
	})
}

// TestPing tests the reachability probe.
func TestPing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "200 is reachable", status: http.StatusOK, wantErr: false},
		{name: "401 is reachable", status: http.StatusUnauthorized, wantErr: false},
		{name: "403 is reachable", status: http.StatusForbidden, wantErr: false},
		{name: "500 is an error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			t.Cleanup(server.Close)

			c, err := New(server.URL, "user", "pass")
			if err != nil {
				t.Fatalf("failed to create client: %v", err)
			}

			err = c.Ping(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Ping() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestQuery tests page queries including the retry-on-status policy.
func TestQuery(t *testing.T) {
	t.Parallel()

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestClient(t, nil)
		_, err := c.Query(context.Background(), model.PageRequest{Source: model.SourcePrimary, PageSize: 10})
		if !errors.Is(err, ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("decodes entity map", func(t *testing.T) {
		t.Parallel()

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/rest/visualsearch/query/simple" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}
			if got := r.Header.Get("query-strategy"); got != "investigation" {
				t.Errorf("expected query-strategy header, got %q", got)
			}

			body, _ := io.ReadAll(r.Body) //nolint:errcheck // test helper
			for _, want := range []string{`"requestedType":"FileHash"`, `"skip":20`, `"pageSize":10`} {
				if !strings.Contains(string(body), want) {
					t.Errorf("request body missing %s: %s", want, body)
				}
			}

			fmt.Fprint(w, `{"data":{"resultIdToElementDataMap":{
				"id1":{"simpleValues":{"sha1HexString":{"values":["`+strings.Repeat("a", 40)+`"]}}}
			}}}`)
		})

		c, _ := newTestClient(t, handler)
		if err := c.Authenticate(context.Background()); err != nil {
			t.Fatalf("authentication failed: %v", err)
		}

		entities, err := c.Query(context.Background(), model.PageRequest{
			Source:   model.SourcePrimary,
			PageSize: 10,
			Skip:     20,
		})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(entities) != 1 {
			t.Fatalf("expected 1 entity, got %d", len(entities))
		}

		values := entities["id1"].SimpleValues["sha1HexString"].Values
		if len(values) != 1 || len(values[0]) != 40 {
			t.Errorf("unexpected entity values: %v", values)
		}
	})

	t.Run("secondary source has no pagination", func(t *testing.T) {
		t.Parallel()

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/rest/malops/query" {
				t.Errorf("unexpected path %q", r.URL.Path)
			}

			body, _ := io.ReadAll(r.Body) //nolint:errcheck // test helper
			if strings.Contains(string(body), `"pagination"`) {
				t.Errorf("secondary query must not carry pagination: %s", body)
			}
			if !strings.Contains(string(body), `"requestedType":"MalopProcess"`) {
				t.Errorf("expected MalopProcess entity type: %s", body)
			}

			fmt.Fprint(w, `{"data":{"resultIdToElementDataMap":{}}}`)
		})

		c, _ := newTestClient(t, handler)
		if err := c.Authenticate(context.Background()); err != nil {
			t.Fatalf("authentication failed: %v", err)
		}

		if _, err := c.Query(context.Background(), model.PageRequest{
			Source:   model.SourceSecondary,
			PageSize: 100,
		}); err != nil {
			t.Fatalf("query failed: %v", err)
		}
	})

	t.Run("retries retryable statuses", func(t *testing.T) {
		t.Parallel()

		var attempts int
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts++
			if attempts <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			fmt.Fprint(w, `{"data":{"resultIdToElementDataMap":{}}}`)
		})

		c, _ := newTestClient(t, handler)
		if err := c.Authenticate(context.Background()); err != nil {
			t.Fatalf("authentication failed: %v", err)
		}

		if _, err := c.Query(context.Background(), model.PageRequest{Source: model.SourcePrimary, PageSize: 10}); err != nil {
			t.Fatalf("expected retries to recover, got %v", err)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
	})

	t.Run("non-retryable status fails immediately", func(t *testing.T) {
		t.Parallel()

		var attempts int
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			attempts++
			w.WriteHeader(http.StatusBadRequest)
		})

		c, _ := newTestClient(t, handler)
		if err := c.Authenticate(context.Background()); err != nil {
			t.Fatalf("authentication failed: %v", err)
		}

		_, err := c.Query(context.Background(), model.PageRequest{Source: model.SourcePrimary, PageSize: 10})
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadRequest {
			t.Fatalf("expected StatusError 400, got %v", err)
		}
		if attempts != 1 {
			t.Errorf("expected a single attempt, got %d", attempts)
		}
	})
}

// TestIsTransient tests the network-noise classification.
func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "unexpected EOF", err: io.ErrUnexpectedEOF, want: true},
		{name: "wrapped unexpected EOF", err: fmt.Errorf("decode: %w", io.ErrUnexpectedEOF), want: true},
		{name: "connection reset", err: syscall.ECONNRESET, want: true},
		{name: "broken pipe", err: syscall.EPIPE, want: true},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "status error", err: &StatusError{Code: 500}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
