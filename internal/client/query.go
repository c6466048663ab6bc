package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cenkalti/backoff"

	"hashharvest/internal/model"
)

// Investigation query endpoints.
const (
	// primaryQueryPath serves arbitrary entity queries, including the
	// FileHash store.
	primaryQueryPath = "/rest/visualsearch/query/simple"

	// secondaryQueryPath serves Malop queries.
	secondaryQueryPath = "/rest/malops/query"
)

// Envelope constants fixed by the API contract.
const (
	perGroupLimit      = 100
	perFeatureLimit    = 100
	templateContext    = "SPECIFIC"
	queryTimeoutMillis = 120_000
	queryStrategy      = "investigation"
)

// Entity types per source.
const (
	primaryEntityType   = "FileHash"
	secondaryEntityType = "MalopProcess"
)

// Requested field lists per source. The extractor decides which of these
// carry hash candidates; elementDisplayName and the classification field
// ride along for operator-facing debug logging.
var (
	primaryFields = []string{
		"elementDisplayName",
		"sha1HexString",
		"iconMd5HexString",
		"maliciousClassificationType",
	}

	secondaryFields = []string{
		"elementDisplayName",
		"imageFile.md5String",
		"imageFile.sha1String",
		"imageFile.sha256String",
	}
)

// queryEnvelope is the JSON request body both endpoints accept.
type queryEnvelope struct {
	QueryPath        []queryPath `json:"queryPath"`
	TotalResultLimit int         `json:"totalResultLimit"`
	PerGroupLimit    int         `json:"perGroupLimit"`
	PerFeatureLimit  int         `json:"perFeatureLimit"`
	TemplateContext  string      `json:"templateContext"`
	QueryTimeout     int         `json:"queryTimeout"`
	Pagination       *pagination `json:"pagination,omitempty"`
	CustomFields     []string    `json:"customFields"`
}

// queryPath selects the entity type to query.
type queryPath struct {
	RequestedType string `json:"requestedType"`
	Filters       []any  `json:"filters"`
	IsResult      bool   `json:"isResult"`
}

// pagination is the skip-based paging block. Only the primary source
// supports it.
type pagination struct {
	PageSize int `json:"pageSize"`
	Skip     int `json:"skip"`
}

// queryResponse is the JSON response body of both endpoints.
type queryResponse struct {
	Data struct {
		ResultIDToElementDataMap model.EntityMap `json:"resultIdToElementDataMap"` //nolint:tagliatelle // API field name
	} `json:"data"`
}

// Query issues one page request and returns the raw entity map.
// Responses with retryable status codes (429, 500, 502, 503, 504) are
// retried with exponential backoff up to the configured budget; any other
// non-200 status is returned as a *StatusError. Network-level errors are
// returned unretried so the collector can classify them.
func (c *Client) Query(ctx context.Context, req model.PageRequest) (model.EntityMap, error) {
	if !c.authenticated {
		return nil, ErrNotAuthenticated
	}

	endpoint, envelope := c.buildQuery(req)

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	var entities model.EntityMap
	operation := func() error {
		var opErr error
		entities, opErr = c.postQuery(ctx, endpoint, body)
		return opErr
	}

	// Retry only retryable statuses; postQuery marks everything else
	// permanent so backoff stops immediately.
	expBackoff := backoff.NewExponentialBackOff()
	policy := backoff.WithContext(
		backoff.WithMaxRetries(expBackoff, uint64(c.maxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return entities, nil
}

// buildQuery maps a PageRequest onto the endpoint and envelope for its source.
func (c *Client) buildQuery(req model.PageRequest) (string, queryEnvelope) {
	envelope := queryEnvelope{
		TotalResultLimit: req.PageSize,
		PerGroupLimit:    perGroupLimit,
		PerFeatureLimit:  perFeatureLimit,
		TemplateContext:  templateContext,
		QueryTimeout:     queryTimeoutMillis,
	}

	switch req.Source {
	case model.SourceSecondary:
		envelope.QueryPath = []queryPath{{
			RequestedType: secondaryEntityType,
			Filters:       []any{},
			IsResult:      true,
		}}
		envelope.CustomFields = secondaryFields
		return c.baseURL + secondaryQueryPath, envelope
	default:
		envelope.QueryPath = []queryPath{{
			RequestedType: primaryEntityType,
			Filters:       []any{},
			IsResult:      true,
		}}
		envelope.Pagination = &pagination{PageSize: req.PageSize, Skip: req.Skip}
		envelope.CustomFields = primaryFields
		return c.baseURL + primaryQueryPath, envelope
	}
}

// postQuery performs a single POST attempt and decodes the response.
// Retryable statuses come back as plain errors so backoff retries them;
// all other failures are wrapped in backoff.Permanent.
func (c *Client) postQuery(ctx context.Context, endpoint string, body []byte) (model.EntityMap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	c.applyHeaders(req)
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("query-strategy", queryStrategy)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors go to the collector for transience
		// classification; retrying them here would hide the page loss.
		return nil, backoff.Permanent(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // Drain for connection reuse
		statusErr := &StatusError{Code: resp.StatusCode}
		if retryableStatuses[resp.StatusCode] {
			c.logger.Debug("retryable status, backing off",
				"endpoint", endpoint,
				"status", resp.StatusCode,
			)
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		// A truncated body surfaces here as io.ErrUnexpectedEOF; the
		// wrap preserves it for the collector's transience check.
		return nil, backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}

	return decoded.Data.ResultIDToElementDataMap, nil
}
