package lcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	// GlobalBaseURL is the region-less API root used by the accounts
	// listing.
	GlobalBaseURL = "https://api.cloud.trados.com/public-api/v1"

	// RequestTimeout bounds every resource-API call.
	RequestTimeout = 60 * time.Second

	// PageSize is the maximum items per page accepted by list endpoints.
	PageSize = 100

	// tenantHeader carries the tenant context on every request.
	tenantHeader = "X-LC-Tenant"

	baseURLTemplate  = "https://api.%s.cloud.trados.com/public-api/v1"
	taskFields       = "id,name,status,dueBy,createdAt,taskType,project,input,inputFiles"
	sourceFileFields = "id,totalWords"
)

// Client is the authenticated request gateway for one tenant/region pair.
// The underlying HTTP transport is shared across tenants and not owned here.
type Client struct {
	hc        *http.Client
	tokens    *TokenManager
	tenantID  string
	baseURL   string
	globalURL string
	log       *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for resource-API calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.hc = hc }
}

// WithBaseURLs overrides the regional and global API roots.
func WithBaseURLs(base, global string) ClientOption {
	return func(c *Client) {
		c.baseURL = base
		c.globalURL = global
	}
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient creates a gateway bound to a tenant and region. An empty
// tenantID omits the tenant header (accounts discovery before a tenant is
// chosen).
func NewClient(tokens *TokenManager, tenantID, region string, opts ...ClientOption) *Client {
	c := &Client{
		hc:        http.DefaultClient,
		tokens:    tokens,
		tenantID:  tenantID,
		baseURL:   fmt.Sprintf(baseURLTemplate, region),
		globalURL: GlobalBaseURL,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AssignedTasks fetches every task assigned to the authenticated user,
// following pagination. The second return is the number of API calls made.
func (c *Client) AssignedTasks(ctx context.Context) ([]Task, int, error) {
	q := url.Values{"fields": {taskFields}}
	return fetchAll[Task](ctx, c, "/tasks/assigned", q, PageSize, false)
}

// ProjectSourceFiles fetches the source-file listing for one project,
// restricted to the word-count fields.
func (c *Client) ProjectSourceFiles(ctx context.Context, projectID string) ([]SourceFile, int, error) {
	q := url.Values{"fields": {sourceFileFields}}
	return fetchAll[SourceFile](ctx, c, "/projects/"+projectID+"/source-files", q, PageSize, false)
}

// Accounts lists the tenant candidates accessible to the authenticated
// user. Served from the global API root; some API versions return a bare
// array instead of the usual envelope.
func (c *Client) Accounts(ctx context.Context) ([]Account, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/accounts", nil, true, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var accounts []Account
		if err := json.Unmarshal(raw, &accounts); err != nil {
			return nil, fmt.Errorf("decode accounts: %w", err)
		}
		return accounts, nil
	}
	var env envelope[Account]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	return env.Items, nil
}

// get issues one request with exactly one transparent retry after a 401
// invalidated the cached token. A second 401 is a fatal auth error.
func (c *Client) get(ctx context.Context, path string, query url.Values, global bool, out any) error {
	err := c.do(ctx, http.MethodGet, path, query, global, out)
	if !isRetryableAuth(err) {
		return err
	}
	c.log.Debug("retrying request after token invalidation", zap.String("path", path))
	err = c.do(ctx, http.MethodGet, path, query, global, out)
	if isRetryableAuth(err) {
		return &AuthError{Reason: "token rejected after refresh", Err: err}
	}
	return err
}

// do issues one authenticated request and maps the response per the status
// taxonomy. It never retries.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, global bool, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	base := c.baseURL
	if global {
		base = c.globalURL
	}
	u := base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if c.tenantID != "" {
		req.Header.Set(tenantHeader, c.tenantID)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.tokens.Invalidate()
		c.log.Warn("received 401, token invalidated", zap.String("path", path))
		return &AuthError{Reason: "token rejected by API", Retryable: true}
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		if out == nil || len(body) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
		return nil
	case http.StatusNoContent:
		return nil
	default:
		c.log.Error("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return &APIError{Status: resp.StatusCode, Method: method, Path: path}
	}
}
