// Package github is a minimal REST client for the GitHub API, covering the
// three capabilities the discovery pipeline needs: code search, repository
// probes, and descriptor content fetches. All calls share one rate budget.
package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// DefaultBaseURL is the public GitHub API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize caps API response bodies (10MB).
	MaxResponseSize = 10 * 1024 * 1024

	userAgent  = "plugindex/1.0"
	apiVersion = "2022-11-28"

	retryMax = 3
)

// Client talks to the GitHub REST API.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	budget  *RateBudget
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
			baseURL = baseURL[:len(baseURL)-1]
		}
		c.baseURL = baseURL
	}
}

// WithToken sets the bearer token. Unauthenticated clients work but are
// limited to a quota too small for any non-trivial run.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithRateBudget sets the shared rate budget.
func WithRateBudget(budget *RateBudget) Option {
	return func(c *Client) {
		c.budget = budget
	}
}

// NewClient creates a GitHub API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		budget:  NewRateBudget(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = newRetryingHTTPClient()
	}
	return c
}

// Budget returns the shared rate budget so other components can inspect it.
func (c *Client) Budget() *RateBudget {
	return c.budget
}

// newRetryingHTTPClient builds an HTTP client that retries network errors
// and 5xx responses. Rate-limit responses are deliberately not retried here;
// the RateBudget owns that policy.
func newRetryingHTTPClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = retryMax
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	rc.HTTPClient.Timeout = DefaultTimeout
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		return resp.StatusCode >= 500, nil
	}
	return rc.StandardClient()
}

// get performs a GET against the API, enforcing the rate budget before the
// request and recording the budget headers after it.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	logger := logr.FromContextOrDiscard(ctx)

	if err := c.budget.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.budget.ObserveHeaders(resp.Header)

	if rateLimited(resp) {
		logger.V(1).Info("API rate limit hit", "url", reqURL)
		return nil, &RateLimitError{Reset: rateLimitReset(resp)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: reqURL, Message: resp.Status}
	}

	limited := io.LimitReader(resp.Body, MaxResponseSize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes", MaxResponseSize)
	}

	return body, nil
}

// rateLimited reports whether the response is a rate-limit rejection rather
// than an ordinary 403/429.
func rateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0"
}

// rateLimitReset extracts the reset time from the response, falling back to
// a short delay when the header is absent.
func rateLimitReset(resp *http.Response) time.Time {
	if resetStr := resp.Header.Get("X-RateLimit-Reset"); resetStr != "" {
		if epoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			return time.Unix(epoch, 0)
		}
	}
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil {
			return time.Now().Add(time.Duration(secs) * time.Second)
		}
	}
	return time.Now().Add(time.Minute)
}
