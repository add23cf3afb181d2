package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"portfolio-tracker/observability"
)

const (
	defaultHTTPTimeout    = 30 * time.Second
	defaultRequestsPerMin = 60
	maxErrorBody          = 512
)

// APIError is a non-200 answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Endpoint   string
	Message    string
	// RetryAfter is the provider's requested wait on a 429 or 503, if any
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s returned status %d", e.Provider, e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Provider, e.Endpoint, e.StatusCode, e.Message)
}

// Retryable reports whether the same request may succeed later.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// isProviderFault reports whether err says something about the provider's
// health. Caller mistakes such as an unknown ticker do not.
func isProviderFault(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrNoData) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// ClientOption configures the REST-backed providers.
type ClientOption func(*restClient)

// WithBaseURL points a provider at another host, e.g. a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *restClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the default 30s-timeout client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *restClient) {
		c.httpClient = httpClient
	}
}

// WithRateLimit caps outbound calls per minute.
func WithRateLimit(requestsPerMin int) ClientOption {
	return func(c *restClient) {
		if requestsPerMin > 0 {
			c.limiter = newLimiter(requestsPerMin)
		}
	}
}

// WithRetryConfig overrides DefaultRetryConfig.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *restClient) {
		c.retry = cfg
	}
}

func newLimiter(requestsPerMin int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), requestsPerMin)
}

// restClient is the shared GET-JSON plumbing: rate limit, retry, breaker
// and metrics around a single provider.
type restClient struct {
	provider   string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
}

func newRESTClient(provider, baseURL string, opts ...ClientOption) *restClient {
	c := &restClient{
		provider:   provider,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		limiter:    newLimiter(defaultRequestsPerMin),
		retry:      DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// getJSON fetches baseURL+path and decodes the body into out.
func (c *restClient) getJSON(ctx context.Context, operation, path string, params url.Values, header http.Header, out any) error {
	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(c.provider, operation)
	timer := metrics.NewTimer()

	_, err := WithCircuitBreaker(ctx, c.provider, func() (struct{}, error) {
		return struct{}{}, WithRetry(ctx, c.retry, func() error {
			return c.do(ctx, path, params, header, out)
		})
	})

	timer.ObserveExternalAPI(c.provider, operation)
	if err != nil {
		metrics.RecordExternalAPIError(c.provider, operation, CategorizeError(err))
		observability.WithProvider(c.provider).Warn("provider call failed",
			"operation", operation,
			"error", err)
	}
	return err
}

func (c *restClient) do(ctx context.Context, path string, params url.Values, header http.Header, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return Permanent(fmt.Errorf("rate limiter: %w", err))
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Permanent(err)
		}
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Endpoint:   path,
			Message:    strings.TrimSpace(string(body)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
		if !apiErr.Retryable() {
			return Permanent(apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return Permanent(fmt.Errorf("failed to decode %s response: %w", c.provider, err))
	}
	return nil
}

// parseRetryAfter reads the delay-seconds form of Retry-After. HTTP dates
// are ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// CategorizeError buckets an error for the error_type metric label.
func CategorizeError(err error) string {
	if err == nil {
		return "none"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		case apiErr.StatusCode >= 500:
			return "server_error"
		default:
			return "client_error"
		}
	}
	switch {
	case errors.Is(err, ErrProviderUnavailable):
		return "circuit_open"
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return "rate_limit"
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401"):
		return "auth_error"
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network"):
		return "connection_error"
	default:
		return "unknown"
	}
}
