// Package http provides the retrying HTTP client shared by the Apprise
// notifier and the Pushgateway metrics pusher.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// RetryConfig configures retry behavior for the HTTP client.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
}

// DefaultRetryConfig matches the retry.* config defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 5 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// backoff returns the wait before retry number attempt (1-based), doubling
// from InitialDelay up to MaxDelay.
func (r RetryConfig) backoff(attempt int) time.Duration {
	delay := r.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	return min(delay, r.MaxDelay)
}

// Client sends requests to notification and metrics endpoints, retrying
// network errors and transient status codes.
type Client struct {
	httpClient *http.Client
	retry      RetryConfig
	userAgent  string
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      DefaultRetryConfig(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// retryable reports whether a status code is worth another attempt.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Do sends req, retrying network errors and retryable statuses. The request
// body is buffered so it can be replayed. When attempts run out on a
// retryable status, the last response is returned without an error.
func (c *Client) Do(ctx context.Context, req *http.Request) (*Response, error) {
	var payload []byte
	if req.Body != nil {
		var err error
		payload, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	endpoint := req.URL.Redacted()
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retry.backoff(attempt - 1)):
			}
		}

		resp, err := c.send(ctx, req, payload)
		if err != nil {
			lastErr = err
			c.logger.Warn("request to endpoint failed",
				"endpoint", endpoint,
				"attempt", attempt,
				"error", err,
			)
			continue
		}

		if retryable(resp.StatusCode) && attempt < c.retry.MaxAttempts {
			lastErr = fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Body)
			c.logger.Warn("endpoint returned retryable status",
				"endpoint", endpoint,
				"status", resp.StatusCode,
				"attempt", attempt,
			)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// send performs one attempt and reads the whole response.
func (c *Client) send(ctx context.Context, req *http.Request, payload []byte) (*Response, error) {
	attempt := req.Clone(ctx)
	if payload != nil {
		attempt.Body = io.NopCloser(bytes.NewReader(payload))
		attempt.ContentLength = int64(len(payload))
	}
	if c.userAgent != "" && attempt.Header.Get("User-Agent") == "" {
		attempt.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("sending request", "method", req.Method, "endpoint", req.URL.Redacted())

	resp, err := c.httpClient.Do(attempt)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body, Headers: resp.Header}, nil
}

// Post sends body with the given content type.
func (c *Client) Post(ctx context.Context, url string, contentType string, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// Doer adapts the client to APIs that accept anything with http.Client's Do method.
type Doer struct {
	c *Client
}

// Doer returns an adapter whose requests go through the retry logic.
func (c *Client) Doer() *Doer {
	return &Doer{c: c}
}

// Do performs req with retries and returns a buffered *http.Response.
func (d *Doer) Do(req *http.Request) (*http.Response, error) {
	resp, err := d.c.Do(req.Context(), req)
	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        resp.Headers,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Request:       req,
	}, nil
}

// CheckConnectivity makes one GET to url without retries and expects a 2xx.
func (c *Client) CheckConnectivity(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.send(ctx, req, nil)
	if err != nil {
		return fmt.Errorf("connectivity check failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("connectivity check returned status %d", resp.StatusCode)
	}
	return nil
}
