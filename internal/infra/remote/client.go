// Package remote provides HTTP clients for the external crawl and
// text-generation services. Every request runs through a circuit breaker
// keyed by the target host, which in turn wraps bounded retries, so a
// failing dependency is given time to recover instead of being hammered.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"intelwire/internal/observability/logging"
	"intelwire/internal/observability/metrics"
	"intelwire/internal/resilience/circuitbreaker"
	"intelwire/internal/resilience/retry"
)

const defaultRequestTimeout = 30 * time.Second

// Client is a resilient HTTP client bound to one base URL. Verb methods
// execute breaker(retry(send)) so that an OPEN breaker rejects immediately
// without consuming retry attempts.
type Client struct {
	baseURL    string
	headers    map[string]string
	httpClient *http.Client
	executor   *retry.Executor
	retryCfg   retry.Config
	breakers   *circuitbreaker.Registry
	logger     *logging.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHeaders sets default headers sent with every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(c *Client) { c.headers = headers }
}

// WithTimeout bounds each individual request attempt.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithRetryConfig overrides the client-wide retry defaults.
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) { c.retryCfg = cfg }
}

func NewClient(baseURL string, executor *retry.Executor, breakers *circuitbreaker.Registry, logger *logging.Logger, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		executor:   executor,
		retryCfg:   retry.DefaultConfig(),
		breakers:   breakers,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) Put(ctx context.Context, path string, body any) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// PostWithRetry issues a POST with a per-call retry policy overriding the
// client-wide defaults.
func (c *Client) PostWithRetry(ctx context.Context, path string, body any, cfg retry.Config) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, &cfg)
}

// BreakerStats exposes the state of every breaker tracked by this client's
// registry, for observability endpoints.
func (c *Client) BreakerStats() []circuitbreaker.Stats {
	return c.breakers.Stats()
}

func (c *Client) do(ctx context.Context, method, path string, body any, override *retry.Config) ([]byte, error) {
	fullURL := c.baseURL + path

	host, err := breakerKey(fullURL)
	if err != nil {
		return nil, fmt.Errorf("remote: invalid url %q: %w", fullURL, err)
	}

	var payload []byte
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: marshal request body: %w", err)
		}
	}

	cfg := c.retryCfg
	if override != nil {
		cfg = *override
	}

	breaker := c.breakers.ForResource(host)
	operation := fmt.Sprintf("%s %s", method, fullURL)

	start := time.Now()
	var respBody []byte
	_, err = breaker.Execute(func() (interface{}, error) {
		return nil, c.executor.Do(ctx, cfg, operation, func() error {
			var sendErr error
			respBody, sendErr = c.send(ctx, method, fullURL, payload)
			return sendErr
		})
	})
	metrics.RecordRemoteCall(host, time.Since(start), err)

	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			metrics.RecordBreakerRejection(host)
			c.logger.Warn(ctx, "request rejected, circuit breaker open",
				logging.WithContext("remote"),
				logging.WithMetadata(map[string]any{"host": host, "method": method}))
		}
		return nil, err
	}
	return respBody, nil
}

// send performs one request attempt. Non-2xx responses become *retry.HTTPError
// so retry conditions can branch on the status code.
func (c *Client) send(ctx context.Context, method, fullURL string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       truncate(string(respBody), 512),
		}
	}
	return respBody, nil
}

func breakerKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	return u.Host, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
