// Package transport provides the HTTP layer shared by the source and
// destination clients: authentication, JSON encoding, rate limiting, and
// retry with exponential backoff for transient failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/suprameds/shopsync/pkg/constants"
	"github.com/suprameds/shopsync/pkg/errors"
	"github.com/suprameds/shopsync/pkg/logging"
)

// maxErrorBodyBytes bounds how much of an error response body is kept
// for the error message.
const maxErrorBodyBytes = 2048

// Client provides HTTP client functionality with authentication, retry,
// and rate limiting.
type Client struct {
	http       *http.Client
	auth       Authenticator
	limiter    *rate.Limiter
	system     string // "source" or "destination", for error attribution
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

// ClientOption configures a transport client.
type ClientOption func(*Client)

// WithAuthenticator sets the authenticator applied to every request.
func WithAuthenticator(auth Authenticator) ClientOption {
	return func(c *Client) { c.auth = auth }
}

// WithRateLimit caps request admission at rps requests per second.
// A non-positive rate disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithMaxRetries bounds retry attempts for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithBackoff overrides the retry backoff policy. Tests use this to keep
// retry paths fast.
func WithBackoff(base, ceiling time.Duration) ClientOption {
	return func(c *Client) {
		c.backoff = base
		c.maxBackoff = ceiling
	}
}

// New creates a transport client for the named system.
func New(system string, opts ...ClientOption) *Client {
	c := &Client{
		http:       &http.Client{Timeout: constants.DefaultHTTPTimeout},
		auth:       &NoAuth{},
		system:     system,
		maxRetries: constants.MaxRetries,
		backoff:    constants.RetryBackoff,
		maxBackoff: constants.MaxRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PostJSON performs a POST with a JSON body, decoding a 2xx response into
// out when out is non-nil.
func (c *Client) PostJSON(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &errors.APIError{System: c.system, Endpoint: endpoint, Message: "encoding request body", Err: err}
	}
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

// GetJSON performs a GET with optional query parameters, decoding a 2xx
// response into out when out is non-nil.
func (c *Client) GetJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	if len(query) > 0 {
		endpoint = endpoint + "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

// do issues the request, retrying transient failures (network errors,
// 429, 5xx) with exponential backoff and jitter. 401 is never retried.
// The request body is re-issued from the buffered bytes on each attempt.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	log := logging.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt-1, c.backoff, c.maxBackoff)
			if ra, ok := retryAfterHint(lastErr); ok && ra > delay {
				delay = ra
			}
			log.Debug().
				Str("system", c.system).
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying request")
			if err := sleepContext(ctx, delay); err != nil {
				return err
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		err := c.attempt(ctx, method, endpoint, body, out)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if !errors.IsRetryable(err) {
			return err
		}
		lastErr = err
	}
	return exhausted(lastErr, c.system)
}

// attempt issues a single request and classifies the outcome.
func (c *Client) attempt(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &errors.APIError{System: c.system, Endpoint: endpoint, Message: "creating request", Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth.Apply(req)

	resp, err := c.http.Do(req)
	if err != nil {
		// No response at all: connection refused, timeout, DNS failure.
		return &errors.APIError{System: c.system, StatusCode: 0, Endpoint: endpoint, Message: "request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &errors.APIError{System: c.system, StatusCode: resp.StatusCode, Endpoint: endpoint, Message: "decoding response", Err: err}
		}
		return nil
	}

	apiErr := &errors.APIError{
		System:     c.system,
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Message:    readErrorBody(resp.Body),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		if ra, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			return &rateLimitedError{APIError: apiErr, retryAfter: ra}
		}
	}
	return apiErr
}

// readErrorBody extracts a bounded error message from a response body.
func readErrorBody(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil || len(data) == 0 {
		return "no response body"
	}
	return string(bytes.TrimSpace(data))
}

// sleepContext sleeps for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
