// Package httpx is the shared HTTP layer of the provider adapters: a
// failsafe-go retry policy around net/http plus typed status errors.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

const maxErrorBody = 512

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	UserAgent  string
}

func (o Options) normalize() Options {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 200 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 5 * time.Second
	}
	if o.MaxDelay < o.BaseDelay {
		o.MaxDelay = o.BaseDelay
	}
	if o.UserAgent == "" {
		o.UserAgent = "ideahub/1.0"
	}
	return o
}

// Client sends provider requests with retry on transport errors, 5xx and 429.
type Client struct {
	http      *http.Client
	executor  failsafe.Executor[*http.Response]
	userAgent string
}

// New returns a client; a nil hc uses a fresh http.Client with opts.Timeout.
func New(hc *http.Client, opts Options) *Client {
	opts = opts.normalize()
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	retry := retrypolicy.NewBuilder[*http.Response]().
		WithBackoff(opts.BaseDelay, opts.MaxDelay).
		WithMaxRetries(opts.MaxRetries).
		WithJitterFactor(0.1).
		HandleIf(shouldRetry).
		ReturnLastFailure().
		Build()
	return &Client{http: hc, executor: failsafe.With[*http.Response](retry), userAgent: opts.UserAgent}
}

func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	if resp == nil {
		return true
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Do sends the request built by newReq, rebuilding it for each attempt so
// bodies can be replayed. The caller closes the returned body.
func (c *Client) Do(ctx context.Context, provider string, newReq func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		req, err := newReq(ctx)
		if err != nil {
			return nil, err
		}
		if req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if shouldRetry(resp, nil) {
			// keep the head of the body for the final StatusError and release
			// the connection before the next attempt
			head, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewReader(head))
		}
		return resp, nil
	})
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, fmt.Errorf("%s request: %w", provider, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	return resp, nil
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, provider, url string, headers map[string]string, out any) error {
	return c.doJSON(ctx, provider, http.MethodGet, url, nil, headers, out)
}

// PostJSON encodes body, posts it and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, provider, url string, body any, headers map[string]string, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", provider, err)
	}
	return c.doJSON(ctx, provider, http.MethodPost, url, raw, headers, out)
}

// GetBytes issues a GET and returns at most limit bytes of the body.
func (c *Client) GetBytes(ctx context.Context, provider, url string, headers map[string]string, limit int64) ([]byte, error) {
	resp, err := c.Do(ctx, provider, func(ctx context.Context) (*http.Request, error) {
		return newRequest(ctx, http.MethodGet, url, nil, headers)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", provider, err)
	}
	return b, nil
}

func (c *Client) doJSON(ctx context.Context, provider, method, url string, body []byte, headers map[string]string, out any) error {
	resp, err := c.Do(ctx, provider, func(ctx context.Context) (*http.Request, error) {
		return newRequest(ctx, method, url, body, headers)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", provider, err)
	}
	return nil
}

func newRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req, nil
}
