// Package client talks to the QueryMate HTTP API. Idempotent calls are
// wrapped in the retry layer; calls with side effects are sent once.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"querymate-be/pkg/retry"
)

const (
	DefaultTimeout      = 10 * time.Second
	DefaultModelTimeout = 30 * time.Second
)

type Client struct {
	baseURL      string
	token        string
	http         *http.Client
	timeout      time.Duration
	modelTimeout time.Duration
	retryOpts    []retry.Option
}

type Option func(*Client)

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeouts sets the per-attempt budget for plain calls and for calls
// that wait on a language model.
func WithTimeouts(plain, model time.Duration) Option {
	return func(c *Client) {
		c.timeout = plain
		c.modelTimeout = model
	}
}

// WithRetryOptions tunes the retry layer, mostly for tests.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(c *Client) { c.retryOpts = append(c.retryOpts, opts...) }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{},
		timeout:      DefaultTimeout,
		modelTimeout: DefaultModelTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetToken(token string) { c.token = token }

type call struct {
	method  string
	path    string
	body    interface{}
	out     interface{}
	auth    bool
	timeout time.Duration
	header  map[string]string
}

// once sends a single attempt.
func (c *Client) once(ctx context.Context, cl call) error {
	if cl.auth && c.token == "" {
		return ErrNotLoggedIn
	}

	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	timeout := cl.timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range cl.header {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, raw)
	}
	if cl.out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, cl.out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// idempotent retries the call on transient failures.
func (c *Client) idempotent(ctx context.Context, cl call) error {
	opts := append([]retry.Option{retry.WithShouldRetry(retryable)}, c.retryOpts...)
	return retry.Run(ctx, func(ctx context.Context) error {
		return c.once(ctx, cl)
	}, opts...)
}

func classify(parent context.Context, err error) error {
	// the caller gave up; that is not ours to retry
	if parent.Err() != nil {
		return parent.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

func decodeAPIError(status int, raw []byte) error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &envelope) == nil {
		switch {
		case envelope.Error != "":
			msg = envelope.Error
		case envelope.Message != "":
			msg = envelope.Message
		}
	}
	return &APIError{Status: status, Message: msg}
}
