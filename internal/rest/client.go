// Package rest implements the remote resource client: a thin HTTP
// wrapper bound to a base address with a bounded timeout and default
// JSON headers. It performs no retries and no caching (every call is a
// fresh network round trip) and maps failures into the application's
// error taxonomy.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/simp-lee/dinesync/internal/domain"
)

// DefaultTimeout bounds every request; a call that does not complete in
// time fails like any other call that produced no response.
const DefaultTimeout = 10 * time.Second

// DefaultAdminHeader is the identity header attached to admin-privileged
// calls that authorize by email rather than bearer token.
const DefaultAdminHeader = "X-Admin-Email"

// Client issues JSON HTTP requests against a single base address. One
// shared instance serves every resource module.
type Client struct {
	baseURL     string
	http        *http.Client
	token       string
	adminHeader string
	log         *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithAdminHeader overrides the admin-identity header name.
func WithAdminHeader(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.adminHeader = name
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. The configured
// timeout is preserved unless the replacement sets its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			if hc.Timeout == 0 {
				hc.Timeout = c.http.Timeout
			}
			c.http = hc
		}
	}
}

// WithClientLogger sets the structured logger. Defaults to slog.Default().
func WithClientLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Client bound to the given base address.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, domain.NewValidationError("base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, domain.NewValidationError("base URL is not a valid URL")
	}

	c := &Client{
		baseURL:     baseURL,
		http:        &http.Client{Timeout: DefaultTimeout},
		adminHeader: DefaultAdminHeader,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the bearer token, e.g. after sign-in.
func (c *Client) SetToken(token string) {
	c.token = token
}

// CallOption customizes a single request.
type CallOption func(*http.Request)

// WithHeader sets an extra header on one request.
func WithHeader(name, value string) CallOption {
	return func(req *http.Request) {
		req.Header.Set(name, value)
	}
}

// AsAdmin attaches the admin-identity email header to one request.
// Admin endpoints on the meal service authorize by this header rather
// than (or in addition to) the bearer token.
func AsAdmin(email string) CallOption {
	return func(req *http.Request) {
		req.Header.Set(DefaultAdminHeader, email)
	}
}

// Get issues a GET with query parameters and decodes the JSON response
// into out (which may be nil to discard the body).
func (c *Client) Get(ctx context.Context, path string, params map[string]string, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out, opts...)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out, opts...)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out, opts...)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out, opts...)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out, opts...)
}

// MutationEnvelope is the uniform response shape of mutation endpoints.
type MutationEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Mutate issues a state-changing request expecting the {success,
// message} envelope. A 2xx response with success=false becomes an
// application error carrying the server's message.
func (c *Client) Mutate(ctx context.Context, method, path string, body any, opts ...CallOption) error {
	var envelope MutationEnvelope
	if err := c.do(ctx, method, path, nil, body, &envelope, opts...); err != nil {
		return err
	}
	if !envelope.Success {
		return domain.NewApplicationError(envelope.Message)
	}
	return nil
}

// errorBody is the shape servers use to report failures.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, params map[string]string, body, out any, opts ...CallOption) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		q := url.Values{}
		for name, value := range params {
			q.Set(name, value)
		}
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return domain.NewAppError(domain.CodeInternal, "failed to encode request body", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return domain.NewAppError(domain.CodeInternal, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, opt := range opts {
		opt(req)
	}
	if c.adminHeader != DefaultAdminHeader {
		// A configured header name remaps the AsAdmin call option.
		if v := req.Header.Get(DefaultAdminHeader); v != "" {
			req.Header.Del(DefaultAdminHeader)
			req.Header.Set(c.adminHeader, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err),
		)
		return domain.NewNetworkError(err)
	}
	defer resp.Body.Close()

	c.log.Debug("request completed",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.NewHTTPError(resp.StatusCode, readServerMessage(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewAppError(domain.CodeInternal, fmt.Sprintf("failed to decode %s response", path), err)
	}
	return nil
}

// readServerMessage extracts a server-supplied error message from a
// non-2xx response body, if the body carries one.
func readServerMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var parsed errorBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return ""
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	return parsed.Error
}

// IsTimeout reports whether err was caused by the per-call timeout.
// Timeouts are classified as network errors; this helper only exists for
// logging and tests that care about the distinction.
func IsTimeout(err error) bool {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
