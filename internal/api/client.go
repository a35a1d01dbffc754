// Package api wraps the storefront REST backend. It only builds requests and
// decodes responses; no client state lives here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource yields the bearer token for each request. Empty means anonymous.
type TokenSource interface {
	Token() string
}

type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type Client struct {
	base   *url.URL
	http   *http.Client
	tokens TokenSource
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http = &http.Client{Timeout: d} }
}

func WithTokenSource(ts TokenSource) Option { return func(c *Client) { c.tokens = ts } }

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// WithTokens returns a copy of c that authenticates with ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// Error is a non-2xx backend answer.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: http %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func statusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool     { return statusOf(err) == http.StatusNotFound }
func IsUnauthorized(err error) bool { return statusOf(err) == http.StatusUnauthorized }

// StatusCode returns the backend status behind err, or 0.
func StatusCode(err error) int { return statusOf(err) }

func (c *Client) endpoint(path string, q url.Values) string {
	// path segments are already escaped by the callers
	s := c.base.String() + path
	if len(q) > 0 {
		s += "?" + q.Encode()
	}
	return s
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body any) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, q), rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	return req, nil
}

// do sends the request and decodes a JSON body into out (skipped when out is
// nil or the body is empty).
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) (*http.Response, error) {
	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return resp, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, &Error{StatusCode: resp.StatusCode, Method: method, Path: path, Message: errorMessage(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp, nil
	}
	if err := decodeData(raw, out); err != nil {
		return resp, fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return resp, nil
}

// decodeData accepts both a bare JSON value and the {"data": ...} wrapper the
// backend uses on most routes.
func decodeData(raw []byte, out any) error {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &wrapped); err == nil && len(wrapped.Data) > 0 {
			return json.Unmarshal(wrapped.Data, out)
		}
	}
	return json.Unmarshal(trimmed, out)
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func escape(id string) string { return url.PathEscape(id) }
