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

	"github.com/google/uuid"
)

// RequestIDHeader is stamped on every outgoing request for log correlation.
const RequestIDHeader = "X-Request-ID"

// Client wraps the chat backend's HTTP surface.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each request. Zero keeps requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			clone := *c.http
			clone.Timeout = d
			c.http = &clone
		}
	}
}

// New parses baseURL (http or https) and builds a Client.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := parseBase(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{base: base, http: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseBase(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, Required("base url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: missing host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// BaseURL returns a copy of the configured base.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// URL joins escaped path segments onto the base.
func (c *Client) URL(segments ...string) string {
	return JoinURL(c.base, segments...)
}

// JoinURL appends path-escaped segments to base.
func JoinURL(base *url.URL, segments ...string) string {
	u := *base
	escaped := make([]string, 0, len(segments))
	raw := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
		raw = append(raw, s)
	}
	u.Path = base.Path + "/" + strings.Join(raw, "/")
	u.RawPath = base.EscapedPath() + "/" + strings.Join(escaped, "/")
	return u.String()
}

// NewRequest builds a request against the base with a fresh request id.
func (c *Client) NewRequest(ctx context.Context, method string, body io.Reader, segments ...string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL(segments...), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// Do sends req. Non-2xx responses are converted into *Error and the body is
// closed; on success the caller owns resp.Body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

// DoJSON marshals in (when non-nil), sends the request and decodes the
// response into out (when non-nil).
func (c *Client) DoJSON(ctx context.Context, method string, in, out any, segments ...string) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", method, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := c.NewRequest(ctx, method, body, segments...)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: %w", method, req.URL.Path, ErrEmptyBody)
		}
		return fmt.Errorf("decode %s %s response: %w", method, req.URL.Path, err)
	}
	return nil
}

// ErrEmptyBody is returned when a JSON response was expected but none came.
var ErrEmptyBody = errors.New("empty response body")

// WebSocketBase derives the ws/wss base from an http/https base.
func WebSocketBase(httpBase string) (*url.URL, error) {
	u, err := parseBase(httpBase)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u, nil
}

// ParseWebSocketBase validates an explicit ws/wss base.
func ParseWebSocketBase(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket url %q: %w", raw, err)
	}
	if (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("invalid websocket url %q: want ws:// or wss:// with a host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}
