package client

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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/elearn/internal/logger"
	"github.com/wolfeidau/elearn/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultServerURL is used when no API URL is configured.
const DefaultServerURL = "http://localhost:8000"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

var ErrNoServerURL = errors.New("server URL is required")

// Config holds common client configuration
type Config struct {
	ServerURL string
	Timeout   time.Duration
	Debug     bool
	UserAgent string

	// Cache enables an HTTP response cache that honours Cache-Control.
	// CacheDir persists it on disk, otherwise it lives in memory.
	Cache    bool
	CacheDir string
}

// DefaultConfig returns a default client configuration
func DefaultConfig() Config {
	return Config{
		ServerURL: DefaultServerURL,
		Timeout:   30 * time.Second,
		Debug:     false,
	}
}

// SessionInvalidatedFunc is called after the client has cleared stored
// credentials in response to a 401.
type SessionInvalidatedFunc func(ctx context.Context)

type options struct {
	onInvalidated SessionInvalidatedFunc
	transport     http.RoundTripper
	logger        *zerolog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithSessionInvalidated registers the callback run when the server rejects
// the stored credential.
func WithSessionInvalidated(fn SessionInvalidatedFunc) Option {
	return func(o *options) {
		o.onInvalidated = fn
	}
}

// WithTransport replaces the base transport, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) {
		o.transport = rt
	}
}

// WithLogger sets the logger used for request logging.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// Client sends JSON requests to the e-learning API. Every request passes
// through the credential and unauthorized interceptors.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// New creates a client. store is read for the bearer credential on each
// request and cleared when the server answers 401.
func New(config Config, store storage.Storage, opts ...Option) (*Client, error) {
	if config.ServerURL == "" {
		return nil, ErrNoServerURL
	}

	u, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", config.ServerURL)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	base := o.transport
	if base == nil {
		base = http.DefaultTransport
	}
	if config.Cache {
		base = newCachingTransport(config.CacheDir, base)
	}

	l := log.Logger
	if o.logger != nil {
		l = *o.logger
	}

	// Outermost first: attach credential, react to 401, log, trace
	var rt http.RoundTripper = otelhttp.NewTransport(base)
	rt = logger.NewHTTPRequests(l, rt)
	rt = &unauthorizedTransport{next: rt, store: store, onInvalidated: o.onInvalidated}
	rt = &authTransport{next: rt, store: store}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "elearn"
	}

	return &Client{
		baseURL:   strings.TrimRight(config.ServerURL, "/"),
		userAgent: userAgent,
		http: &http.Client{
			Timeout:   timeout,
			Transport: rt,
		},
	}, nil
}

// BaseURL returns the API base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends in as a JSON body (when non-nil) and decodes the response into out
// (when non-nil). Non-2xx responses are returned as *APIError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(method, path, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}

	return nil
}
