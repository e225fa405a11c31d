package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/ghitriage/internal/cache"
	"github.com/ppiankov/ghitriage/internal/model"
	"github.com/ppiankov/ghitriage/internal/worker"
)

// TokenSource supplies the bearer token and is told when the backend
// rejects it. Expire must purge only if token is still the current one.
type TokenSource interface {
	Token() string
	Expire(token string) bool
}

// Options configures a Client
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64

	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
	CookieJar  bool

	// Limiter throttles requests per host; nil disables throttling
	Limiter *worker.Limiter
	// Cache holds rarely-changing responses such as filter options; nil disables caching
	Cache      cache.Cache
	FiltersTTL time.Duration

	// HTTPClient overrides the transport built from the options above
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// OptionsFromConfig maps the client configuration onto Options
func OptionsFromConfig(cfg *model.Config) Options {
	return Options{
		BaseURL:      cfg.API.BaseURL,
		Timeout:      cfg.API.Timeout,
		UserAgent:    cfg.API.UserAgent,
		MaxBodyBytes: cfg.API.MaxBodyBytes,
		HTTPProxy:    cfg.HTTP.HTTPProxy,
		HTTPSProxy:   cfg.HTTP.HTTPSProxy,
		NoProxy:      cfg.HTTP.NoProxy,
		CookieJar:    cfg.HTTP.CookieJar,
		Limiter:      worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		Cache:        cache.NewMemoryCache(cfg.Cache.FiltersTTL, time.Minute),
		FiltersTTL:   cfg.Cache.FiltersTTL,
	}
}

// Client is the authenticated REST client for the triage backend.
// It performs no retries; callers decide whether to re-issue a request.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	limiter    *worker.Limiter
	cache      cache.Cache
	filtersTTL time.Duration
	userAgent  string
	maxBytes   int64
	logger     *slog.Logger
}

// New creates a client. tokens may be nil for unauthenticated use.
func New(opts Options, tokens TokenSource) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", opts.BaseURL)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient, err = newHTTPClient(opts)
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "ghitriage"
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    opts.Limiter,
		cache:      opts.Cache,
		filtersTTL: opts.FiltersTTL,
		userAgent:  opts.UserAgent,
		maxBytes:   opts.MaxBodyBytes,
		logger:     logger,
	}, nil
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func (c *Client) cacheKey(path string) string {
	return cache.CacheKey(c.baseURL.String() + path)
}

// request describes one backend call
type request struct {
	method string
	path   string
	query  url.Values
	body   any        // JSON-encoded when non-nil
	form   url.Values // form-encoded when non-nil
	noAuth bool       // send no Authorization header and skip session expiry
	token  string     // explicit token instead of the session's
}

func (c *Client) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return "/api/v1/" + strings.Join(escaped, "/")
}

// do performs r and decodes a JSON response into out (when out is non-nil).
// A 401 on an authenticated call expires the token it was sent with.
func (c *Client) do(ctx context.Context, r request, out any) error {
	// r.path is already escaped, so join strings rather than setting url.URL.Path
	target := strings.TrimRight(c.baseURL.String(), "/") + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case r.body != nil:
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token := ""
	if !r.noAuth {
		token = r.token
		if token == "" && c.tokens != nil {
			token = c.tokens.Token()
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, target); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	c.logger.Debug("api request",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized && !r.noAuth {
		if token != "" && c.tokens != nil && c.tokens.Expire(token) {
			c.logger.Warn("session expired", "path", r.path, "request_id", requestID)
		}
		return &AuthError{Kind: SessionExpired, Status: resp.StatusCode, Message: errorDetail(data)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestError{
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: errorDetail(data),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{
			Method:  r.method,
			Path:    r.path,
			Status:  resp.StatusCode,
			Message: "malformed response body",
			Err:     err,
		}
	}

	return nil
}

// errorDetail extracts FastAPI's {"detail": ...} message when present
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var msg string
	if err := json.Unmarshal(payload.Detail, &msg); err == nil {
		return msg
	}
	// Validation errors arrive as a list of objects with a "msg" field
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return string(payload.Detail)
}
