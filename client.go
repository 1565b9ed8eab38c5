package finora

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// RefreshHandler exchanges an expired session for a fresh bearer token.
type RefreshHandler func(ctx context.Context) (string, error)

// RequestOptions control a single logical request.
type RequestOptions struct {
	// Params are appended to the URL as query parameters. Empty values are
	// dropped.
	Params map[string]string

	// Body is serialized as JSON for mutating verbs.
	Body any

	// Cache opts the response into the client's response cache.
	Cache bool

	// CacheTTL overrides the client default TTL when > 0.
	CacheTTL time.Duration

	// ForceRefresh bypasses the cache lookup but still stores the fresh
	// response.
	ForceRefresh bool

	// NoRetry disables the retry policy for this call.
	NoRetry bool
}

// Result is the parsed outcome of a successful request. Raw is nil when the
// response body was empty or not valid JSON; the result then only marks
// success via StatusCode.
type Result struct {
	StatusCode int
	Raw        json.RawMessage
}

// Decode unmarshals the response body into v.
func (r *Result) Decode(v any) error {
	if r == nil || len(r.Raw) == 0 {
		return &ClientError{Type: ErrorTypeValidation, Message: "response has no decodable body", Timestamp: time.Now()}
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return &ClientError{Type: ErrorTypeValidation, Message: "cannot decode response body", Cause: err, Timestamp: time.Now()}
	}
	return nil
}

// Client is the single entry point to the Finora REST API. It composes URL
// construction, timeout enforcement, bearer authentication with one-shot 401
// refresh, response caching, in-flight deduplication and retry into one
// request pipeline. Safe for concurrent use.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	timeout        time.Duration
	defaultHeaders map[string]string

	authMu         sync.RWMutex
	token          string
	refreshHandler RefreshHandler

	cache         *Cache
	cacheTTL      time.Duration
	deduplication *DeduplicationTracker
	retryPolicy   *RetryPolicy

	metrics *MetricsCollector
	debug   *DebugConfig
	logger  Logger

	seenEvictions atomic.Uint64

	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient:    &http.Client{},
		timeout:       30 * time.Second,
		cacheTTL:      5 * time.Minute,
		deduplication: NewDeduplicationTracker(),
		retryPolicy:   NewRetryPolicy(),
		debug:         DefaultDebugConfig(),
		defaultHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
	}

	for _, option := range options {
		option(client)
	}

	if client.retryPolicy != nil && client.logger != nil {
		client.retryPolicy.SetLogger(client.logger)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// SetToken rotates the bearer token; an empty string clears it.
func (c *Client) SetToken(token string) {
	c.authMu.Lock()
	c.token = token
	c.authMu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.token
}

// SetRefreshHandler registers the 401 refresh handler.
func (c *Client) SetRefreshHandler(handler RefreshHandler) {
	c.authMu.Lock()
	c.refreshHandler = handler
	c.authMu.Unlock()
}

func (c *Client) currentRefreshHandler() RefreshHandler {
	c.authMu.RLock()
	defer c.authMu.RUnlock()
	return c.refreshHandler
}

// BuildURL concatenates the base URL, the endpoint and the non-empty query
// parameters in sorted order.
func (c *Client) BuildURL(endpoint string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(c.baseURL, "/"))
	if !strings.HasPrefix(endpoint, "/") {
		b.WriteByte('/')
	}
	b.WriteString(endpoint)

	if len(params) > 0 {
		values := url.Values{}
		keys := make([]string, 0, len(params))
		for k, v := range params {
			if k == "" || v == "" {
				continue
			}
			values.Set(k, v)
			keys = append(keys, k)
		}
		if len(keys) > 0 {
			sort.Strings(keys)
			b.WriteByte('?')
			b.WriteString(values.Encode())
		}
	}

	return b.String()
}

// CacheStats returns a snapshot of the response cache counters. The zero
// value is returned when caching is disabled.
func (c *Client) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}
	return c.cache.Stats()
}

// DeduplicationStats returns a snapshot of the deduplication counters.
func (c *Client) DeduplicationStats() DeduplicationStats {
	if c.deduplication == nil {
		return DeduplicationStats{}
	}
	return c.deduplication.Stats()
}

// InvalidateCache removes every cached response whose key starts with prefix
// and returns the count removed. Called after mutations on a resource family.
func (c *Client) InvalidateCache(prefix string) int {
	if c.cache == nil {
		return 0
	}
	removed := c.cache.InvalidatePattern(prefix)
	c.syncCacheMetrics()
	return removed
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts *RequestOptions) (*Result, error) {
	res, err := c.Request(ctx, http.MethodGet, endpoint, opts)
	return res, normalizeError(err)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Result, error) {
	opts = cloneOptions(opts)
	opts.Body = body
	res, err := c.Request(ctx, http.MethodPost, endpoint, opts)
	return res, normalizeError(err)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, endpoint string, body any, opts *RequestOptions) (*Result, error) {
	opts = cloneOptions(opts)
	opts.Body = body
	res, err := c.Request(ctx, http.MethodPut, endpoint, opts)
	return res, normalizeError(err)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts *RequestOptions) (*Result, error) {
	res, err := c.Request(ctx, http.MethodDelete, endpoint, opts)
	return res, normalizeError(err)
}

// Request executes one logical request through the full pipeline: cache
// lookup, deduplication, retry around the transport call, response parsing
// and cache population.
func (c *Client) Request(ctx context.Context, method, endpoint string, opts *RequestOptions) (*Result, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}
	if opts == nil {
		opts = &RequestOptions{}
	}

	start := time.Now()

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("starting request", "requestID", requestID, "method", method, "endpoint", endpoint)
	}

	c.metrics.RecordRequestStart(method, endpoint)
	defer c.metrics.RecordRequestEnd(method, endpoint)

	cacheKey := CacheKey(endpoint, opts.Params)
	useCache := c.cache != nil && opts.Cache

	if useCache && !opts.ForceRefresh {
		if v, found := c.cache.Get(cacheKey); found {
			res := v.(*Result)
			c.metrics.RecordCacheHit(method, endpoint)
			c.metrics.RecordRequest(method, endpoint, res.StatusCode, time.Since(start))

			if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
				c.logger.Debug("cache hit", "requestID", requestID, "cacheKey", cacheKey)
			}

			return res, nil
		}

		c.metrics.RecordCacheMiss(method, endpoint)
		c.syncCacheMetrics()

		if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
			c.logger.Debug("cache miss", "requestID", requestID, "cacheKey", cacheKey)
		}
	}

	dedupKey := deduplicationKey(method, cacheKey, opts.Body)

	joined := true
	v, err := c.deduplication.Do(ctx, dedupKey, func() (any, error) {
		joined = false

		var res *Result
		op := func(opCtx context.Context) error {
			r, opErr := c.send(opCtx, method, endpoint, opts, true)
			if opErr != nil {
				return opErr
			}
			res = r
			return nil
		}

		var execErr error
		if c.retryPolicy != nil && !opts.NoRetry {
			execErr = c.retryPolicy.ExecuteNotify(ctx, op, func(attempt int, delay time.Duration, retryErr error) {
				c.metrics.RecordRetry(method, endpoint, attempt+1)
			})
		} else {
			execErr = op(ctx)
		}
		if execErr != nil {
			return nil, execErr
		}

		if useCache {
			ttl := c.cacheTTL
			if opts.CacheTTL > 0 {
				ttl = opts.CacheTTL
			}
			c.cache.Set(cacheKey, res, ttl)
			c.syncCacheMetrics()

			if c.debug != nil && c.debug.Enabled && c.debug.LogCache && c.logger != nil {
				c.logger.Debug("response cached", "requestID", requestID, "cacheKey", cacheKey, "ttl", ttl)
			}
		}

		return res, nil
	})

	if joined {
		c.metrics.RecordDeduplicationHit(method, endpoint)
		if c.debug != nil && c.debug.Enabled && c.debug.LogDedup && c.logger != nil {
			c.logger.Debug("joined in-flight request", "requestID", requestID, "dedupKey", dedupKey)
		}
	}

	duration := time.Since(start)

	if err != nil {
		statusCode := 0
		errorType := ErrorTypeNetwork
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			statusCode = clientErr.StatusCode
			errorType = clientErr.Type
		}
		c.metrics.RecordRequest(method, endpoint, statusCode, duration)
		c.metrics.RecordError(errorType, method, endpoint)

		if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
			c.logger.Debug("request failed", "requestID", requestID, "method", method, "endpoint", endpoint, "error", err)
		}

		return nil, err
	}

	res := v.(*Result)
	c.metrics.RecordRequest(method, endpoint, res.StatusCode, duration)

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("request complete", "requestID", requestID, "method", method, "endpoint", endpoint, "status", res.StatusCode, "duration", duration)
	}

	return res, nil
}

// send performs one transport call: timeout enforcement, default headers,
// bearer injection, the one-shot 401 refresh-and-replay, and response
// parsing into a Result or a classified error.
func (c *Client) send(ctx context.Context, method, endpoint string, opts *RequestOptions, allowRefresh bool) (*Result, error) {
	requestURL := c.BuildURL(endpoint, opts.Params)

	var bodyReader io.Reader
	if opts.Body != nil {
		raw, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, &ClientError{
				Type:      ErrorTypeValidation,
				Message:   "request body is not serializable",
				Cause:     err,
				URL:       requestURL,
				Timestamp: time.Now(),
			}
		}
		bodyReader = bytes.NewReader(raw)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, requestURL, bodyReader)
	if err != nil {
		return nil, newNetworkError(requestURL, err)
	}
	for k, v := range c.defaultHeaders {
		req.Header.Set(k, v)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, newTimeoutError(requestURL, c.timeout, err)
		}
		return nil, newNetworkError(requestURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newNetworkError(requestURL, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && allowRefresh {
		if handler := c.currentRefreshHandler(); handler != nil {
			token, refreshErr := handler(ctx)
			if refreshErr == nil && token != "" {
				c.SetToken(token)
				if c.debug != nil && c.debug.Enabled && c.logger != nil {
					c.logger.Debug("token refreshed, replaying request", "method", method, "endpoint", endpoint)
				}
				// Exactly one replay; a second 401 propagates as an API error.
				return c.send(ctx, method, endpoint, opts, false)
			}
		}
	}

	if resp.StatusCode >= 400 {
		var payload map[string]any
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &payload)
		}
		apiErr := newAPIError(resp.StatusCode, requestURL, payload)
		apiErr.Method = method
		return nil, apiErr
	}

	res := &Result{StatusCode: resp.StatusCode}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		res.Raw = json.RawMessage(trimmed)
	}
	return res, nil
}

// syncCacheMetrics pushes the cache size gauge and any new evictions to the
// collector.
func (c *Client) syncCacheMetrics() {
	if c.metrics == nil || c.cache == nil {
		return
	}
	stats := c.cache.Stats()
	c.metrics.RecordCacheSize("default", stats.Size)

	seen := c.seenEvictions.Swap(stats.Evictions)
	for i := seen; i < stats.Evictions; i++ {
		c.metrics.RecordCacheEviction("default")
	}
}

// normalizeError maps anything that is not already part of the error
// taxonomy onto a generic network failure so callers see a stable vocabulary.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return err
	}
	return newNetworkError("", err)
}

func cloneOptions(opts *RequestOptions) *RequestOptions {
	if opts == nil {
		return &RequestOptions{}
	}
	clone := *opts
	return &clone
}
