package finora

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Option represents a configuration option.
type Option func(*Client)

// WithBaseURL sets the API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithToken sets the initial bearer token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithRefreshHandler registers the 401 refresh handler.
func WithRefreshHandler(handler RefreshHandler) Option {
	return func(c *Client) {
		c.refreshHandler = handler
	}
}

// WithHeader adds a default header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithCache enables response caching with the given default TTL.
func WithCache(ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = NewCache()
		c.cacheTTL = ttl
	}
}

// WithCustomCache sets a caller-owned cache instance.
func WithCustomCache(cache *Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// WithRetryPolicy sets a caller-owned retry policy. Passing nil disables
// retries entirely.
func WithRetryPolicy(policy *RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithMaxAttempts sets the total attempt budget on the default retry policy.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if c.retryPolicy != nil {
			c.retryPolicy.MaxAttempts = n
		}
	}
}

// WithInitialDelay sets the first backoff delay on the default retry policy.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Client) {
		if c.retryPolicy != nil {
			c.retryPolicy.InitialDelay = d
		}
	}
}

// WithMaxDelay caps the backoff delay on the default retry policy.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		if c.retryPolicy != nil {
			c.retryPolicy.MaxDelay = d
		}
	}
}

// WithBackoffMultiplier sets the backoff multiplier on the default retry
// policy.
func WithBackoffMultiplier(f float64) Option {
	return func(c *Client) {
		if c.retryPolicy != nil {
			c.retryPolicy.Multiplier = f
		}
	}
}

// WithJitter sets the jitter factor (0.0 to 1.0) on the default retry policy.
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		if c.retryPolicy != nil {
			c.retryPolicy.Jitter = f
		}
	}
}

// WithDeduplicationTracker sets a caller-owned deduplication tracker.
func WithDeduplicationTracker(tracker *DeduplicationTracker) Option {
	return func(c *Client) {
		c.deduplication = tracker
	}
}

// WithMetrics enables Prometheus metrics collection on the default registry.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging with the default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		if c.logger == nil {
			c.logger = NewSimpleLogger()
		}
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an
// error when invalid.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateBaseURL()...)
	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateCacheConfig()...)
	problems = append(problems, c.validateHTTPClientConfig()...)
	problems = append(problems, c.validateDebugConfig()...)
	problems = append(problems, c.validateExtremeValues()...)

	if len(problems) > 0 {
		return &ClientError{
			Type:    ErrorTypeValidation,
			Message: "configuration validation failed",
			Cause:   fmt.Errorf("validation errors: %v", problems),
		}
	}

	return nil
}

func (c *Client) validateBaseURL() []string {
	var problems []string

	if c.baseURL != "" {
		if _, err := url.Parse(c.baseURL); err != nil {
			problems = append(problems, fmt.Sprintf("baseURL is not a valid URL: %v", err))
		}
	}

	return problems
}

func (c *Client) validateRetryConfig() []string {
	var problems []string

	if c.retryPolicy != nil {
		if c.retryPolicy.MaxAttempts < 1 {
			problems = append(problems, "retry MaxAttempts must be at least 1")
		}
		if c.retryPolicy.InitialDelay <= 0 {
			problems = append(problems, "retry InitialDelay must be positive")
		}
		if c.retryPolicy.MaxDelay < c.retryPolicy.InitialDelay {
			problems = append(problems, "retry MaxDelay must be greater than or equal to InitialDelay")
		}
		if c.retryPolicy.Multiplier <= 0 {
			problems = append(problems, "retry Multiplier must be positive")
		}
		if c.retryPolicy.Jitter < 0 || c.retryPolicy.Jitter > 1 {
			problems = append(problems, "retry Jitter must be between 0 and 1")
		}
	}

	return problems
}

func (c *Client) validateCacheConfig() []string {
	var problems []string

	if c.cache != nil && c.cacheTTL <= 0 {
		problems = append(problems, "cacheTTL must be positive when cache is enabled")
	}

	return problems
}

func (c *Client) validateHTTPClientConfig() []string {
	var problems []string

	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}

	return problems
}

func (c *Client) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}

	return problems
}

func (c *Client) validateExtremeValues() []string {
	var problems []string

	if c.retryPolicy != nil {
		if c.retryPolicy.MaxAttempts > 100 {
			problems = append(problems, "retry MaxAttempts > 100 may cause excessive resource usage")
		}
		if c.retryPolicy.MaxDelay > 1*time.Hour {
			problems = append(problems, "retry MaxDelay > 1h may cause extremely long delays")
		}
	}

	if c.timeout > 10*time.Minute {
		problems = append(problems, "timeout > 10m may cause requests to hang for too long")
	}

	if c.cache != nil && c.cacheTTL > 24*time.Hour {
		problems = append(problems, "cacheTTL > 24h may cause stale data issues")
	}

	return problems
}
