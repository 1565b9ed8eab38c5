package finora

import (
	"os"
	"strconv"
	"time"
)

// Config holds externally supplied configuration. Values come from the
// FINORA_* environment variables with sensible defaults, mirroring the
// settings the hosted frontends receive from their build environment.
type Config struct {
	BaseURL string
	Timeout time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration

	// Feature flags.
	EnableStatistics bool
	EnableBulkDelete bool
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:5000/api",
		Timeout:          30 * time.Second,
		CacheEnabled:     true,
		CacheTTL:         5 * time.Minute,
		EnableStatistics: true,
		EnableBulkDelete: false,
	}
}

// LoadConfig reads configuration from the environment on top of the
// defaults. Unparseable values fall back to the default.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("FINORA_API_URL"); v != "" {
		cfg.BaseURL = v
	}
	if d, ok := envDuration("FINORA_TIMEOUT"); ok {
		cfg.Timeout = d
	}
	if b, ok := envBool("FINORA_CACHE_ENABLED"); ok {
		cfg.CacheEnabled = b
	}
	if d, ok := envDuration("FINORA_CACHE_TTL"); ok {
		cfg.CacheTTL = d
	}
	if b, ok := envBool("FINORA_ENABLE_STATISTICS"); ok {
		cfg.EnableStatistics = b
	}
	if b, ok := envBool("FINORA_ENABLE_BULK_DELETE"); ok {
		cfg.EnableBulkDelete = b
	}

	return cfg
}

// ClientOptions converts the config into client construction options.
func (cfg Config) ClientOptions() []Option {
	opts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.Timeout),
	}
	if cfg.CacheEnabled {
		opts = append(opts, WithCache(cfg.CacheTTL))
	}
	return opts
}

// envDuration parses a duration value; plain integers are taken as
// milliseconds, matching the frontend configuration convention.
func envDuration(name string) (time.Duration, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond, true
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}

func envBool(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
