package finora

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	client := New()

	if !client.IsValid() {
		t.Fatalf("Zero-option client should be valid: %v", client.ValidationError())
	}
	if client.timeout != 30*time.Second {
		t.Errorf("Expected default 30s timeout, got %v", client.timeout)
	}
	if client.retryPolicy == nil {
		t.Error("Retries should be on by default")
	}
	if client.deduplication == nil {
		t.Error("Deduplication should be on by default")
	}
	if client.cache != nil {
		t.Error("Caching is opt-in")
	}
	if client.defaultHeaders["Content-Type"] != "application/json" {
		t.Errorf("Expected JSON content type default, got %q", client.defaultHeaders["Content-Type"])
	}
}

func TestOptionsApply(t *testing.T) {
	httpClient := &http.Client{}
	client := New(
		WithBaseURL("http://api.example.com"),
		WithHTTPClient(httpClient),
		WithTimeout(10*time.Second),
		WithToken("tok"),
		WithHeader("X-Client", "finora-cli"),
		WithCache(2*time.Minute),
		WithMaxAttempts(5),
		WithJitter(0.2),
	)

	if client.baseURL != "http://api.example.com" {
		t.Errorf("baseURL not applied: %s", client.baseURL)
	}
	if client.httpClient != httpClient {
		t.Error("httpClient not applied")
	}
	if client.timeout != 10*time.Second {
		t.Errorf("timeout not applied: %v", client.timeout)
	}
	if client.Token() != "tok" {
		t.Errorf("token not applied: %s", client.Token())
	}
	if client.defaultHeaders["X-Client"] != "finora-cli" {
		t.Error("header not applied")
	}
	if client.cache == nil || client.cacheTTL != 2*time.Minute {
		t.Error("cache not applied")
	}
	if client.retryPolicy.MaxAttempts != 5 {
		t.Errorf("max attempts not applied: %d", client.retryPolicy.MaxAttempts)
	}
	if client.retryPolicy.Jitter != 0.2 {
		t.Errorf("jitter not applied: %v", client.retryPolicy.Jitter)
	}
}

func TestWithJitterClamps(t *testing.T) {
	client := New(WithJitter(1.7))
	if client.retryPolicy.Jitter != 1.0 {
		t.Errorf("Jitter above 1 should clamp to 1, got %v", client.retryPolicy.Jitter)
	}

	client = New(WithJitter(-0.5))
	if client.retryPolicy.Jitter != 0 {
		t.Errorf("Negative jitter should clamp to 0, got %v", client.retryPolicy.Jitter)
	}
}

func TestWithRetryPolicyNilDisablesRetries(t *testing.T) {
	client := New(WithRetryPolicy(nil))
	if client.retryPolicy != nil {
		t.Error("nil policy should disable retries")
	}
	if !client.IsValid() {
		t.Errorf("Retry-free client should still validate: %v", client.ValidationError())
	}
}

func TestValidateConfigurationAggregatesProblems(t *testing.T) {
	client := New(
		WithTimeout(-time.Second),
		WithMaxAttempts(0),
		WithCustomCache(NewCache(), 0),
	)

	err := client.ValidationError()
	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrorTypeValidation {
		t.Fatalf("Expected a validation error, got %v", err)
	}

	msg := clientErr.Cause.Error()
	for _, want := range []string{"timeout", "MaxAttempts", "cacheTTL"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Validation message should mention %q: %s", want, msg)
		}
	}
}

func TestValidateConfigurationExtremeValues(t *testing.T) {
	client := New(WithTimeout(time.Hour))
	if client.IsValid() {
		t.Error("Hour-long timeout should be rejected")
	}

	client = New(WithMaxDelay(2 * time.Hour))
	if client.IsValid() {
		t.Error("MaxDelay above an hour should be rejected")
	}
}

func TestWithDebugWiresLogger(t *testing.T) {
	client := New(WithDebug())

	if client.debug == nil || !client.debug.Enabled {
		t.Fatal("Debug config should be enabled")
	}
	if client.logger == nil {
		t.Error("Debug should install a logger when none is set")
	}
	if !client.IsValid() {
		t.Errorf("Debug client should validate: %v", client.ValidationError())
	}
}

func TestWithRequestIDGenerator(t *testing.T) {
	client := New(WithRequestIDGenerator(func() string { return "fixed-id" }))

	if client.debug == nil || client.debug.RequestIDGen == nil {
		t.Fatal("Generator should be stored on the debug config")
	}
	if got := client.debug.RequestIDGen(); got != "fixed-id" {
		t.Errorf("Expected fixed-id, got %q", got)
	}
}
