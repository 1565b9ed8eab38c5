package finora

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(serverURL string, options ...Option) *Client {
	opts := append([]Option{
		WithBaseURL(serverURL),
		WithInitialDelay(5 * time.Millisecond),
		WithMaxDelay(50 * time.Millisecond),
	}, options...)
	return New(opts...)
}

func TestClientGetDecodesJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	res, err := client.Get(context.Background(), "/health", nil)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", res.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := res.Decode(&body); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("Expected ok, got %s", body.Status)
	}
}

func TestClientNonJSONSuccessIsGenericMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("plain text"))
	}))
	defer server.Close()

	client := testClient(server.URL)

	res, err := client.Get(context.Background(), "/plain", nil)
	if err != nil {
		t.Fatalf("Non-JSON success body must not fail the call: %v", err)
	}
	if res.Raw != nil {
		t.Error("Non-JSON body should leave Raw empty")
	}
	if res.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", res.StatusCode)
	}
}

func TestClientBuildURL(t *testing.T) {
	client := New(WithBaseURL("http://api.example.com/"))

	url := client.BuildURL("/transactions", map[string]string{"type": "expense", "page": "2", "empty": ""})
	want := "http://api.example.com/transactions?page=2&type=expense"
	if url != want {
		t.Errorf("Expected %q, got %q", want, url)
	}

	url = client.BuildURL("health", nil)
	if url != "http://api.example.com/health" {
		t.Errorf("Missing leading slash should be added, got %q", url)
	}
}

func TestClientTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer server.Close()

	client := testClient(server.URL, WithTimeout(50*time.Millisecond), WithMaxAttempts(1))

	_, err := client.Get(context.Background(), "/slow", nil)
	if !IsTimeout(err) {
		t.Fatalf("Expected timeout error, got %v", err)
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Timeout != 50*time.Millisecond {
		t.Errorf("Timeout error should carry the configured duration, got %v", clientErr.Timeout)
	}
}

func TestClientAPIErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(422)
		_, _ = w.Write([]byte(`{"error":"amount must be positive","field":"amount"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.Post(context.Background(), "/transactions", map[string]string{"amount": "-1"}, nil)
	apiErr := IsAPIError(err)
	if apiErr == nil {
		t.Fatalf("Expected API error, got %v", err)
	}
	if apiErr.StatusCode != 422 {
		t.Errorf("Expected status 422, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "amount must be positive" {
		t.Errorf("Message should prefer the payload error field, got %q", apiErr.Message)
	}
	if apiErr.URL == "" {
		t.Error("API error should carry the request URL")
	}
	if apiErr.Payload["field"] != "amount" {
		t.Errorf("Payload should be preserved, got %v", apiErr.Payload)
	}
}

func TestClientRetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(503)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	res, err := client.Get(context.Background(), "/flaky", nil)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", res.StatusCode)
	}
	if hits.Load() != 3 {
		t.Errorf("Expected 3 transport calls, got %d", hits.Load())
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(404)
	}))
	defer server.Close()

	client := testClient(server.URL)

	_, err := client.Get(context.Background(), "/missing", nil)
	if apiErr := IsAPIError(err); apiErr == nil || apiErr.StatusCode != 404 {
		t.Fatalf("Expected 404 API error, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("404 must not be retried, got %d calls", hits.Load())
	}
}

func TestClientAuthHeader(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := testClient(server.URL, WithToken("abc123"))

	if _, err := client.Get(context.Background(), "/me", nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "Bearer abc123" {
		t.Errorf("Expected bearer header, got %q", gotAuth)
	}

	client.SetToken("")
	if _, err := client.Get(context.Background(), "/me", nil); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Cleared token should omit the header, got %q", gotAuth)
	}
}

func TestClientRefreshAndReplayOn401(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(401)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	var refreshes atomic.Int32
	client := testClient(server.URL, WithToken("stale-token"), WithRefreshHandler(func(ctx context.Context) (string, error) {
		refreshes.Add(1)
		return "fresh-token", nil
	}))

	res, err := client.Get(context.Background(), "/me", nil)
	if err != nil {
		t.Fatalf("Expected refresh-and-replay to succeed, got %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("Expected 200, got %d", res.StatusCode)
	}
	if refreshes.Load() != 1 {
		t.Errorf("Expected exactly 1 refresh, got %d", refreshes.Load())
	}
	if hits.Load() != 2 {
		t.Errorf("Expected original call plus one replay, got %d", hits.Load())
	}
	if client.Token() != "fresh-token" {
		t.Errorf("Refreshed token should be stored, got %q", client.Token())
	}
}

func TestClientRefreshReplayHappensOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
	}))
	defer server.Close()

	var refreshes atomic.Int32
	client := testClient(server.URL, WithRefreshHandler(func(ctx context.Context) (string, error) {
		refreshes.Add(1)
		return "still-rejected", nil
	}))

	_, err := client.Get(context.Background(), "/me", nil)
	apiErr := IsAPIError(err)
	if apiErr == nil || apiErr.StatusCode != 401 {
		t.Fatalf("Expected the second 401 to propagate, got %v", err)
	}
	if refreshes.Load() != 1 {
		t.Errorf("No further 401 recovery may be attempted, got %d refreshes", refreshes.Load())
	}
}

func TestClientCacheEndToEnd(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"transactions":[]}`))
	}))
	defer server.Close()

	client := testClient(server.URL, WithCache(time.Minute))

	opts := &RequestOptions{Params: map[string]string{"type": "expense"}, Cache: true}
	first, err := client.Get(context.Background(), "/transactions", opts)
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}

	before := client.CacheStats().Hits
	second, err := client.Get(context.Background(), "/transactions", opts)
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}

	if hits.Load() != 1 {
		t.Errorf("Second call should be served from cache, server saw %d calls", hits.Load())
	}
	if first != second {
		t.Error("Cache should return the identical result value")
	}
	if got := client.CacheStats().Hits - before; got != 1 {
		t.Errorf("Hit counter should increase by exactly 1, got %d", got)
	}
}

func TestClientForceRefreshBypassesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := testClient(server.URL, WithCache(time.Minute))

	opts := &RequestOptions{Cache: true}
	if _, err := client.Get(context.Background(), "/transactions", opts); err != nil {
		t.Fatal(err)
	}

	refreshOpts := &RequestOptions{Cache: true, ForceRefresh: true}
	if _, err := client.Get(context.Background(), "/transactions", refreshOpts); err != nil {
		t.Fatal(err)
	}

	if hits.Load() != 2 {
		t.Errorf("ForceRefresh must hit the server, got %d calls", hits.Load())
	}
}

func TestClientCacheInvalidation(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := testClient(server.URL, WithCache(time.Minute))

	opts := &RequestOptions{Cache: true}
	if _, err := client.Get(context.Background(), "/transactions", opts); err != nil {
		t.Fatal(err)
	}

	if removed := client.InvalidateCache("/transactions"); removed != 1 {
		t.Errorf("Expected 1 invalidated entry, got %d", removed)
	}

	if _, err := client.Get(context.Background(), "/transactions", opts); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("Invalidation should force a fresh fetch, got %d calls", hits.Load())
	}
}

func TestClientDeduplicatesConcurrentRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := testClient(server.URL)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = client.Get(context.Background(), "/transactions", nil)
		}(i)
	}

	// Let all five calls reach the deduplicator before the server responds.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("Request %d failed: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("Expected a single transport call, got %d", hits.Load())
	}

	stats := client.DeduplicationStats()
	if stats.Deduplicated != 4 {
		t.Errorf("Expected 4 deduplicated calls, got %d", stats.Deduplicated)
	}
}

func TestClientNormalizesUnknownErrors(t *testing.T) {
	client := New(WithBaseURL("http://127.0.0.1:1"), WithMaxAttempts(1))

	_, err := client.Get(context.Background(), "/unreachable", nil)
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("Expected a ClientError, got %T", err)
	}
	if clientErr.Type != ErrorTypeNetwork {
		t.Errorf("Expected network error type, got %s", clientErr.Type)
	}
}

func TestClientInvalidConfiguration(t *testing.T) {
	client := New(WithTimeout(-time.Second))

	if client.IsValid() {
		t.Fatal("Negative timeout should fail validation")
	}

	_, err := client.Get(context.Background(), "/x", nil)
	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrorTypeValidation {
		t.Errorf("Requests on an invalid client should fail with the validation error, got %v", err)
	}
}

func TestResultDecodeErrors(t *testing.T) {
	res := &Result{StatusCode: 200}
	var v map[string]any
	if err := res.Decode(&v); err == nil {
		t.Error("Decoding an empty result should fail")
	}

	res = &Result{StatusCode: 200, Raw: json.RawMessage(`{"a":1}`)}
	if err := res.Decode(&v); err != nil {
		t.Errorf("Decode failed: %v", err)
	}
}
