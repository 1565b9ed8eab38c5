package finora

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testRetryPolicy() *RetryPolicy {
	policy := NewRetryPolicy()
	policy.InitialDelay = 10 * time.Millisecond
	policy.MaxDelay = 100 * time.Millisecond
	return policy
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	policy := testRetryPolicy()

	attempts := 0
	start := time.Now()
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return newAPIError(503, "http://example.com", nil)
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Expected success on third attempt, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}

	// Delays were ~10ms then ~20ms, each jittered by at most ±10%.
	if min := 27 * time.Millisecond; elapsed < min {
		t.Errorf("Elapsed %v shorter than minimum backoff %v", elapsed, min)
	}
}

func TestRetryNonRetryableFailsImmediately(t *testing.T) {
	policy := testRetryPolicy()

	attempts := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return newAPIError(400, "http://example.com", nil)
	})

	if attempts != 1 {
		t.Errorf("Status 400 must never be retried, got %d attempts", attempts)
	}
	apiErr := IsAPIError(err)
	if apiErr == nil || apiErr.StatusCode != 400 {
		t.Errorf("Expected the 400 API error to propagate, got %v", err)
	}
}

func TestRetryExhaustsAttemptBudget(t *testing.T) {
	policy := testRetryPolicy()

	attempts := 0
	err := policy.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return newNetworkError("http://example.com", errors.New("refused"))
	})

	if attempts != policy.MaxAttempts {
		t.Errorf("Expected exactly %d total attempts, got %d", policy.MaxAttempts, attempts)
	}
	if err == nil {
		t.Fatal("Exhausted retries must propagate the last error")
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) || clientErr.Type != ErrorTypeNetwork {
		t.Errorf("Expected the last network error, got %v", err)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	policy := testRetryPolicy()
	policy.InitialDelay = time.Second
	policy.MaxDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	done := make(chan error, 1)
	go func() {
		done <- policy.Execute(ctx, func(ctx context.Context) error {
			attempts++
			return newNetworkError("http://example.com", errors.New("refused"))
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Execute did not return promptly after cancel")
	}
	if attempts != 1 {
		t.Errorf("Cancel during backoff should prevent further attempts, got %d", attempts)
	}
}

func TestRetryNotify(t *testing.T) {
	policy := testRetryPolicy()

	var notified []int
	attempts := 0
	err := policy.ExecuteNotify(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return newAPIError(429, "http://example.com", nil)
		}
		return nil
	}, func(attempt int, delay time.Duration, err error) {
		notified = append(notified, attempt)
		if delay <= 0 {
			t.Errorf("Notify got non-positive delay %v", delay)
		}
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if len(notified) != 2 || notified[0] != 0 || notified[1] != 1 {
		t.Errorf("Expected notifications for attempts [0 1], got %v", notified)
	}
}

func TestRetryDelayBounds(t *testing.T) {
	policy := NewRetryPolicy()

	for attempt := 0; attempt < 6; attempt++ {
		base := time.Duration(float64(policy.InitialDelay) * pow2(policy.Multiplier, attempt))
		if base > policy.MaxDelay {
			base = policy.MaxDelay
		}
		lower := time.Duration(float64(base) * 0.9)
		upper := time.Duration(float64(base) * 1.1)

		for i := 0; i < 50; i++ {
			delay := policy.Delay(attempt)
			if delay < lower-time.Millisecond || delay > upper+time.Millisecond {
				t.Fatalf("attempt %d: delay %v outside [%v, %v]", attempt, delay, lower, upper)
			}
			if delay != delay.Round(time.Millisecond) {
				t.Fatalf("attempt %d: delay %v not rounded to whole milliseconds", attempt, delay)
			}
		}
	}
}

func TestRetryClassifierOverride(t *testing.T) {
	policy := testRetryPolicy()
	policy.SetClassifier(func(err error) bool { return false })

	attempts := 0
	_ = policy.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return newNetworkError("", errors.New("refused"))
	})

	if attempts != 1 {
		t.Errorf("Custom classifier rejecting retries should yield 1 attempt, got %d", attempts)
	}
}

func pow2(base float64, exponent int) float64 {
	result := 1.0
	for i := 0; i < exponent; i++ {
		result *= base
	}
	return result
}
