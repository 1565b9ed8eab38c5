package finora

import (
	"context"
	"time"

	internalbackoff "github.com/YoussefDawod/finora-smart-finance-sub003/internal/backoff"
)

// Default retry policy parameters.
const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMultiplier   = 2.0
	DefaultJitter       = 0.1
)

// Operation is a fallible unit of work executed under a retry policy.
type Operation func(ctx context.Context) error

// RetryNotify is invoked before each retry sleep with the zero-based attempt
// number that just failed, the chosen delay, and the error.
type RetryNotify func(attempt int, delay time.Duration, err error)

// RetryPolicy retries an Operation on transient failures with capped
// exponential backoff and symmetric jitter. MaxAttempts counts total
// attempts, not retries on top of the first call.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64

	calculator *internalbackoff.Calculator
	classify   func(error) bool
	logger     Logger
}

// NewRetryPolicy creates a retry policy with the default parameters and the
// IsRetryable error classification.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  DefaultMaxAttempts,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Multiplier:   DefaultMultiplier,
		Jitter:       DefaultJitter,
		calculator:   internalbackoff.GetSymmetricJitterCalculator(),
		classify:     IsRetryable,
	}
}

// SetLogger attaches a logger used to emit a warning per retry.
func (p *RetryPolicy) SetLogger(logger Logger) {
	p.logger = logger
}

// SetClassifier overrides the error classification function.
func (p *RetryPolicy) SetClassifier(fn func(error) bool) {
	if fn != nil {
		p.classify = fn
	}
}

// Delay returns the backoff duration for the given zero-based attempt.
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	calc := p.calculator
	if calc == nil {
		calc = internalbackoff.GetSymmetricJitterCalculator()
	}
	return calc.Calculate(attempt, p.InitialDelay, p.MaxDelay, p.Multiplier, p.Jitter)
}

// Execute runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is exhausted. The last error is returned unchanged.
func (p *RetryPolicy) Execute(ctx context.Context, fn Operation) error {
	return p.ExecuteNotify(ctx, fn, nil)
}

// ExecuteNotify is Execute with a per-retry callback.
func (p *RetryPolicy) ExecuteNotify(ctx context.Context, fn Operation, notify RetryNotify) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	classify := p.classify
	if classify == nil {
		classify = IsRetryable
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !classify(lastErr) || attempt == maxAttempts-1 {
			return lastErr
		}

		delay := p.Delay(attempt)
		if p.logger != nil {
			p.logger.Warn("retrying after transient failure",
				"attempt", attempt+1, "maxAttempts", maxAttempts, "delay", delay, "error", lastErr)
		}
		if notify != nil {
			notify(attempt, delay, lastErr)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
