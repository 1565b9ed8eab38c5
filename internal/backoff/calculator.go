package backoff

import (
	"time"
)

// Calculator provides backoff calculation using a configurable strategy.
type Calculator struct {
	strategy Strategy
}

// NewCalculator creates a backoff calculator with the specified strategy.
func NewCalculator(strategy Strategy) *Calculator {
	return &Calculator{
		strategy: strategy,
	}
}

// Calculate computes the backoff duration for the given attempt and
// parameters by delegating to the configured strategy.
func (c *Calculator) Calculate(attempt int, initialDelay, maxDelay time.Duration, multiplier, jitter float64) time.Duration {
	return c.strategy.Calculate(attempt, initialDelay, maxDelay, multiplier, jitter)
}

// GetSymmetricJitterCalculator returns a calculator configured with the
// symmetric jitter strategy used by the default retry policy.
func GetSymmetricJitterCalculator() *Calculator {
	return NewCalculator(SymmetricJitterStrategy{})
}
