package llm

import (
	"math/rand/v2"
	"time"
)

// RetryConfig holds retry configuration for completion requests.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts. Values below 1 mean a
	// single attempt.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// SingleAttempt returns a policy that never retries.
func SingleAttempt() RetryConfig {
	return RetryConfig{MaxAttempts: 1}
}

// DefaultRetryConfig returns the bounded retry policy used when several
// sessions share the process.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

func (r RetryConfig) attempts() int {
	if r.MaxAttempts < 1 {
		return 1
	}
	return r.MaxAttempts
}

// Backoff computes the exponential backoff before retry number attempt
// (1-based), with +/- 25% jitter.
func (r RetryConfig) Backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= r.BackoffMultiplier
	}

	backoff := time.Duration(float64(r.BackoffBase) * multiplier)
	if r.MaxBackoff > 0 && backoff > r.MaxBackoff {
		backoff = r.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
