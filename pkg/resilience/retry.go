package resilience

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy bounds retries of an external call with exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // 0..1 fraction of the delay randomized
}

func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// NoRetry runs the call exactly once.
func NoRetry() *RetryPolicy {
	return &RetryPolicy{MaxAttempts: 1}
}

// Delay returns the backoff delay before the given attempt (1-based).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
			break
		}
	}
	if p.Jitter > 0 {
		spread := float64(delay) * p.Jitter
		delay += time.Duration(rand.Float64()*2*spread - spread)
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// Retry runs fn up to MaxAttempts times, sleeping between attempts.
// Context cancellation stops retrying and returns the context error.
func Retry(ctx context.Context, policy *RetryPolicy, fn func(ctx context.Context) error) error {
	if policy == nil {
		policy = NoRetry()
	}
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Delay(attempt)):
		}
	}
	return lastErr
}
