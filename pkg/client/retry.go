package client

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// Retrier handles retry logic with exponential backoff.
// It is safe for concurrent use by multiple goroutines.
type Retrier struct {
	maxRetries   int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

func newRetrier(opts *Options) *Retrier {
	return &Retrier{
		maxRetries:   opts.maxRetries,
		retryWaitMin: opts.retryWaitMin,
		retryWaitMax: opts.retryWaitMax,
	}
}

// Do executes fn with retry logic. Only idempotent calls are retried;
// for anything else fn runs exactly once.
func (r *Retrier) Do(ctx context.Context, idempotent bool, fn func() error) error {
	var lastErr error

	attempts := r.maxRetries
	if !idempotent {
		attempts = 0
	}

	for attempt := 0; attempt <= attempts; attempt++ {
		// Exponential backoff before retry (skip on first attempt)
		if attempt > 0 {
			timer := time.NewTimer(r.backoff(attempt))
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !r.shouldRetry(ctx, lastErr) {
			return lastErr
		}
	}

	return lastErr
}

func (r *Retrier) shouldRetry(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	// Don't retry answers the backend gave on purpose
	if IsNotFound(err) || IsPermissionDenied(err) || errors.Is(err, ErrUnexpectedResponse) {
		return false
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.StatusCode >= 500 || serviceErr.StatusCode == 429
	}

	// Transport failure: connection refused, timeout, reset
	return true
}

func (r *Retrier) backoff(attempt int) time.Duration {
	// Cap attempt to prevent overflow
	if attempt > 10 {
		attempt = 10
	}

	// Exponential backoff with jitter
	mult := math.Pow(2, float64(attempt))
	wait := time.Duration(mult) * r.retryWaitMin

	// Add jitter (0-100% of retryWaitMin) - using math/rand/v2 (goroutine-safe)
	jitter := time.Duration(rand.Int64N(int64(r.retryWaitMin)))
	wait += jitter

	if wait > r.retryWaitMax {
		wait = r.retryWaitMax
	}

	return wait
}
