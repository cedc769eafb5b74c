package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestRetrier(t *testing.T) {
	tests := []struct {
		name         string
		maxRetries   int
		idempotent   bool
		returnErr    func(int) error
		wantErr      bool
		wantAttempts int
	}{
		{
			name:         "success on first attempt",
			maxRetries:   3,
			idempotent:   true,
			returnErr:    func(i int) error { return nil },
			wantErr:      false,
			wantAttempts: 1,
		},
		{
			name:       "success after retry",
			maxRetries: 3,
			idempotent: true,
			returnErr: func(i int) error {
				if i < 1 {
					return &ServiceError{Message: "test", StatusCode: 500}
				}
				return nil
			},
			wantErr:      false,
			wantAttempts: 2,
		},
		{
			name:       "fails with max retries exceeded",
			maxRetries: 2,
			idempotent: true,
			returnErr: func(i int) error {
				return &ServiceError{Message: "test", StatusCode: 503}
			},
			wantErr:      true,
			wantAttempts: 3,
		},
		{
			name:       "retry on too many requests",
			maxRetries: 3,
			idempotent: true,
			returnErr: func(i int) error {
				if i < 2 {
					return &ServiceError{Message: "slow down", StatusCode: 429}
				}
				return nil
			},
			wantErr:      false,
			wantAttempts: 3,
		},
		{
			name:       "retry on transport error",
			maxRetries: 3,
			idempotent: true,
			returnErr: func(i int) error {
				if i < 1 {
					return errors.New("connection refused")
				}
				return nil
			},
			wantErr:      false,
			wantAttempts: 2,
		},
		{
			name:       "no retry on not found",
			maxRetries: 3,
			idempotent: true,
			returnErr: func(i int) error {
				return &NotFoundError{Message: "gone"}
			},
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:       "no retry on permission denied",
			maxRetries: 3,
			idempotent: true,
			returnErr: func(i int) error {
				return &PermissionDeniedError{Message: "bad token"}
			},
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:       "no retry on client error",
			maxRetries: 3,
			idempotent: true,
			returnErr: func(i int) error {
				return &ServiceError{Message: "bad request", StatusCode: 400}
			},
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:       "no retry on undecodable reply",
			maxRetries: 3,
			idempotent: true,
			returnErr: func(i int) error {
				return fmt.Errorf("%w: decode", ErrUnexpectedResponse)
			},
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:       "no retry for writes",
			maxRetries: 3,
			idempotent: false,
			returnErr: func(i int) error {
				return &ServiceError{Message: "test", StatusCode: 500}
			},
			wantErr:      true,
			wantAttempts: 1,
		},
		{
			name:       "zero max retries",
			maxRetries: 0,
			idempotent: true,
			returnErr: func(i int) error {
				if i == 0 {
					return &ServiceError{Message: "test", StatusCode: 500}
				}
				return nil
			},
			wantErr:      true,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retrier := &Retrier{
				maxRetries:   tt.maxRetries,
				retryWaitMin: 1 * time.Millisecond,
				retryWaitMax: 5 * time.Millisecond,
			}

			attempts := 0
			err := retrier.Do(context.Background(), tt.idempotent, func() error {
				defer func() { attempts++ }()
				return tt.returnErr(attempts)
			})

			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if attempts != tt.wantAttempts {
				t.Errorf("expected %d attempts, got %d", tt.wantAttempts, attempts)
			}
		})
	}
}

// TestRetrierContextCancellation tests that retrier respects context cancellation
func TestRetrierContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	retrier := &Retrier{
		maxRetries:   5,
		retryWaitMin: 100 * time.Millisecond,
		retryWaitMax: 500 * time.Millisecond,
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := retrier.Do(ctx, true, func() error {
		return &ServiceError{Message: "test", StatusCode: 500}
	})

	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("expected context error, got: %v", err)
	}
}

// TestRetrierBackoff validates exponential backoff calculation
func TestRetrierBackoff(t *testing.T) {
	retrier := &Retrier{
		maxRetries:   10,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 60 * time.Second,
	}

	prev := time.Duration(0)
	for attempt := 1; attempt <= 5; attempt++ {
		backoff := retrier.backoff(attempt)
		if backoff <= prev || backoff > retrier.retryWaitMax {
			t.Errorf("backoff attempt %d: expected > %v and <= %v, got %v",
				attempt, prev, retrier.retryWaitMax, backoff)
		}
		prev = backoff
	}
}

// TestRetrierBackoffMax validates that backoff respects maximum
func TestRetrierBackoffMax(t *testing.T) {
	retrier := &Retrier{
		maxRetries:   10,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 10 * time.Second,
	}

	for attempt := 1; attempt <= 20; attempt++ {
		backoff := retrier.backoff(attempt)
		if backoff > retrier.retryWaitMax {
			t.Errorf("attempt %d: backoff %v exceeds max %v", attempt, backoff, retrier.retryWaitMax)
		}
	}
}
