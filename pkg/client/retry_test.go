package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryConfigFor(t *testing.T) {
	tests := []struct {
		name         string
		maxRetries   int
		backoff      time.Duration
		wantAttempts int
		wantInitial  time.Duration
	}{
		{name: "no retries", maxRetries: 0, backoff: time.Second, wantAttempts: 1, wantInitial: time.Second},
		{name: "two retries", maxRetries: 2, backoff: 50 * time.Millisecond, wantAttempts: 3, wantInitial: 50 * time.Millisecond},
		{name: "negative is clamped", maxRetries: -3, backoff: 0, wantAttempts: 1, wantInitial: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RetryConfigFor(tt.maxRetries, tt.backoff)
			if cfg.MaxAttempts != tt.wantAttempts {
				t.Errorf("MaxAttempts = %d, want %d", cfg.MaxAttempts, tt.wantAttempts)
			}
			if cfg.InitialBackoff != tt.wantInitial {
				t.Errorf("InitialBackoff = %v, want %v", cfg.InitialBackoff, tt.wantInitial)
			}
			if cfg.BackoffMultiplier != 2.0 {
				t.Errorf("BackoffMultiplier = %v, want 2.0", cfg.BackoffMultiplier)
			}
		})
	}
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_SuccessAfterRetry(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return &APIError{StatusCode: 503, ErrorClass: ErrorClassServer}
		}
		return nil
	})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoff_Exhausted(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return &APIError{StatusCode: 500, ErrorClass: ErrorClassServer}
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("error = %v, want ErrRetryExhausted", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Errorf("exhausted error should wrap the last APIError, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryWithBackoff_SingleAttemptReturnsCause(t *testing.T) {
	calls := 0
	cause := &APIError{StatusCode: 500, ErrorClass: ErrorClassServer}
	err := retryWithBackoff(context.Background(), fastRetry(1), func() error {
		calls++
		return cause
	})

	if err != cause {
		t.Errorf("error = %v, want the original cause", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return &APIError{StatusCode: 400, ErrorClass: ErrorClassClient}
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_UnclassifiedNotRetried(t *testing.T) {
	calls := 0
	_ = retryWithBackoff(context.Background(), fastRetry(3), func() error {
		calls++
		return context.Canceled
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second, BackoffMultiplier: 1}

	calls := 0
	err := retryWithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return &APIError{ErrorClass: ErrorClassNetwork}
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
