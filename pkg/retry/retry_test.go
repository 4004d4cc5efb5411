package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

var (
	errTestError      = errors.New("test error")
	errNonRetryable  = errors.New("non-retryable error")
	errRetryable      = errors.New("retryable error")
)

func TestRetry_SuccessOnFirstAttempt(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}

	attempts := 0
	fn := func() error {
		attempts++
		return nil
	}

	ctx := context.Background()
	err := Retry(ctx, cfg, fn)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestRetry_SuccessAfterRetries(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}

	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return errTestError
		}
		return nil
	}

	ctx := context.Background()
	err := Retry(ctx, cfg, fn)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestRetry_MaxAttemptsExceeded(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		MaxAttempts:  2,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}

	attempts := 0
	fn := func() error {
		attempts++
		return errTestError
	}

	ctx := context.Background()
	err := Retry(ctx, cfg, fn)

	if err == nil {
		t.Error("Expected error after max attempts, got nil")
	}
	if attempts != 3 { // MaxAttempts + 1 (initial attempt)
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestRetry_Disabled(t *testing.T) {
	cfg := Config{
		Enabled: false,
	}

	attempts := 0
	fn := func() error {
		attempts++
		return errTestError
	}

	ctx := context.Background()
	err := Retry(ctx, cfg, fn)

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (no retry), got: %d", attempts)
	}
}

func TestRetry_ContextCancellation(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		MaxAttempts:  5,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}

	attempts := 0
	fn := func() error {
		attempts++
		return errTestError
	}

	ctx, cancel := context.WithCancel(context.Background())
	// Don't cancel immediately - let first attempt run
	// Cancel during delay
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Retry(ctx, cfg, fn)

	if err == nil {
		t.Error("Expected error due to context cancellation, got nil")
	}
	// Should have at least attempted once before cancellation
	if attempts < 1 {
		t.Errorf("Expected at least 1 attempt before cancellation, got: %d", attempts)
	}
}

func TestRetry_NonRetryableError(t *testing.T) {
	cfg := Config{
		Enabled:           true,
		MaxAttempts:       3,
		InitialDelay:      10 * time.Millisecond,
		MaxDelay:          100 * time.Millisecond,
		Multiplier:        2.0,
		Jitter:            false,
		NonRetryableErrors: []error{errNonRetryable},
	}

	attempts := 0
	fn := func() error {
		attempts++
		return errNonRetryable
	}

	ctx := context.Background()
	err := Retry(ctx, cfg, fn)

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt (non-retryable), got: %d", attempts)
	}
}

func TestRetry_RetryableErrorList(t *testing.T) {
	cfg := Config{
		Enabled:         true,
		MaxAttempts:     3,
		InitialDelay:    10 * time.Millisecond,
		MaxDelay:        100 * time.Millisecond,
		Multiplier:      2.0,
		Jitter:          false,
		RetryableErrors: []error{errRetryable},
	}

	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 2 {
			return errRetryable
		}
		return nil
	}

	ctx := context.Background()
	err := Retry(ctx, cfg, fn)

	if err != nil {
		t.Errorf("Expected success, got: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got: %d", attempts)
	}
}

func TestRetry_ErrorNotInRetryableList(t *testing.T) {
	cfg := Config{
		Enabled:         true,
		MaxAttempts:     3,
		InitialDelay:    10 * time.Millisecond,
		MaxDelay:        100 * time.Millisecond,
		Multiplier:      2.0,
		Jitter:          false,
		RetryableErrors: []error{errRetryable},
	}

	attempts := 0
	fn := func() error {
		attempts++
		return errTestError // Not in retryable list
	}

	ctx := context.Background()
	err := Retry(ctx, cfg, fn)

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt for an error outside the retryable list, got: %d", attempts)
	}
}

func TestRetry_NonRetryableMatchesWrappedErrors(t *testing.T) {
	cfg := Fixed(time.Millisecond, 3)
	cfg.NonRetryableErrors = []error{errNonRetryable}

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return fmt.Errorf("manifest: %w", errNonRetryable)
	})

	if !errors.Is(err, errNonRetryable) {
		t.Errorf("Expected wrapped non-retryable error, got: %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestFixed_SingleRetryAfterDelay(t *testing.T) {
	cfg := Fixed(20*time.Millisecond, 1)

	attempts := 0
	start := time.Now()
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return errTestError
	})

	if err == nil {
		t.Fatal("Expected error after exhausting the single retry")
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts (initial + one retry), got: %d", attempts)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Expected at least one fixed delay, elapsed %v", elapsed)
	}
	if d := calculateDelay(cfg, 5); d != 20*time.Millisecond {
		t.Errorf("Fixed policy delay should not grow, got %v", d)
	}
}

func TestRetryWithResult_Success(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}

	attempts := 0
	fn := func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errTestError
		}
		return "success", nil
	}

	ctx := context.Background()
	result, err := RetryWithResult(ctx, cfg, fn)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if result != "success" {
		t.Errorf("Expected 'success', got: %s", result)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got: %d", attempts)
	}
}

func TestRetryWithResult_Failure(t *testing.T) {
	cfg := Config{
		Enabled:      true,
		MaxAttempts:  2,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       false,
	}

	attempts := 0
	fn := func() (int, error) {
		attempts++
		return 0, errTestError
	}

	ctx := context.Background()
	result, err := RetryWithResult(ctx, cfg, fn)

	if err == nil {
		t.Error("Expected error, got nil")
	}
	if result != 0 {
		t.Errorf("Expected zero value, got: %d", result)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got: %d", attempts)
	}
}

func TestRetryWithResult_Disabled(t *testing.T) {
	cfg := Config{
		Enabled: false,
	}

	attempts := 0
	fn := func() (bool, error) {
		attempts++
		return true, nil
	}

	ctx := context.Background()
	result, err := RetryWithResult(ctx, cfg, fn)

	if err != nil {
		t.Errorf("Expected no error, got: %v", err)
	}
	if !result {
		t.Error("Expected true, got false")
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got: %d", attempts)
	}
}

func TestCalculateDelay_ExponentialBackoff(t *testing.T) {
	cfg := Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	// First attempt delay should be initial delay
	delay1 := calculateDelay(cfg, 0)
	if delay1 != 100*time.Millisecond {
		t.Errorf("Expected 100ms, got: %v", delay1)
	}

	// Second attempt should be doubled
	delay2 := calculateDelay(cfg, 1)
	if delay2 != 200*time.Millisecond {
		t.Errorf("Expected 200ms, got: %v", delay2)
	}

	// Third attempt should be quadrupled
	delay3 := calculateDelay(cfg, 2)
	if delay3 != 400*time.Millisecond {
		t.Errorf("Expected 400ms, got: %v", delay3)
	}
}

func TestCalculateDelay_MaxDelayCap(t *testing.T) {
	cfg := Config{
		InitialDelay: 1 * time.Second,
		MaxDelay:     2 * time.Second,
		Multiplier:   2.0,
		Jitter:       false,
	}

	// Delay should be capped at MaxDelay
	delay := calculateDelay(cfg, 5) // Would be 32 seconds without cap
	if delay > cfg.MaxDelay {
		t.Errorf("Expected delay <= %v, got: %v", cfg.MaxDelay, delay)
	}
}

func TestCalculateDelay_WithJitter(t *testing.T) {
	cfg := Config{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}

	// Run multiple times to check jitter variation
	delays := make([]time.Duration, 10)
	for i := 0; i < 10; i++ {
		delays[i] = calculateDelay(cfg, 1)
	}

	// All delays should be within reasonable range (±25% jitter)
	baseDelay := 200 * time.Millisecond
	minDelay := baseDelay - baseDelay/4
	maxDelay := baseDelay + baseDelay/4

	for i, delay := range delays {
		if delay < minDelay || delay > maxDelay {
			t.Errorf("Delay %d out of range: got %v, expected between %v and %v", i, delay, minDelay, maxDelay)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Enabled {
		t.Error("Expected Enabled to be true")
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("Expected MaxAttempts to be 3, got: %d", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != 100*time.Millisecond {
		t.Errorf("Expected InitialDelay to be 100ms, got: %v", cfg.InitialDelay)
	}
	if cfg.MaxDelay != 5*time.Second {
		t.Errorf("Expected MaxDelay to be 5s, got: %v", cfg.MaxDelay)
	}
	if cfg.Multiplier != 2.0 {
		t.Errorf("Expected Multiplier to be 2.0, got: %f", cfg.Multiplier)
	}
	if !cfg.Jitter {
		t.Error("Expected Jitter to be true")
	}
}

