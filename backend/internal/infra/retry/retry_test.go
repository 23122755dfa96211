package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastOptions(maxAttempts int) Options {
	return Options{
		MaxAttempts: maxAttempts,
		Delays:      []time.Duration{time.Millisecond, 2 * time.Millisecond},
	}
}

func TestRetryReturnsFirstSuccess(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", fmt.Errorf("attempt %d failed", calls)
		}
		return "ok", nil
	}, fastOptions(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected ok, got %q", result)
	}
	if calls != 3 {
		t.Fatalf("expected 3 invocations, got %d", calls)
	}
}

func TestRetryNoRetryAfterSuccess(t *testing.T) {
	calls := 0
	if _, err := Do(context.Background(), func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}, fastOptions(4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single invocation, got %d", calls)
	}
}

func TestRetryExhaustedReturnsLastErrorUnchanged(t *testing.T) {
	lastErr := errors.New("final failure")
	calls := 0
	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 4 {
			return "", lastErr
		}
		return "", fmt.Errorf("attempt %d failed", calls)
	}, fastOptions(4))
	if calls != 4 {
		t.Fatalf("expected 4 invocations, got %d", calls)
	}
	if err != lastErr {
		t.Fatalf("expected last error returned unchanged, got %v", err)
	}
}

func TestRetryReusesLastDelayBeyondSchedule(t *testing.T) {
	var waits []time.Duration
	opts := Options{
		MaxAttempts: 5,
		Delays:      []time.Duration{time.Millisecond, 2 * time.Millisecond},
		OnRetry: func(attempt int, wait time.Duration, err error) {
			waits = append(waits, wait)
		},
	}

	_, err := Do(context.Background(), func(ctx context.Context) (string, error) {
		return "", errors.New("always failing")
	}, opts)
	if err == nil {
		t.Fatal("expected error")
	}

	expected := []time.Duration{time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond, 2 * time.Millisecond}
	if len(waits) != len(expected) {
		t.Fatalf("expected %d retries, got %d", len(expected), len(waits))
	}
	for i, wait := range waits {
		if wait != expected[i] {
			t.Fatalf("retry %d: expected wait %v, got %v", i+1, expected[i], wait)
		}
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Do(ctx, func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", errors.New("failing")
	}, Options{MaxAttempts: 4, Delays: []time.Duration{time.Hour}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected wait to abort after first attempt, got %d calls", calls)
	}
}
