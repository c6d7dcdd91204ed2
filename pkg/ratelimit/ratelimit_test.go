package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff_Doubles(t *testing.T) {
	b := NewBackoff(5 * time.Second)

	want := []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second}
	for n, w := range want {
		if got := b.Delay(n); got != w {
			t.Errorf("Delay(%d): expected %v, got %v", n, w, got)
		}
	}
}

func TestBackoff_ZeroFactorIsConstant(t *testing.T) {
	b := Backoff{Initial: time.Second}
	if got := b.Delay(3); got != time.Second {
		t.Errorf("expected constant delay, got %v", got)
	}
}

func TestClock_Sleep(t *testing.T) {
	start := time.Now()
	if err := (Clock{}).Sleep(context.Background(), 30*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("expected to sleep ~30ms, slept %v", elapsed)
	}
}

func TestClock_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := (Clock{}).Sleep(ctx, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("canceled sleep should return immediately")
	}
}

func TestClock_NonPositive(t *testing.T) {
	if err := (Clock{}).Sleep(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSleeperFunc(t *testing.T) {
	var got time.Duration
	s := SleeperFunc(func(ctx context.Context, d time.Duration) error {
		got = d
		return nil
	})
	_ = s.Sleep(context.Background(), 18*time.Second)
	if got != 18*time.Second {
		t.Errorf("expected 18s, got %v", got)
	}
}
