package ratelimit

import (
	"context"
	"time"
)

// Sleeper blocks for a duration or until the context is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// Clock is the wall-clock Sleeper.
type Clock struct{}

// Sleep waits for d of real time. A non-positive d returns immediately unless
// ctx is already done.
func (Clock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Backoff is a deterministic doubling delay schedule with no jitter and no cap.
type Backoff struct {
	Initial time.Duration
	Factor  int
}

// NewBackoff returns a Backoff starting at initial and multiplying by 2.
func NewBackoff(initial time.Duration) Backoff {
	return Backoff{Initial: initial, Factor: 2}
}

// Delay returns the wait before retry n, where n counts throttled attempts
// from zero: Initial, Initial*Factor, Initial*Factor^2 ...
func (b Backoff) Delay(n int) time.Duration {
	factor := b.Factor
	if factor < 1 {
		factor = 1
	}
	d := b.Initial
	for i := 0; i < n; i++ {
		d *= time.Duration(factor)
	}
	return d
}
