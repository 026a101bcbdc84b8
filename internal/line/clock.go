package line

import (
	"context"
	"time"
)

// SpinClock measures time from its own epoch using the runtime monotonic clock.
type SpinClock struct {
	epoch time.Time
}

var _ Clock = (*SpinClock)(nil)

func NewSpinClock() *SpinClock {
	return &SpinClock{epoch: time.Now()}
}

func (c *SpinClock) Now() time.Duration {
	return time.Since(c.epoch)
}

func (c *SpinClock) SpinUntil(ctx context.Context, deadline time.Duration) error {
	done := ctx.Done()
	for {
		select {
		case <-done:
			return ctx.Err()
		default:
		}
		if time.Since(c.epoch) >= deadline {
			return nil
		}
	}
}

func (c *SpinClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
