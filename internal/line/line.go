// Package line owns the physical boundary of the link.
//
// Ownership boundary:
// - open-drain line control (drive low, release, sample)
// - monotonic clock with cancellable spin waits
// - periph-backed GPIO pins and the in-process simulated wire
//
// Nothing above this package touches a pin directly.
package line

import (
	"context"
	"time"

	"periph.io/x/periph/conn/gpio"
)

// Line is one shared open-drain line. Release hands the line back to the
// pull-up; Read samples the current level.
type Line interface {
	DriveLow() error
	Release() error
	Read() gpio.Level
}

// Clock is a monotonic time source. SpinUntil busy-waits and must observe
// ctx on every iteration; Sleep may yield to the scheduler.
type Clock interface {
	Now() time.Duration
	SpinUntil(ctx context.Context, deadline time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error
}
