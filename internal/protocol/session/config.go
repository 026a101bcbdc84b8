package session

import (
	"time"

	"github.com/danmuck/gpiolink/internal/protocol/bits"
)

// Config defines engine pacing on top of the bus timing.
type Config struct {
	Timing           bits.Timing
	CycleDelay       time.Duration
	AckTimeout       time.Duration
	BackpressurePoll time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timing:           bits.DefaultTiming(),
		CycleDelay:       10 * time.Millisecond,
		AckTimeout:       50 * time.Millisecond,
		BackpressurePoll: time.Millisecond,
	}
}

// WithDefaults fills zero pacing values. A negative AckTimeout is kept and
// means the sender waits for the ack until cancelled.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Timing == (bits.Timing{}) {
		c.Timing = def.Timing
	}
	if c.CycleDelay <= 0 {
		c.CycleDelay = def.CycleDelay
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = def.AckTimeout
	}
	if c.BackpressurePoll <= 0 {
		c.BackpressurePoll = def.BackpressurePoll
	}
	return c
}

// AckWait is the timeout handed to the transport; zero waits indefinitely.
func (c Config) AckWait() time.Duration {
	if c.AckTimeout < 0 {
		return 0
	}
	return c.AckTimeout
}
