// Package bits moves single bytes and reset/presence pulses across one
// open-drain line using fixed spin-waited windows.
package bits

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/gpiolink/internal/line"
	"periph.io/x/periph/conn/gpio"
)

var ErrPeerTimeout = errors.New("bits: peer did not pull the line low")

// Presence is the outcome of a master reset.
type Presence int

const (
	NoPresence Presence = iota
	Idle
	PeerHasMessage
	SelfHasMessage
)

func (p Presence) String() string {
	switch p {
	case NoPresence:
		return "no_presence"
	case Idle:
		return "idle"
	case PeerHasMessage:
		return "peer_has_message"
	case SelfHasMessage:
		return "self_has_message"
	default:
		return "unknown"
	}
}

// Transport is owned by exactly one worker. Waits accumulate onto a running
// deadline so per-window overhead does not drift the bit boundaries.
type Transport struct {
	line     line.Line
	clock    line.Clock
	timing   Timing
	deadline time.Duration
}

func New(l line.Line, c line.Clock, timing Timing) *Transport {
	return &Transport{line: l, clock: c, timing: timing}
}

func (t *Transport) Timing() Timing {
	return t.timing
}

func (t *Transport) mark() {
	t.deadline = t.clock.Now()
}

func (t *Transport) after(ctx context.Context, d time.Duration) error {
	t.deadline += d
	return t.clock.SpinUntil(ctx, t.deadline)
}

// pulse holds the line low for low, then releases it for high. The line is
// released even when the wait is interrupted.
func (t *Transport) pulse(ctx context.Context, low, high time.Duration) error {
	if err := t.line.DriveLow(); err != nil {
		return err
	}
	if err := t.after(ctx, low); err != nil {
		_ = t.line.Release()
		return err
	}
	if err := t.line.Release(); err != nil {
		return err
	}
	return t.after(ctx, high)
}

func (t *Transport) isLow() bool {
	return t.line.Read() == gpio.Low
}

// SendByte writes b least-significant bit first, then the inter-byte gap.
func (t *Transport) SendByte(ctx context.Context, b byte) error {
	t.mark()
	for i := 0; i < 8; i++ {
		low, high := t.timing.ZeroLow, t.timing.ZeroRelease
		if (b>>i)&0x01 == 1 {
			low, high = t.timing.OneLow, t.timing.OneRelease
		}
		if err := t.pulse(ctx, low, high); err != nil {
			return err
		}
	}
	return t.after(ctx, t.timing.ByteGap)
}

// ReadByte samples eight slots, least-significant bit first.
func (t *Transport) ReadByte(ctx context.Context) (byte, error) {
	t.mark()
	var b byte
	for i := 0; i < 8; i++ {
		if err := t.after(ctx, t.timing.SampleAt); err != nil {
			return 0, err
		}
		if !t.isLow() {
			b |= 1 << i
		}
		if err := t.after(ctx, t.timing.SampleTail); err != nil {
			return 0, err
		}
	}
	if err := t.after(ctx, t.timing.ByteGap); err != nil {
		return 0, err
	}
	return b, nil
}

// Reset runs the master side of the negotiation. A shorter low pulse tells
// the slave the master has data; the slave answers with a presence pulse and
// an optional second pulse for its own data. Peer data wins over ours.
func (t *Transport) Reset(ctx context.Context, hasData bool) (Presence, error) {
	t.mark()
	if hasData {
		if err := t.pulse(ctx, t.timing.ResetLowData, t.timing.ResetDataRelease); err != nil {
			return NoPresence, err
		}
	} else {
		if err := t.line.DriveLow(); err != nil {
			return NoPresence, err
		}
		if err := t.after(ctx, t.timing.ResetLow); err != nil {
			_ = t.line.Release()
			return NoPresence, err
		}
		if err := t.line.Release(); err != nil {
			return NoPresence, err
		}
	}
	if err := t.after(ctx, t.timing.PresenceSample); err != nil {
		return NoPresence, err
	}
	present := t.isLow()
	if err := t.after(ctx, t.timing.MessageSample); err != nil {
		return NoPresence, err
	}
	peerData := t.isLow()
	if err := t.after(ctx, t.timing.ResetTail); err != nil {
		return NoPresence, err
	}

	switch {
	case !present:
		return NoPresence, nil
	case peerData:
		return PeerHasMessage, nil
	case hasData:
		return SelfHasMessage, nil
	default:
		return Idle, nil
	}
}

// AwaitReset blocks until the master starts a reset and reports whether the
// master signalled pending data. Only a falling edge from an idle line
// counts, so a reset already in progress is skipped.
func (t *Transport) AwaitReset(ctx context.Context) (bool, error) {
	if err := t.waitLevel(ctx, gpio.High, 0); err != nil {
		return false, err
	}
	if err := t.waitLevel(ctx, gpio.Low, 0); err != nil {
		return false, err
	}
	if err := t.after(ctx, t.timing.SlaveDataSample); err != nil {
		return false, err
	}
	return !t.isLow(), nil
}

// AnnouncePresence answers a reset detected by AwaitReset. It returns at the
// instant the master finishes its reset window.
func (t *Transport) AnnouncePresence(ctx context.Context, hasData bool) error {
	if err := t.after(ctx, t.timing.PresenceDelay); err != nil {
		return err
	}
	if !hasData {
		return t.pulse(ctx, t.timing.PresencePulse, t.timing.SlaveSettle)
	}
	if err := t.pulse(ctx, t.timing.PresencePulse, t.timing.DataPulseDelay); err != nil {
		return err
	}
	return t.pulse(ctx, t.timing.DataPulse, t.timing.DataPulseTail)
}

// AwaitPeer spins until the peer pulls the line low. A zero timeout waits
// until ctx is done.
func (t *Transport) AwaitPeer(ctx context.Context, timeout time.Duration) error {
	return t.waitLevel(ctx, gpio.Low, timeout)
}

func (t *Transport) waitLevel(ctx context.Context, want gpio.Level, timeout time.Duration) error {
	start := t.clock.Now()
	for {
		if t.line.Read() == want {
			t.mark()
			return nil
		}
		now := t.clock.Now()
		if timeout > 0 && now-start >= timeout {
			return ErrPeerTimeout
		}
		if err := t.clock.SpinUntil(ctx, now+t.timing.PollInterval); err != nil {
			return err
		}
	}
}

// Settle spin-waits d from now; used for the protocol's frame-level gaps.
func (t *Transport) Settle(ctx context.Context, d time.Duration) error {
	t.mark()
	return t.after(ctx, d)
}

// Idle yields for d; used between cycles where precision does not matter.
func (t *Transport) Idle(ctx context.Context, d time.Duration) error {
	return t.clock.Sleep(ctx, d)
}

// Release hands the line back to the pull-up.
func (t *Transport) Release() error {
	return t.line.Release()
}
