package link

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/gpiolink/internal/observability"
	"github.com/danmuck/gpiolink/internal/protocol/bits"
	"github.com/danmuck/gpiolink/internal/protocol/frame"
	"github.com/danmuck/gpiolink/internal/protocol/session"
	"github.com/rs/zerolog"
)

// Wire is the bus access the engine needs. *bits.Transport implements it.
type Wire interface {
	SendByte(ctx context.Context, b byte) error
	ReadByte(ctx context.Context) (byte, error)
	Reset(ctx context.Context, hasData bool) (bits.Presence, error)
	AwaitReset(ctx context.Context) (bool, error)
	AnnouncePresence(ctx context.Context, hasData bool) error
	AwaitPeer(ctx context.Context, timeout time.Duration) error
	Settle(ctx context.Context, d time.Duration) error
	Idle(ctx context.Context, d time.Duration) error
	Release() error
}

var _ Wire = (*bits.Transport)(nil)

// Engine is one session's worker. It is the only user of the wire.
type Engine struct {
	role   Role
	wire   Wire
	outbox *session.Outbox
	inbox  *session.Inbox
	notify Notifier
	cfg    session.Config
	log    zerolog.Logger
}

func (e *Engine) Run(ctx context.Context) {
	defer func() {
		if err := e.wire.Release(); err != nil {
			e.log.Warn().Err(err).Msg("release line on exit")
		}
	}()
	e.log.Info().Msg("bus worker started")
	if e.role == RoleSlave {
		e.runSlave(ctx)
	} else {
		e.runMaster(ctx)
	}
	e.log.Info().Msg("bus worker stopped")
}

func (e *Engine) runMaster(ctx context.Context) {
	for ctx.Err() == nil {
		if e.inbox.Unread() {
			if e.wire.Idle(ctx, e.cfg.BackpressurePoll) != nil {
				return
			}
			continue
		}
		if err := e.masterCycle(ctx); err != nil {
			if isStopped(ctx, err) {
				return
			}
			e.lineError(err)
		}
		if e.wire.Idle(ctx, e.cfg.CycleDelay) != nil {
			return
		}
	}
}

func (e *Engine) masterCycle(ctx context.Context) error {
	hasData := e.outbox.Len() > 0
	presence, err := e.wire.Reset(ctx, hasData)
	if err != nil {
		return err
	}
	observability.RecordReset(e.role.String(), presence.String())
	switch presence {
	case bits.PeerHasMessage:
		return e.readMessage(ctx)
	case bits.SelfHasMessage:
		return e.sendMessage(ctx)
	default:
		return nil
	}
}

func (e *Engine) runSlave(ctx context.Context) {
	for ctx.Err() == nil {
		if e.inbox.Unread() {
			if e.wire.Idle(ctx, e.cfg.BackpressurePoll) != nil {
				return
			}
			continue
		}
		if err := e.slaveCycle(ctx); err != nil {
			if isStopped(ctx, err) {
				return
			}
			e.lineError(err)
			if e.wire.Idle(ctx, e.cfg.CycleDelay) != nil {
				return
			}
		}
	}
}

func (e *Engine) slaveCycle(ctx context.Context) error {
	masterData, err := e.wire.AwaitReset(ctx)
	if err != nil {
		return err
	}
	hasData := e.outbox.Len() > 0
	if err := e.wire.AnnouncePresence(ctx, hasData); err != nil {
		return err
	}
	switch {
	case hasData:
		return e.sendMessage(ctx)
	case masterData:
		return e.readMessage(ctx)
	default:
		return nil
	}
}

// sendMessage transmits the head of the outbox and removes it only when the
// peer answers ACK. Anything else leaves it queued for a later cycle.
func (e *Engine) sendMessage(ctx context.Context) error {
	msg, ok := e.outbox.Peek()
	if !ok {
		e.log.Debug().Msg("send slot granted with empty outbox")
		return nil
	}
	raw := frame.Encode(msg)
	for _, b := range raw {
		if err := e.wire.SendByte(ctx, b); err != nil {
			return err
		}
	}
	if err := e.wire.Settle(ctx, e.cfg.Timing.PostFrame); err != nil {
		return err
	}
	if err := e.wire.AwaitPeer(ctx, e.cfg.AckWait()); err != nil {
		if errors.Is(err, bits.ErrPeerTimeout) {
			e.unconfirmed(msg, "ack timeout")
			return nil
		}
		return err
	}
	ack, err := e.wire.ReadByte(ctx)
	if err != nil {
		return err
	}
	if ack != frame.Ack {
		e.unconfirmed(msg, "nack")
		return nil
	}
	e.outbox.Confirm(msg)
	observability.RecordFrameSent(e.role.String(), true)
	observability.SetOutboxDepth(e.outbox.Len())
	e.log.Debug().Stringer("msg", msg).Msg("frame delivered")
	return nil
}

func (e *Engine) unconfirmed(msg frame.Message, reason string) {
	observability.RecordFrameSent(e.role.String(), false)
	e.log.Debug().Stringer("msg", msg).Str("reason", reason).Msg("delivery unconfirmed, keeping message queued")
}

// readMessage receives one frame and answers ACK or NACK. A valid frame is
// only accepted while the inbox is free.
func (e *Engine) readMessage(ctx context.Context) error {
	var raw [frame.Size]byte
	for i := range raw {
		b, err := e.wire.ReadByte(ctx)
		if err != nil {
			return err
		}
		raw[i] = b
	}

	reply := frame.Nack
	stored := false
	msg, err := frame.Decode(raw[:])
	switch {
	case err != nil:
		observability.RecordFrameReceived(e.role.String(), "corrupted")
		e.log.Warn().Err(err).Hex("raw", raw[:]).Msg("corrupted frame")
	case !e.inbox.Store(msg):
		observability.RecordFrameReceived(e.role.String(), "rejected")
		e.log.Warn().Stringer("msg", msg).Msg("inbox busy, rejecting frame")
	default:
		stored = true
		reply = frame.Ack
	}

	sendErr := e.wire.Settle(ctx, e.cfg.Timing.PreAck)
	if sendErr == nil {
		sendErr = e.wire.SendByte(ctx, reply)
	}
	if stored {
		observability.RecordFrameReceived(e.role.String(), "stored")
		observability.SetInboxUnread(true)
		e.log.Debug().Stringer("msg", msg).Msg("frame received")
		e.notify.NotifyDataReady()
	}
	return sendErr
}

func (e *Engine) lineError(err error) {
	observability.RecordLineError(e.role.String())
	e.log.Warn().Err(err).Msg("bus cycle failed")
}

func isStopped(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
