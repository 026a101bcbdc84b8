package main

import (
	"sync"

	"github.com/danmuck/gpiolink/internal/line"
	"github.com/danmuck/gpiolink/internal/link"
	"github.com/danmuck/gpiolink/internal/observability"
	"github.com/danmuck/gpiolink/internal/protocol/frame"
	"github.com/rs/zerolog"
)

// echoPeer is the far end of a simulated wire. It answers every message it
// receives with a reply carrying the same bytes.
type echoPeer struct {
	link  *link.Link
	pin   *line.SimPin
	ready *link.ChanNotifier
	log   zerolog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// startSimulatedPeer attaches both ends to a fresh simulated wire, starts
// the peer in the opposite role and returns the local end.
func startSimulatedPeer(cfg serviceConfig) (*line.SimPin, *echoPeer, error) {
	wire := line.NewSimWire()
	local := wire.Attach("local")
	peerPin := wire.Attach("peer")

	ready := link.NewChanNotifier()
	logger := observability.Logger("sim-peer")
	p := &echoPeer{
		link:  link.New(peerPin, peerPin, cfg.Session, link.WithNotifier(ready), link.WithLogger(logger)),
		pin:   peerPin,
		ready: ready,
		log:   logger,
		stop:  make(chan struct{}),
	}
	if err := p.link.Start(cfg.Role.Peer()); err != nil {
		local.Detach()
		peerPin.Detach()
		return nil, nil, err
	}

	p.wg.Add(1)
	go p.loop()
	return local, p, nil
}

func (p *echoPeer) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case <-p.ready.C:
		}
		for {
			msg, ok := p.link.TryTakeInbox()
			if !ok {
				break
			}
			reply := echoReply(msg)
			if _, err := p.link.Write(reply.Bytes()); err != nil {
				p.log.Warn().Err(err).Stringer("msg", msg).Msg("echo dropped")
				continue
			}
			p.log.Debug().Stringer("reply", reply).Msg("echo queued")
		}
	}
}

// echoReply prefixes the payload with the reply marker, truncating to fit.
func echoReply(msg frame.Message) frame.Message {
	data := append([]byte{frame.ReplyMarker}, msg.Bytes()...)
	if len(data) > frame.MaxData {
		data = data[:frame.MaxData]
	}
	return frame.MustMessage(data...)
}

func (p *echoPeer) Close() {
	p.once.Do(func() {
		close(p.stop)
		p.wg.Wait()
		if err := p.link.Stop(); err != nil {
			p.log.Warn().Err(err).Msg("stop sim peer")
		}
		p.pin.Detach()
	})
}
