package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/danmuck/gpiolink/internal/link"
	"github.com/danmuck/gpiolink/internal/protocol/frame"
	"github.com/danmuck/gpiolink/internal/testutil/testlog"
)

func TestEchoReply(t *testing.T) {
	got := echoReply(frame.MustMessage(1, 2, 3))
	if !got.IsReply() || !bytes.Equal(got.Bytes(), []byte{frame.ReplyMarker, 1, 2, 3}) {
		t.Fatalf("unexpected reply %v", got)
	}
	full := echoReply(frame.MustMessage(0, 1, 2, 3, 4, 5, 6, 7, 8, 9))
	if full.Length != frame.MaxData || full.Payload[frame.MaxData-1] != 8 {
		t.Fatalf("reply must be truncated to fit, got %v", full)
	}
}

func TestSimulatedPeerEchoesMessages(t *testing.T) {
	testlog.Start(t)
	cfg := defaultServiceConfig()
	cfg.Simulate = true

	ready := link.NewChanNotifier()
	l, release, err := buildLink(cfg, ready)
	if err != nil {
		t.Fatalf("build link: %v", err)
	}
	if err := l.Start(cfg.Role); err != nil {
		release()
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		_ = l.Stop()
		release()
	})

	if _, err := l.Write([]byte{0xBB, 0x01}); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-ready.C:
	case <-time.After(20 * time.Second):
		t.Fatalf("no echo received")
	}
	msg, ok := l.TryTakeInbox()
	if !ok {
		t.Fatalf("notifier fired without a message")
	}
	if !bytes.Equal(msg.Bytes(), []byte{frame.ReplyMarker, 0xBB, 0x01}) {
		t.Fatalf("unexpected echo %v", msg)
	}
}

func TestSimulatedPeerResumesAfterLocalRestart(t *testing.T) {
	testlog.Start(t)
	cfg := defaultServiceConfig()
	cfg.Simulate = true

	ready := link.NewChanNotifier()
	l, release, err := buildLink(cfg, ready)
	if err != nil {
		t.Fatalf("build link: %v", err)
	}
	t.Cleanup(func() {
		if l.Active() {
			_ = l.Stop()
		}
		release()
	})

	if err := l.Start(cfg.Role); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := l.Start(cfg.Role); err != nil {
		t.Fatalf("restart: %v", err)
	}

	if _, err := l.Write([]byte{0x07}); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case <-ready.C:
	case <-time.After(20 * time.Second):
		t.Fatalf("peer did not answer after restart")
	}
	msg, ok := l.TryTakeInbox()
	if !ok || !bytes.Equal(msg.Bytes(), []byte{frame.ReplyMarker, 0x07}) {
		t.Fatalf("unexpected echo after restart: %v ok=%v", msg, ok)
	}
}
