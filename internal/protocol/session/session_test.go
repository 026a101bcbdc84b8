package session

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/gpiolink/internal/protocol/frame"
	"github.com/danmuck/gpiolink/internal/testutil/testlog"
)

func msg(b ...byte) frame.Message {
	return frame.MustMessage(b...)
}

func TestOutboxFIFOWithReplyPriority(t *testing.T) {
	testlog.Start(t)
	o := NewOutbox()
	a, b, c := msg('A'), msg('B'), msg(frame.ReplyMarker, 'C')

	if err := o.Push(a, PriorityNormal); err != nil {
		t.Fatalf("push a: %v", err)
	}
	if err := o.Push(b, PriorityNormal); err != nil {
		t.Fatalf("push b: %v", err)
	}
	if err := o.Push(c, PriorityReply); err != nil {
		t.Fatalf("push c: %v", err)
	}

	for i, want := range []frame.Message{c, a, b} {
		got, ok := o.Pop()
		if !ok {
			t.Fatalf("pop %d: empty", i)
		}
		if got != want {
			t.Fatalf("pop %d got=%v want=%v", i, got, want)
		}
	}
	if _, ok := o.Pop(); ok {
		t.Fatalf("expected empty outbox")
	}
}

func TestOutboxBoundRejectsSixthPush(t *testing.T) {
	testlog.Start(t)
	o := NewOutbox()
	for i := 0; i < OutboxCapacity; i++ {
		if err := o.PushBack(msg(byte(i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if err := o.PushBack(msg(99)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if err := o.PushFront(msg(98)); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull on front push, got %v", err)
	}
	items := o.List()
	if len(items) != OutboxCapacity {
		t.Fatalf("unexpected len %d", len(items))
	}
	for i, m := range items {
		if m != msg(byte(i)) {
			t.Fatalf("item %d mutated: %v", i, m)
		}
	}
}

func TestOutboxWrapsAround(t *testing.T) {
	testlog.Start(t)
	o := NewOutbox()
	for round := 0; round < 3*OutboxCapacity; round++ {
		if err := o.PushBack(msg(byte(round))); err != nil {
			t.Fatalf("push %d: %v", round, err)
		}
		if err := o.PushFront(msg(0xF0, byte(round))); err != nil {
			t.Fatalf("push front %d: %v", round, err)
		}
		if got, _ := o.Pop(); got != msg(0xF0, byte(round)) {
			t.Fatalf("round %d: front got %v", round, got)
		}
		if got, _ := o.Pop(); got != msg(byte(round)) {
			t.Fatalf("round %d: back got %v", round, got)
		}
	}
	if o.Len() != 0 {
		t.Fatalf("expected empty, len=%d", o.Len())
	}
}

func TestOutboxPeekDoesNotRemove(t *testing.T) {
	testlog.Start(t)
	o := NewOutbox()
	if _, ok := o.Peek(); ok {
		t.Fatalf("peek on empty outbox must fail")
	}
	_ = o.PushBack(msg(1))
	for i := 0; i < 2; i++ {
		got, ok := o.Peek()
		if !ok || got != msg(1) {
			t.Fatalf("peek %d got=%v ok=%v", i, got, ok)
		}
	}
	if o.Len() != 1 {
		t.Fatalf("peek changed len to %d", o.Len())
	}
}

func TestOutboxConfirmSkipsLateReply(t *testing.T) {
	testlog.Start(t)
	o := NewOutbox()
	sent := msg('A')
	_ = o.PushBack(sent)
	_ = o.PushBack(msg('B'))
	reply := msg(frame.ReplyMarker, 'R')
	_ = o.PushFront(reply)

	if !o.Confirm(sent) {
		t.Fatalf("expected confirm to find the sent message")
	}
	got := o.List()
	if len(got) != 2 || got[0] != reply || got[1] != msg('B') {
		t.Fatalf("unexpected outbox after confirm: %v", got)
	}
	if o.Confirm(msg('Z')) {
		t.Fatalf("confirm of unknown message must fail")
	}
}

func TestOutboxReset(t *testing.T) {
	testlog.Start(t)
	o := NewOutbox()
	_ = o.PushBack(msg(1))
	_ = o.PushFront(msg(2))
	o.Reset()
	if o.Len() != 0 {
		t.Fatalf("expected empty after reset")
	}
	if err := o.PushBack(msg(3)); err != nil {
		t.Fatalf("push after reset: %v", err)
	}
}

func TestPriorityForMarker(t *testing.T) {
	if PriorityFor(msg(frame.ReplyMarker)) != PriorityReply {
		t.Fatalf("reply marker must map to reply priority")
	}
	if PriorityFor(msg(frame.CommandMarker)) != PriorityNormal {
		t.Fatalf("command marker must map to normal priority")
	}
}

func TestInboxBackpressure(t *testing.T) {
	testlog.Start(t)
	in := NewInbox()
	first, second := msg(1, 2, 3), msg(9)

	if !in.Store(first) {
		t.Fatalf("store into empty inbox must succeed")
	}
	if in.Store(second) {
		t.Fatalf("store must not overwrite an unread message")
	}
	if !in.Unread() {
		t.Fatalf("expected unread flag")
	}
	got, ok := in.Take()
	if !ok || got != first {
		t.Fatalf("take got=%v ok=%v", got, ok)
	}
	if _, ok := in.Take(); ok {
		t.Fatalf("second take must find nothing")
	}
	if !in.Store(second) {
		t.Fatalf("store after take must succeed")
	}
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{AckTimeout: -1}.WithDefaults()
	def := DefaultConfig()
	if cfg.Timing != def.Timing || cfg.CycleDelay != def.CycleDelay || cfg.BackpressurePoll != def.BackpressurePoll {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.AckWait() != 0 {
		t.Fatalf("negative ack timeout must wait indefinitely, got %v", cfg.AckWait())
	}
	if again := cfg.WithDefaults(); again.AckTimeout != cfg.AckTimeout {
		t.Fatalf("WithDefaults must be idempotent")
	}
	if got := (Config{}).WithDefaults().AckWait(); got != 50*time.Millisecond {
		t.Fatalf("unexpected default ack wait %v", got)
	}
}

func TestParsePriority(t *testing.T) {
	if p, ok, err := ParsePriority(" Reply "); err != nil || !ok || p != PriorityReply {
		t.Fatalf("reply: %v %v %v", p, ok, err)
	}
	if p, ok, err := ParsePriority("normal"); err != nil || !ok || p != PriorityNormal {
		t.Fatalf("normal: %v %v %v", p, ok, err)
	}
	if _, ok, err := ParsePriority(""); err != nil || ok {
		t.Fatalf("empty must defer to marker classification: ok=%v err=%v", ok, err)
	}
	if _, _, err := ParsePriority("urgent"); !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
}
