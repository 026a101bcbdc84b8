package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danmuck/gpiolink/internal/protocol/frame"
)

const OutboxCapacity = 5

var (
	ErrQueueFull       = errors.New("session: outbox full")
	ErrInvalidPriority = errors.New("session: invalid priority")
)

// Priority selects where a message enters the outbox.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityReply
)

func (p Priority) String() string {
	if p == PriorityReply {
		return "reply"
	}
	return "normal"
}

// ParsePriority accepts "normal" and "reply". An empty string yields
// ok=false so callers can fall back to PriorityFor.
func ParsePriority(raw string) (prio Priority, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return PriorityNormal, false, nil
	case "normal":
		return PriorityNormal, true, nil
	case "reply":
		return PriorityReply, true, nil
	default:
		return PriorityNormal, false, fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
}

// PriorityFor classifies a message by its first byte.
func PriorityFor(m frame.Message) Priority {
	if m.IsReply() {
		return PriorityReply
	}
	return PriorityNormal
}

// Outbox is a bounded circular FIFO. Replies jump the line via PushFront.
type Outbox struct {
	mu    sync.Mutex
	items [OutboxCapacity]frame.Message
	first int
	count int
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) Push(m frame.Message, prio Priority) error {
	if prio == PriorityReply {
		return o.PushFront(m)
	}
	return o.PushBack(m)
}

func (o *Outbox) PushBack(m frame.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.count == OutboxCapacity {
		return ErrQueueFull
	}
	o.items[(o.first+o.count)%OutboxCapacity] = m
	o.count++
	return nil
}

func (o *Outbox) PushFront(m frame.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.count == OutboxCapacity {
		return ErrQueueFull
	}
	o.first = (o.first + OutboxCapacity - 1) % OutboxCapacity
	o.items[o.first] = m
	o.count++
	return nil
}

func (o *Outbox) Peek() (frame.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.count == 0 {
		return frame.Message{}, false
	}
	return o.items[o.first], true
}

func (o *Outbox) Pop() (frame.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.count == 0 {
		return frame.Message{}, false
	}
	m := o.items[o.first]
	o.items[o.first] = frame.Message{}
	o.first = (o.first + 1) % OutboxCapacity
	o.count--
	return m, true
}

// Confirm removes the first queued copy of m. A reply pushed to the front
// while m was on the wire stays queued.
func (o *Outbox) Confirm(m frame.Message) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := 0; i < o.count; i++ {
		if o.items[(o.first+i)%OutboxCapacity] != m {
			continue
		}
		for j := i; j > 0; j-- {
			o.items[(o.first+j)%OutboxCapacity] = o.items[(o.first+j-1)%OutboxCapacity]
		}
		o.items[o.first] = frame.Message{}
		o.first = (o.first + 1) % OutboxCapacity
		o.count--
		return true
	}
	return false
}

func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

// Reset drops every queued message.
func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = [OutboxCapacity]frame.Message{}
	o.first = 0
	o.count = 0
}

// List returns the queued messages in send order.
func (o *Outbox) List() []frame.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]frame.Message, 0, o.count)
	for i := 0; i < o.count; i++ {
		out = append(out, o.items[(o.first+i)%OutboxCapacity])
	}
	return out
}
