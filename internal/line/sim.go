package line

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"periph.io/x/periph/conn/gpio"
)

// SimWire is an in-memory open-drain line shared by simulated nodes, with a
// virtual clock. Every attached pin is a participant: virtual time only
// advances once all participants are parked in SpinUntil or Sleep, and then
// jumps straight to the earliest deadline. The result is deterministic bit
// timing regardless of host scheduling.
type SimWire struct {
	mu      sync.Mutex
	now     time.Duration
	parties int
	waiters waitHeap
	seq     uint64
	drivers int
	trace   []Transition
	tracing bool
}

// Transition records a change of the wire level at a virtual instant.
type Transition struct {
	At    time.Duration
	Level gpio.Level
}

func NewSimWire() *SimWire {
	return &SimWire{}
}

// EnableTrace starts recording level transitions.
func (w *SimWire) EnableTrace() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tracing = true
	w.trace = w.trace[:0]
}

func (w *SimWire) Trace() []Transition {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Transition, len(w.trace))
	copy(out, w.trace)
	return out
}

func (w *SimWire) Now() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now
}

// Attach adds a participant and returns its pin.
func (w *SimWire) Attach(name string) *SimPin {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.parties++
	return &SimPin{wire: w, name: name, attached: true}
}

func (w *SimWire) levelLocked() gpio.Level {
	if w.drivers > 0 {
		return gpio.Low
	}
	return gpio.High
}

func (w *SimWire) setDrivingLocked(p *SimPin, low bool) {
	if p.driving == low {
		return
	}
	before := w.levelLocked()
	p.driving = low
	if low {
		w.drivers++
	} else {
		w.drivers--
	}
	if after := w.levelLocked(); w.tracing && after != before {
		w.trace = append(w.trace, Transition{At: w.now, Level: after})
	}
}

func (w *SimWire) advanceLocked() {
	for len(w.waiters) > 0 && len(w.waiters) >= w.parties {
		if next := w.waiters[0].deadline; next > w.now {
			w.now = next
		}
		for len(w.waiters) > 0 && w.waiters[0].deadline <= w.now {
			x := heap.Pop(&w.waiters).(*waiter)
			close(x.ready)
		}
	}
}

func (w *SimWire) wait(ctx context.Context, deadline time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	if deadline <= w.now {
		w.mu.Unlock()
		return nil
	}
	w.seq++
	x := &waiter{deadline: deadline, seq: w.seq, ready: make(chan struct{})}
	heap.Push(&w.waiters, x)
	w.advanceLocked()
	w.mu.Unlock()

	select {
	case <-x.ready:
		return nil
	case <-ctx.Done():
		w.mu.Lock()
		if x.index >= 0 {
			heap.Remove(&w.waiters, x.index)
		}
		w.mu.Unlock()
		return ctx.Err()
	}
}

// SimPin is one participant's view of a SimWire. It is both its Line and
// its Clock.
type SimPin struct {
	wire     *SimWire
	name     string
	driving  bool
	attached bool
}

var (
	_ Line  = (*SimPin)(nil)
	_ Clock = (*SimPin)(nil)
)

func (p *SimPin) Name() string {
	return p.name
}

func (p *SimPin) DriveLow() error {
	p.wire.mu.Lock()
	defer p.wire.mu.Unlock()
	p.wire.setDrivingLocked(p, true)
	return nil
}

func (p *SimPin) Release() error {
	p.wire.mu.Lock()
	defer p.wire.mu.Unlock()
	p.wire.setDrivingLocked(p, false)
	return nil
}

func (p *SimPin) Read() gpio.Level {
	p.wire.mu.Lock()
	defer p.wire.mu.Unlock()
	return p.wire.levelLocked()
}

func (p *SimPin) Now() time.Duration {
	return p.wire.Now()
}

func (p *SimPin) SpinUntil(ctx context.Context, deadline time.Duration) error {
	return p.wire.wait(ctx, deadline)
}

func (p *SimPin) Sleep(ctx context.Context, d time.Duration) error {
	return p.wire.wait(ctx, p.wire.Now()+d)
}

// Detach releases the line and stops counting this pin as a participant.
func (p *SimPin) Detach() {
	w := p.wire
	w.mu.Lock()
	defer w.mu.Unlock()
	if !p.attached {
		return
	}
	p.attached = false
	w.setDrivingLocked(p, false)
	w.parties--
	w.advanceLocked()
}

type waiter struct {
	deadline time.Duration
	seq      uint64
	index    int
	ready    chan struct{}
}

type waitHeap []*waiter

func (h waitHeap) Len() int { return len(h) }

func (h waitHeap) Less(i, j int) bool {
	if h[i].deadline == h[j].deadline {
		return h[i].seq < h[j].seq
	}
	return h[i].deadline < h[j].deadline
}

func (h waitHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *waitHeap) Push(x any) {
	item := x.(*waiter)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *waitHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}
