package link

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/gpiolink/internal/line"
	"github.com/danmuck/gpiolink/internal/observability"
	"github.com/danmuck/gpiolink/internal/protocol/bits"
	"github.com/danmuck/gpiolink/internal/protocol/frame"
	"github.com/danmuck/gpiolink/internal/protocol/session"
	"github.com/rs/zerolog"
)

var (
	ErrSessionActive   = errors.New("link: session already active")
	ErrNoActiveSession = errors.New("link: no active session")
)

// Link is the application-facing end of the wire. Enqueue and TryTakeInbox
// may be called from any goroutine; the bus itself is only touched by the
// session worker.
type Link struct {
	wire     Wire
	cfg      session.Config
	notifier Notifier
	log      zerolog.Logger

	outbox *session.Outbox
	inbox  *session.Inbox

	mu     sync.Mutex
	role   Role
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Link)

func WithNotifier(n Notifier) Option {
	return func(l *Link) {
		if n != nil {
			l.notifier = n
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Link) {
		l.log = logger
	}
}

// New builds a link whose worker drives ln with the bus timing from cfg.
func New(ln line.Line, clock line.Clock, cfg session.Config, opts ...Option) *Link {
	cfg = cfg.WithDefaults()
	return NewWithWire(bits.New(ln, clock, cfg.Timing), cfg, opts...)
}

func NewWithWire(w Wire, cfg session.Config, opts ...Option) *Link {
	l := &Link{
		wire:     w,
		cfg:      cfg.WithDefaults(),
		notifier: nopNotifier{},
		log:      observability.Logger("link"),
		outbox:   session.NewOutbox(),
		inbox:    session.NewInbox(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start spawns the bus worker for role.
func (l *Link) Start(role Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return fmt.Errorf("%w: role=%s", ErrSessionActive, l.role)
	}

	ctx, cancel := context.WithCancel(context.Background())
	eng := &Engine{
		role:   role,
		wire:   l.wire,
		outbox: l.outbox,
		inbox:  l.inbox,
		notify: l.notifier,
		cfg:    l.cfg,
		log:    l.log.With().Str("role", role.String()).Logger(),
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()

	l.role = role
	l.cancel = cancel
	l.done = done
	return nil
}

// Stop cancels the worker, waits for it to exit and discards the outbox.
func (l *Link) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel == nil {
		return ErrNoActiveSession
	}
	l.cancel()
	<-l.done
	l.cancel = nil
	l.done = nil

	dropped := l.outbox.Len()
	l.outbox.Reset()
	observability.SetOutboxDepth(0)
	l.log.Info().Str("role", l.role.String()).Int("dropped", dropped).Msg("session stopped")
	return nil
}

func (l *Link) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// Enqueue queues msg for sending. Replies go ahead of normal messages.
func (l *Link) Enqueue(msg frame.Message, prio session.Priority) error {
	if msg.Length > frame.MaxData {
		return fmt.Errorf("%w: length %d", frame.ErrMessageTooLarge, msg.Length)
	}
	if err := l.outbox.Push(msg, prio); err != nil {
		return err
	}
	observability.SetOutboxDepth(l.outbox.Len())
	return nil
}

// Write queues p as one message, prioritizing it when it starts with the
// reply marker.
func (l *Link) Write(p []byte) (int, error) {
	msg, err := frame.NewMessage(p)
	if err != nil {
		return 0, err
	}
	if err := l.Enqueue(msg, session.PriorityFor(msg)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// TryTakeInbox returns the unread message, if any, and frees the slot.
func (l *Link) TryTakeInbox() (frame.Message, bool) {
	msg, ok := l.inbox.Take()
	if ok {
		observability.SetInboxUnread(false)
	}
	return msg, ok
}

// Status is a point-in-time view of the link.
type Status struct {
	Role        string `json:"role"`
	Active      bool   `json:"active"`
	OutboxDepth int    `json:"outbox_depth"`
	InboxUnread bool   `json:"inbox_unread"`
}

func (l *Link) Status() Status {
	l.mu.Lock()
	active := l.cancel != nil
	role := l.role
	l.mu.Unlock()

	st := Status{
		Active:      active,
		OutboxDepth: l.outbox.Len(),
		InboxUnread: l.inbox.Unread(),
	}
	if active {
		st.Role = role.String()
	}
	return st
}

// Pending returns the queued outbound messages in send order.
func (l *Link) Pending() []frame.Message {
	return l.outbox.List()
}
