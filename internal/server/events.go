package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/danmuck/gpiolink/internal/link"
	"github.com/danmuck/gpiolink/internal/observability"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	EventDataReady = "data_ready"

	eventBuffer = 8
	writeWait   = 2 * time.Second
)

var ErrSubscriberActive = errors.New("server: event subscriber already registered")

type Event struct {
	Event string `json:"event"`
}

// EventHub forwards data-ready notifications to at most one websocket
// subscriber. Notifications with nobody listening are dropped.
type EventHub struct {
	mu     sync.Mutex
	busy   bool
	sub    *subscriber
	closed bool
	log    zerolog.Logger

	upgrader websocket.Upgrader
}

var _ link.Notifier = (*EventHub)(nil)

func NewEventHub() *EventHub {
	return &EventHub{
		log: observability.Logger("events"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}
}

func (h *EventHub) NotifyDataReady() {
	h.mu.Lock()
	sub := h.sub
	h.mu.Unlock()
	if sub != nil {
		sub.trySend(Event{Event: EventDataReady})
	}
}

func (h *EventHub) Subscribed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sub != nil
}

// ServeWS upgrades the request and holds the connection until the client
// goes away. A second concurrent subscriber is refused with 409.
func (h *EventHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	if err := h.reserve(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release(nil)
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	sub := &subscriber{conn: conn, send: make(chan Event, eventBuffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		h.release(nil)
		return
	}
	h.sub = sub
	h.mu.Unlock()
	h.log.Info().Str("remote", r.RemoteAddr).Msg("event subscriber registered")

	go sub.writeLoop()
	sub.readLoop()

	sub.close()
	h.release(sub)
	h.log.Info().Str("remote", r.RemoteAddr).Msg("event subscriber left")
}

// Close disconnects the subscriber and refuses new ones.
func (h *EventHub) Close() {
	h.mu.Lock()
	h.closed = true
	sub := h.sub
	h.mu.Unlock()
	if sub != nil {
		sub.close()
	}
}

func (h *EventHub) reserve() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("server: event hub closed")
	}
	if h.busy {
		return ErrSubscriberActive
	}
	h.busy = true
	return nil
}

func (h *EventHub) release(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub != nil && h.sub != sub {
		return
	}
	h.sub = nil
	h.busy = false
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event

	mu     sync.Mutex
	closed bool
}

// readLoop drains client frames so close and ping are processed.
func (s *subscriber) readLoop() {
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *subscriber) writeLoop() {
	for ev := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteJSON(ev); err != nil {
			s.close()
			return
		}
	}
}

func (s *subscriber) trySend(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.send <- ev:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
	_ = s.conn.Close()
}
