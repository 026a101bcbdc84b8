package session

import (
	"sync"

	"github.com/danmuck/gpiolink/internal/protocol/frame"
)

// Inbox holds the last received message until the application takes it.
type Inbox struct {
	mu     sync.Mutex
	msg    frame.Message
	unread bool
}

func NewInbox() *Inbox {
	return &Inbox{}
}

func (i *Inbox) Unread() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unread
}

// Store keeps m and marks it unread. It refuses to overwrite an unread message.
func (i *Inbox) Store(m frame.Message) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.unread {
		return false
	}
	i.msg = m
	i.unread = true
	return true
}

// Take returns the unread message and clears the flag.
func (i *Inbox) Take() (frame.Message, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.unread {
		return frame.Message{}, false
	}
	i.unread = false
	return i.msg, true
}
