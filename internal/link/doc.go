// Package link owns the protocol engine for one end of the wire.
//
// Ownership boundary:
// - session lifecycle (one worker at a time)
// - master and slave polling loops
// - frame send/receive with ACK/NACK handling
// - data-ready notification
//
// Lifecycle order:
// - New -> Start(role) -> Enqueue/Write/TryTakeInbox -> Stop
//
// - Stop discards the outbox; the inbox keeps its unread message.
package link
