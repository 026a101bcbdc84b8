// Package session owns the per-link message state shared between the
// application and the bus worker.
//
// Ownership boundary:
// - outbound priority queue (outbox)
// - single-message inbox slot
// - engine timing and retry defaults
//
// Outbox and Inbox each carry their own lock; neither is ever held across a
// bus wait.
package session
