// Package session tracks live conversations in memory.
//
// The Registry maps a session id to its agent, the output channel the
// connected client reads from, and a last-activity clock. Capacity is
// bounded; inserting past it evicts the least-recently-active session.
// A background sweep destroys sessions idle past the configured timeout
// and is the only thing that tears down an abandoned session: a client
// dropping its connection merely detaches the channel, so the
// conversation survives a reconnect.
//
// Lifecycle transitions publish events (session.created, evicted,
// removed, swept) on the event bus for logging and metrics.
package session
