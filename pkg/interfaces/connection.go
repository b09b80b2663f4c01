package interfaces

// Connection is a live bidirectional transport endpoint for one client. It is
// a pure I/O capability: identity and session state live in the registry's
// per-connection record, never on the transport itself.
type Connection interface {
	// WriteJSON queues a JSON message for delivery (thread-safe,
	// non-blocking). A full buffer or closed connection drops the message
	// and returns an error; callers treat that as a skipped peer, not a
	// failure.
	WriteJSON(v interface{}) error

	// IsOpen reports whether the connection is still writable. A peer that
	// is not open at send time is skipped by broadcasts and reconciled by
	// disconnect cleanup.
	IsOpen() bool

	// Close closes the connection and releases its writer goroutine. Safe
	// to call more than once.
	Close() error
}
