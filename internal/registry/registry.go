package registry

import (
	"sync"

	"github.com/google/uuid"

	"lockstep/pkg/interfaces"
)

// Client is the registry-owned state record for one live connection: opaque
// id, identity established by the auth handshake, and current session
// membership. It references the transport; the transport knows nothing about
// it, which keeps the object graph acyclic.
type Client struct {
	id   string
	conn interfaces.Connection

	mu        sync.RWMutex
	userID    string
	role      string
	sessionID string
}

// ID returns the opaque connection identifier.
func (c *Client) ID() string { return c.id }

// UserID returns the authenticated user id, or "" before the auth handshake.
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Role returns the authenticated role, or "" before the auth handshake.
func (c *Client) Role() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// SessionID returns the session this client currently participates in, or ""
// when not joined anywhere. A client is in at most one session at a time.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// SetSession records session membership on the client.
func (c *Client) SetSession(sessionID string) {
	c.mu.Lock()
	c.sessionID = sessionID
	c.mu.Unlock()
}

// ClearSession clears session membership regardless of current value.
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.sessionID = ""
	c.mu.Unlock()
}

// Send queues a message on the client's transport.
func (c *Client) Send(v interface{}) error {
	return c.conn.WriteJSON(v)
}

// Open reports whether the client's transport is still writable.
func (c *Client) Open() bool {
	return c.conn.IsOpen()
}

// Registry tracks every live connection and its identity attributes. It
// references clients for routing lookups but never owns transport
// deallocation; that stays with the gateway.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string]*Client
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
		byUser:  make(map[string]*Client),
	}
}

// Admit registers a freshly accepted transport in an unauthenticated state
// and returns its state record.
func (r *Registry) Admit(conn interfaces.Connection) *Client {
	client := &Client{
		id:   uuid.New().String(),
		conn: conn,
	}

	r.mu.Lock()
	r.clients[client] = struct{}{}
	r.mu.Unlock()

	return client
}

// Identify binds an authenticated identity to the client. Calling it again
// rebinds: last write wins, both on the client record and in the user lookup.
// Identifying an already-removed client is a silent no-op.
func (r *Registry) Identify(client *Client, userID, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, admitted := r.clients[client]; !admitted {
		return
	}

	client.mu.Lock()
	previous := client.userID
	client.userID = userID
	client.role = role
	client.mu.Unlock()

	if previous != "" && previous != userID && r.byUser[previous] == client {
		delete(r.byUser, previous)
	}
	r.byUser[userID] = client
}

// Remove drops a client from the registry. Safe for clients that were never
// identified, never joined a session, or were already removed; races between
// disconnect and in-flight messages resolve to a no-op here. The user lookup
// is only cleared when it still points at this exact client, so an old
// connection can never deregister a newer one for the same user.
func (r *Registry) Remove(client *Client) {
	if client == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, admitted := r.clients[client]; !admitted {
		return
	}
	delete(r.clients, client)

	if userID := client.UserID(); userID != "" && r.byUser[userID] == client {
		delete(r.byUser, userID)
	}
}

// UserClient returns the current connection for an identified user.
func (r *Registry) UserClient(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.byUser[userID]
	return client, ok
}

// Stats returns registry counters for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections":      len(r.clients),
		"identified_connections": len(r.byUser),
	}
}
