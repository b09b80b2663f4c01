package directory

import (
	"log"
	"sync"

	"lockstep/pkg/types"
)

// Peer is a session participant from the directory's point of view: something
// that can receive a fan-out message. The registry's Client satisfies it.
type Peer interface {
	Send(v interface{}) error
	Open() bool
}

// session is one live classroom instance: its participant set and the latest
// teacher position. Each session carries its own lock, so operations on
// independent sessions never contend.
type session struct {
	mu       sync.Mutex
	members  map[Peer]struct{}
	position *types.Position
}

// Directory maps session identifiers to live participant sets and cached
// teacher positions. A session entity exists here if and only if it has at
// least one participant: created lazily on first join, removed when the last
// participant leaves or the teacher explicitly ends it.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewDirectory creates an empty session directory.
func NewDirectory() *Directory {
	return &Directory{
		sessions: make(map[string]*session),
	}
}

// Join adds a peer to a session, creating the session if absent, and returns
// the session's cached teacher position (nil for a fresh session). Joining
// twice has the effect of joining once.
func (d *Directory) Join(sessionID string, peer Peer) *types.Position {
	d.mu.Lock()
	s, ok := d.sessions[sessionID]
	if !ok {
		s = &session{members: make(map[Peer]struct{})}
		d.sessions[sessionID] = s
	}
	s.mu.Lock()
	d.mu.Unlock()

	s.members[peer] = struct{}{}
	pos := s.position
	s.mu.Unlock()

	return pos
}

// Leave removes a peer from a session's participant set. A no-op for unknown
// sessions and non-members. When the last participant leaves, the session
// entity is deleted and its cached position discarded with it.
func (d *Directory) Leave(sessionID string, peer Peer) {
	d.mu.Lock()
	s, ok := d.sessions[sessionID]
	if !ok {
		d.mu.Unlock()
		return
	}

	s.mu.Lock()
	delete(s.members, peer)
	if len(s.members) == 0 {
		delete(d.sessions, sessionID)
	}
	s.mu.Unlock()
	d.mu.Unlock()
}

// SetPosition overwrites the session's cached teacher position. Positions
// live on the session entity, so navigation into a session nobody has joined
// yet is dropped; the next update after the first join is cached normally.
func (d *Directory) SetPosition(sessionID string, pos *types.Position) {
	d.mu.RLock()
	s, ok := d.sessions[sessionID]
	d.mu.RUnlock()
	if !ok {
		return
	}

	s.mu.Lock()
	s.position = pos
	s.mu.Unlock()
}

// Position returns the session's cached teacher position, or nil.
func (d *Directory) Position(sessionID string) *types.Position {
	d.mu.RLock()
	s, ok := d.sessions[sessionID]
	d.mu.RUnlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Broadcast sends a message to every open participant of a session except
// exclude (pass nil to reach everyone). Delivery is best-effort and
// fire-and-forget per peer: a closed or unwritable peer is skipped, a failed
// send is logged, and neither stops delivery to the rest. Returns the number
// of peers the message was queued to.
//
// The participant set is read under the session lock, the same exclusion that
// guards joins and leaves, so no broadcast ever observes a half-updated set.
// Per-peer sends are non-blocking, so holding the lock across the fan-out
// cannot stall on peer I/O.
func (d *Directory) Broadcast(sessionID string, message interface{}, exclude Peer) int {
	d.mu.RLock()
	s, ok := d.sessions[sessionID]
	d.mu.RUnlock()
	if !ok {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delivered := 0
	for peer := range s.members {
		if peer == exclude || !peer.Open() {
			continue
		}
		if err := peer.Send(message); err != nil {
			log.Printf("Broadcast delivery skipped: session=%s err=%v", sessionID, err)
			continue
		}
		delivered++
	}
	return delivered
}

// RemoveSession tears a session down unconditionally, discarding membership
// and cached position regardless of how many participants remain. This is the
// explicit end-session path that overrides the empty-set deletion rule.
func (d *Directory) RemoveSession(sessionID string) {
	d.mu.Lock()
	delete(d.sessions, sessionID)
	d.mu.Unlock()
}

// Participants returns the current participant count for a session.
func (d *Directory) Participants(sessionID string) int {
	d.mu.RLock()
	s, ok := d.sessions[sessionID]
	d.mu.RUnlock()
	if !ok {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Stats returns directory counters for the health endpoint.
func (d *Directory) Stats() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return map[string]int{
		"live_sessions": len(d.sessions),
	}
}
