package activity

import "sync"

// Tracker maps a teacher's user id to the session they most recently started.
// At most one active session per teacher; a pure mapping with no side effects
// on the session directory. Callers sequence the two themselves.
type Tracker struct {
	mu     sync.RWMutex
	active map[string]string
}

// NewTracker creates an empty teacher activity tracker.
func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[string]string),
	}
}

// SetActive records sessionID as the session teacherID is driving,
// overwriting any previous entry.
func (t *Tracker) SetActive(teacherID, sessionID string) {
	t.mu.Lock()
	t.active[teacherID] = sessionID
	t.mu.Unlock()
}

// ClearActive removes the teacher's active entry. No-op if absent.
func (t *Tracker) ClearActive(teacherID string) {
	t.mu.Lock()
	delete(t.active, teacherID)
	t.mu.Unlock()
}

// Active returns the session the teacher is currently driving.
func (t *Tracker) Active(teacherID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sessionID, ok := t.active[teacherID]
	return sessionID, ok
}

// Count returns the number of teachers with an active session.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.active)
}
