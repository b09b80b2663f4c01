package roster

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"lockstep/pkg/interfaces"
	"lockstep/pkg/types"
)

// Manager is the scheduling collaborator for the live synchronization layer.
// It issues the session identifiers clients join with, keeps an in-memory
// cache of active scheduled sessions over the store, and answers role
// verification queries for the router.
//
// The live directory never touches this state: a scheduled session existing
// here says nothing about whether anyone is currently connected to it.
type Manager struct {
	store  interfaces.SessionStore
	mu     sync.RWMutex
	active map[string]*types.ScheduledSession
}

// NewManager creates a roster manager over a session store.
func NewManager(store interfaces.SessionStore) *Manager {
	return &Manager{
		store:  store,
		active: make(map[string]*types.ScheduledSession),
	}
}

// LoadActiveSessions primes the cache from the store at startup.
func (m *Manager) LoadActiveSessions(ctx context.Context) error {
	sessions, err := m.store.ListActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active sessions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sessions {
		m.active[s.ID] = s
	}

	log.Printf("Loaded %d active scheduled sessions", len(sessions))
	return nil
}

// CreateSession schedules a new session and returns it with a
// server-generated identifier. Duplicate student ids are collapsed.
func (m *Manager) CreateSession(ctx context.Context, name, teacherID string, studentIDs []string) (*types.ScheduledSession, error) {
	session := &types.ScheduledSession{
		ID:         uuid.New().String(),
		Name:       name,
		TeacherID:  teacherID,
		StudentIDs: dedupe(studentIDs),
		StartTime:  time.Now(),
		Status:     "active",
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}

	if err := m.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.mu.Lock()
	m.active[session.ID] = session
	m.mu.Unlock()

	log.Printf("Scheduled session: id=%s name=%s teacher=%s students=%d",
		session.ID, session.Name, session.TeacherID, len(session.StudentIDs))
	return session, nil
}

// GetSession retrieves a scheduled session, checking the cache before the
// store so ended sessions remain reachable.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*types.ScheduledSession, error) {
	m.mu.RLock()
	if session, ok := m.active[sessionID]; ok {
		m.mu.RUnlock()
		return session, nil
	}
	m.mu.RUnlock()

	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// EndSession marks a scheduled session ended and evicts it from the cache.
func (m *Manager) EndSession(ctx context.Context, sessionID string) error {
	m.mu.RLock()
	session, ok := m.active[sessionID]
	m.mu.RUnlock()

	if !ok {
		stored, err := m.store.GetSession(ctx, sessionID)
		if err != nil {
			return ErrSessionNotFound
		}
		if stored.Status == "ended" {
			return ErrSessionAlreadyEnded
		}
		session = stored
	}

	now := time.Now()
	session.EndTime = &now
	session.Status = "ended"

	if err := m.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	m.mu.Lock()
	delete(m.active, sessionID)
	m.mu.Unlock()

	log.Printf("Ended scheduled session: id=%s name=%s", session.ID, session.Name)
	return nil
}

// ListActiveSessions returns all cached active sessions.
func (m *Manager) ListActiveSessions(ctx context.Context) ([]*types.ScheduledSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*types.ScheduledSession, 0, len(m.active))
	for _, s := range m.active {
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// VerifyRole cross-checks a client-claimed role against roster records. A
// student claim is accepted as-is: the outer HTTP layer has already
// authenticated the user. A teacher claim is only accepted from the teacher
// of record of at least one active scheduled session.
func (m *Manager) VerifyRole(userID, role string) error {
	switch role {
	case types.RoleStudent:
		return nil

	case types.RoleTeacher:
		m.mu.RLock()
		defer m.mu.RUnlock()
		for _, s := range m.active {
			if s.TeacherID == userID {
				return nil
			}
		}
		return interfaces.ErrRoleMismatch

	default:
		return ErrInvalidRole
	}
}

// Stats returns roster counters for the health endpoint.
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int{
		"scheduled_active": len(m.active),
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool)
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}
