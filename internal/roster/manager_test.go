package roster

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lockstep/pkg/interfaces"
	"lockstep/pkg/types"
)

// mockStore is an in-memory SessionStore with switchable failure modes.
type mockStore struct {
	mu       sync.RWMutex
	sessions map[string]*types.ScheduledSession

	failCreate bool
	failUpdate bool
	failList   bool
}

func newMockStore() *mockStore {
	return &mockStore{sessions: make(map[string]*types.ScheduledSession)}
}

func (m *mockStore) CreateSession(ctx context.Context, session *types.ScheduledSession) error {
	if m.failCreate {
		return errors.New("store create failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockStore) GetSession(ctx context.Context, sessionID string) (*types.ScheduledSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, interfaces.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *mockStore) UpdateSession(ctx context.Context, session *types.ScheduledSession) error {
	if m.failUpdate {
		return errors.New("store update failed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *mockStore) ListActiveSessions(ctx context.Context) ([]*types.ScheduledSession, error) {
	if m.failList {
		return nil, errors.New("store list failed")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []*types.ScheduledSession
	for _, s := range m.sessions {
		if s.Status == "active" {
			copied := *s
			active = append(active, &copied)
		}
	}
	return active, nil
}

func (m *mockStore) HealthCheck(ctx context.Context) error { return nil }
func (m *mockStore) Close() error                          { return nil }

var _ interfaces.SessionStore = (*mockStore)(nil)

func TestManager_CreateSession(t *testing.T) {
	manager := NewManager(newMockStore())

	session, err := manager.CreateSession(context.Background(), "Morning Algebra", "t1", []string{"alice", "bob"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if session.ID == "" {
		t.Error("Created session should have a server-generated id")
	}
	if session.Status != "active" {
		t.Errorf("New session should be active, got %s", session.Status)
	}
	if session.EndTime != nil {
		t.Error("New session should have no end time")
	}

	fetched, err := manager.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.Name != "Morning Algebra" || fetched.TeacherID != "t1" {
		t.Errorf("Fetched session mismatch: %+v", fetched)
	}
}

func TestManager_CreateSessionDedupesStudents(t *testing.T) {
	manager := NewManager(newMockStore())

	session, err := manager.CreateSession(context.Background(), "Lab", "t1", []string{"alice", "bob", "alice", "bob"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if len(session.StudentIDs) != 2 {
		t.Errorf("Expected 2 unique students, got %v", session.StudentIDs)
	}
}

func TestManager_CreateSessionValidates(t *testing.T) {
	manager := NewManager(newMockStore())
	ctx := context.Background()

	testCases := []struct {
		name      string
		sName     string
		teacherID string
		students  []string
		expected  error
	}{
		{"empty name", "", "t1", []string{"alice"}, types.ErrInvalidSessionName},
		{"bad teacher", "Lab", "bad id", []string{"alice"}, types.ErrInvalidTeacherID},
		{"no students", "Lab", "t1", nil, types.ErrEmptyStudentList},
		{"bad student", "Lab", "t1", []string{"has space"}, types.ErrInvalidUserID},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := manager.CreateSession(ctx, tc.sName, tc.teacherID, tc.students)
			if !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
		})
	}
}

func TestManager_CreateSessionStoreFailure(t *testing.T) {
	store := newMockStore()
	store.failCreate = true
	manager := NewManager(store)

	_, err := manager.CreateSession(context.Background(), "Lab", "t1", []string{"alice"})
	if err == nil {
		t.Fatal("Store failure should surface as an error")
	}

	// The failed session must not linger in the cache.
	sessions, _ := manager.ListActiveSessions(context.Background())
	if len(sessions) != 0 {
		t.Errorf("Cache should be empty after a failed create, got %d", len(sessions))
	}
}

func TestManager_GetSessionFallsBackToStore(t *testing.T) {
	store := newMockStore()
	ended := &types.ScheduledSession{
		ID:         "old-1",
		Name:       "Last Week",
		TeacherID:  "t1",
		StudentIDs: []string{"alice"},
		StartTime:  time.Now().Add(-time.Hour),
		Status:     "ended",
	}
	_ = store.CreateSession(context.Background(), ended)
	manager := NewManager(store)

	// Not in the cache, but still reachable through the store.
	fetched, err := manager.GetSession(context.Background(), "old-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.Status != "ended" {
		t.Errorf("Expected ended session, got %s", fetched.Status)
	}

	if _, err := manager.GetSession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_EndSession(t *testing.T) {
	manager := NewManager(newMockStore())
	session, _ := manager.CreateSession(context.Background(), "Lab", "t1", []string{"alice"})

	if err := manager.EndSession(context.Background(), session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	sessions, _ := manager.ListActiveSessions(context.Background())
	if len(sessions) != 0 {
		t.Error("Ended session should be evicted from the active cache")
	}

	fetched, err := manager.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Ended session should remain fetchable: %v", err)
	}
	if fetched.Status != "ended" || fetched.EndTime == nil {
		t.Errorf("Ended session not marked: %+v", fetched)
	}
}

func TestManager_EndSessionErrors(t *testing.T) {
	manager := NewManager(newMockStore())
	session, _ := manager.CreateSession(context.Background(), "Lab", "t1", []string{"alice"})
	_ = manager.EndSession(context.Background(), session.ID)

	if err := manager.EndSession(context.Background(), session.ID); !errors.Is(err, ErrSessionAlreadyEnded) {
		t.Errorf("Expected ErrSessionAlreadyEnded, got %v", err)
	}
	if err := manager.EndSession(context.Background(), "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestManager_LoadActiveSessions(t *testing.T) {
	store := newMockStore()
	ctx := context.Background()
	_ = store.CreateSession(ctx, &types.ScheduledSession{
		ID: "a", Name: "A", TeacherID: "t1", StudentIDs: []string{"s"}, StartTime: time.Now(), Status: "active",
	})
	_ = store.CreateSession(ctx, &types.ScheduledSession{
		ID: "b", Name: "B", TeacherID: "t2", StudentIDs: []string{"s"}, StartTime: time.Now(), Status: "ended",
	})

	manager := NewManager(store)
	if err := manager.LoadActiveSessions(ctx); err != nil {
		t.Fatalf("LoadActiveSessions failed: %v", err)
	}

	sessions, _ := manager.ListActiveSessions(ctx)
	if len(sessions) != 1 || sessions[0].ID != "a" {
		t.Errorf("Only the active session should be cached, got %d", len(sessions))
	}

	store.failList = true
	fresh := NewManager(store)
	if err := fresh.LoadActiveSessions(ctx); err == nil {
		t.Error("Store list failure should surface at startup")
	}
}

func TestManager_VerifyRole(t *testing.T) {
	manager := NewManager(newMockStore())
	_, _ = manager.CreateSession(context.Background(), "Lab", "t1", []string{"alice"})

	if err := manager.VerifyRole("anyone", types.RoleStudent); err != nil {
		t.Errorf("Student claims are accepted as-is, got %v", err)
	}
	if err := manager.VerifyRole("t1", types.RoleTeacher); err != nil {
		t.Errorf("Teacher of record should pass verification, got %v", err)
	}
	if err := manager.VerifyRole("alice", types.RoleTeacher); !errors.Is(err, interfaces.ErrRoleMismatch) {
		t.Errorf("Non-teacher claiming teacher should fail, got %v", err)
	}
	if err := manager.VerifyRole("t1", "admin"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Unknown role should fail, got %v", err)
	}
}

func TestManager_VerifyRoleAfterSessionEnds(t *testing.T) {
	manager := NewManager(newMockStore())
	session, _ := manager.CreateSession(context.Background(), "Lab", "t1", []string{"alice"})
	_ = manager.EndSession(context.Background(), session.ID)

	if err := manager.VerifyRole("t1", types.RoleTeacher); !errors.Is(err, interfaces.ErrRoleMismatch) {
		t.Errorf("Teacher claim should fail once no active session remains, got %v", err)
	}
}
