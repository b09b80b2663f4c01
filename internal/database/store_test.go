package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	dbconfig "lockstep/pkg/database"
	"lockstep/pkg/interfaces"
	"lockstep/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	config := dbconfig.DefaultConfig()
	config.DatabasePath = filepath.Join(t.TempDir(), "roster_test.db")

	store, err := NewStore(config)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSession(id string) *types.ScheduledSession {
	return &types.ScheduledSession{
		ID:         id,
		Name:       "Morning Algebra",
		TeacherID:  "t1",
		StudentIDs: []string{"alice", "bob"},
		StartTime:  time.Now().UTC().Truncate(time.Second),
		Status:     "active",
	}
}

func TestStore_InterfaceCompliance(t *testing.T) {
	var _ interfaces.SessionStore = (*Store)(nil)
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("s-1")
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	fetched, err := store.GetSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	if fetched.Name != session.Name || fetched.TeacherID != session.TeacherID {
		t.Errorf("Fetched session mismatch: %+v", fetched)
	}
	if len(fetched.StudentIDs) != 2 || fetched.StudentIDs[0] != "alice" {
		t.Errorf("Student list did not round-trip: %v", fetched.StudentIDs)
	}
	if fetched.EndTime != nil {
		t.Error("Active session should have no end time")
	}
}

func TestStore_GetMissingSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetSession(context.Background(), "missing")
	if !errors.Is(err, interfaces.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_UpdateMarksEnded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	session := testSession("s-1")
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	session.EndTime = &now
	session.Status = "ended"
	if err := store.UpdateSession(ctx, session); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	fetched, err := store.GetSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if fetched.Status != "ended" {
		t.Errorf("Expected status ended, got %s", fetched.Status)
	}
	if fetched.EndTime == nil {
		t.Error("End time should be persisted")
	}
}

func TestStore_ListActiveExcludesEnded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active := testSession("s-active")
	if err := store.CreateSession(ctx, active); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	ended := testSession("s-ended")
	if err := store.CreateSession(ctx, ended); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	now := time.Now().UTC()
	ended.EndTime = &now
	ended.Status = "ended"
	if err := store.UpdateSession(ctx, ended); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}

	sessions, err := store.ListActiveSessions(ctx)
	if err != nil {
		t.Fatalf("ListActiveSessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "s-active" {
		t.Errorf("Expected only the active session, got %d", len(sessions))
	}
}

func TestStore_HealthCheck(t *testing.T) {
	store := newTestStore(t)

	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck on a live store failed: %v", err)
	}
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	config := dbconfig.DefaultConfig()
	config.DatabasePath = filepath.Join(t.TempDir(), "close_test.db")

	store, err := NewStore(config)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Second close should be a no-op, got %v", err)
	}

	if err := store.CreateSession(context.Background(), testSession("late")); err == nil {
		t.Error("Writes after close should fail")
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			session := testSession("concurrent-" + string(rune('a'+n)))
			done <- store.CreateSession(ctx, session)
		}(i)
	}

	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Errorf("Concurrent create failed: %v", err)
		}
	}

	sessions, err := store.ListActiveSessions(ctx)
	if err != nil {
		t.Fatalf("ListActiveSessions failed: %v", err)
	}
	if len(sessions) != 10 {
		t.Errorf("Expected 10 sessions, got %d", len(sessions))
	}
}
