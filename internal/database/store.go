package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	dbconfig "lockstep/pkg/database"
	"lockstep/pkg/interfaces"
	"lockstep/pkg/types"
)

// Store implements interfaces.SessionStore over SQLite. Reads go straight to
// the pool; writes are serialized through a single goroutine, which is what
// SQLite wants under concurrent access.
type Store struct {
	db           *sql.DB
	config       *dbconfig.Config
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewStore opens the roster database, applies pragmas, and bootstraps the
// schema.
func NewStore(config *dbconfig.Config) (*Store, error) {
	db, err := sql.Open("sqlite3", config.DatabasePath+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := dbconfig.ApplyPragmas(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite pragmas: %w", err)
	}

	if err := dbconfig.EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &Store{
		db:           db,
		config:       config,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	store.wg.Add(1)
	go store.writeLoop()

	return store, nil
}

// writeLoop processes all write operations in a single goroutine.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil {
				log.Printf("Database write failed, retrying in 5 seconds: %v", err)
				time.Sleep(5 * time.Second)
				err = op.operation(s.db)
				if err != nil {
					log.Printf("Database write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-s.shutdown:
			log.Println("Roster database write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion.
func (s *Store) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("session store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-time.After(30 * time.Second):
		return fmt.Errorf("write operation timeout")
	case <-s.shutdown:
		return fmt.Errorf("session store is shutting down")
	}
}

// CreateSession persists a new scheduled session.
func (s *Store) CreateSession(ctx context.Context, session *types.ScheduledSession) error {
	return s.executeWrite(func(db *sql.DB) error {
		studentIDsJSON, err := json.Marshal(session.StudentIDs)
		if err != nil {
			return fmt.Errorf("failed to marshal student IDs: %w", err)
		}

		query := `
			INSERT INTO sessions (id, name, teacher_id, student_ids, start_time, status)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		_, err = db.ExecContext(ctx, query,
			session.ID,
			session.Name,
			session.TeacherID,
			string(studentIDsJSON),
			session.StartTime,
			session.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}
		return nil
	})
}

// GetSession retrieves a scheduled session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*types.ScheduledSession, error) {
	query := `
		SELECT id, name, teacher_id, student_ids, start_time, end_time, status
		FROM sessions
		WHERE id = ?
	`

	row := s.db.QueryRowContext(ctx, query, sessionID)
	session, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, interfaces.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return session, nil
}

// UpdateSession updates an existing session, primarily to mark it ended.
func (s *Store) UpdateSession(ctx context.Context, session *types.ScheduledSession) error {
	return s.executeWrite(func(db *sql.DB) error {
		query := `
			UPDATE sessions
			SET end_time = ?, status = ?
			WHERE id = ?
		`
		_, err := db.ExecContext(ctx, query,
			session.EndTime,
			session.Status,
			session.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
}

// ListActiveSessions returns all sessions whose status is "active".
func (s *Store) ListActiveSessions(ctx context.Context) ([]*types.ScheduledSession, error) {
	query := `
		SELECT id, name, teacher_id, student_ids, start_time, end_time, status
		FROM sessions
		WHERE status = 'active'
		ORDER BY start_time DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sessions []*types.ScheduledSession
	for rows.Next() {
		session, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return sessions, nil
}

// HealthCheck validates database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.QueryContext(ctx, "SELECT COUNT(*) FROM sessions LIMIT 1"); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// Close shuts down the write loop and closes the pool. Safe to call twice.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// scanSession reads one session row, handling the JSON student list and the
// nullable end_time.
func scanSession(scan func(dest ...interface{}) error) (*types.ScheduledSession, error) {
	var session types.ScheduledSession
	var studentIDsJSON string
	var endTime sql.NullTime

	err := scan(
		&session.ID,
		&session.Name,
		&session.TeacherID,
		&studentIDsJSON,
		&session.StartTime,
		&endTime,
		&session.Status,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(studentIDsJSON), &session.StudentIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal student IDs: %w", err)
	}
	if endTime.Valid {
		session.EndTime = &endTime.Time
	}
	return &session, nil
}
