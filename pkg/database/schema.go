package database

import (
	"database/sql"
	"fmt"
)

// The roster owns exactly one table. The live synchronization layer keeps all
// of its state in memory, so nothing about connections, membership, or teacher
// positions is ever persisted.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL CHECK (length(name) BETWEEN 1 AND 200),
	teacher_id  TEXT NOT NULL,
	student_ids TEXT NOT NULL,
	start_time  DATETIME NOT NULL,
	end_time    DATETIME,
	status      TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'ended'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_teacher ON sessions(teacher_id);
`

// EnsureSchema creates the roster schema if it does not exist yet. Idempotent;
// called once at startup before the store accepts operations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// TableExists reports whether a table is present, used by startup checks and
// store tests.
func TableExists(db *sql.DB, name string) (bool, error) {
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
