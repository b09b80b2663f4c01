package interfaces

import (
	"context"

	"lockstep/pkg/types"
)

// SessionStore handles persistence of scheduled roster sessions. The live
// synchronization layer holds no reference to this interface; only the roster
// manager and the HTTP API touch storage.
type SessionStore interface {
	// CreateSession persists a new scheduled session.
	CreateSession(ctx context.Context, session *types.ScheduledSession) error

	// GetSession retrieves a scheduled session by ID.
	GetSession(ctx context.Context, sessionID string) (*types.ScheduledSession, error)

	// UpdateSession updates an existing session, primarily to end it.
	UpdateSession(ctx context.Context, session *types.ScheduledSession) error

	// ListActiveSessions returns every session whose status is "active".
	ListActiveSessions(ctx context.Context) ([]*types.ScheduledSession, error)

	// HealthCheck verifies connectivity with a basic query.
	HealthCheck(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
