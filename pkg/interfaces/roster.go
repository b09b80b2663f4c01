package interfaces

import (
	"context"

	"lockstep/pkg/types"
)

// RosterManager is the scheduling collaborator: it issues the session
// identifiers that teacher and student clients join with, and knows who the
// teacher of record is for each scheduled session.
type RosterManager interface {
	CreateSession(ctx context.Context, name, teacherID string, studentIDs []string) (*types.ScheduledSession, error)
	GetSession(ctx context.Context, sessionID string) (*types.ScheduledSession, error)
	EndSession(ctx context.Context, sessionID string) error
	ListActiveSessions(ctx context.Context) ([]*types.ScheduledSession, error)
}

// RoleVerifier cross-checks a client-claimed role against authoritative
// roster data before the claim is trusted by the router.
type RoleVerifier interface {
	// VerifyRole returns nil if userID may authenticate with the claimed
	// role, ErrRoleMismatch otherwise.
	VerifyRole(userID, role string) error
}
