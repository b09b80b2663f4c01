package router

import (
	"log"

	"lockstep/internal/activity"
	"lockstep/internal/directory"
	"lockstep/internal/registry"
	"lockstep/pkg/interfaces"
	"lockstep/pkg/types"
)

// Router decodes inbound envelopes, enforces role gates, and drives the
// session directory, connection registry, and teacher activity tracker. All
// three are injected stateful services, each internally synchronized; the
// router itself holds no mutable state and is safe to call from any number of
// connection goroutines.
//
// Error taxonomy: protocol errors (unparseable envelope, unknown type) are
// logged and dropped with the connection left open; authorization errors
// (non-teacher sending a teacher-only action) are dropped silently with no
// error reply and no connection penalty. No failure on one connection ever
// crosses into another connection's state.
type Router struct {
	registry  *registry.Registry
	directory *directory.Directory
	tracker   *activity.Tracker
	roles     interfaces.RoleVerifier
}

// NewRouter creates a message router. roles may be nil, in which case client
// role claims are accepted as-is.
func NewRouter(reg *registry.Registry, dir *directory.Directory, tracker *activity.Tracker, roles interfaces.RoleVerifier) *Router {
	return &Router{
		registry:  reg,
		directory: dir,
		tracker:   tracker,
		roles:     roles,
	}
}

// HandleMessage processes one inbound frame from a connection. Frames for a
// given connection arrive sequentially from its read loop; frames from
// different connections arrive concurrently.
func (r *Router) HandleMessage(client *registry.Client, data []byte) {
	in, err := types.DecodeInbound(data)
	if err != nil {
		// Malformed envelope: logged, dropped, connection stays open.
		log.Printf("Dropping malformed envelope: conn=%s err=%v", client.ID(), err)
		return
	}

	switch in.Kind {
	case types.MessageTypeAuth:
		r.handleAuth(client, in.Auth)
	case types.MessageTypeJoinSession:
		r.handleJoinSession(client, in.Join)
	case types.MessageTypeLeaveSession:
		r.handleLeaveSession(client, in.Leave)
	case types.MessageTypeTeacherNavigation:
		r.handleTeacherNavigation(client, in.Navigation)
	case types.MessageTypeStartSession:
		r.handleStartSession(client, in.Start)
	case types.MessageTypeEndSession:
		r.handleEndSession(client, in.End)
	default:
		log.Printf("Unknown message type dropped: conn=%s", client.ID())
	}
}

// handleAuth binds identity to the connection and echoes authSuccess to the
// sender only. The outer HTTP layer has already authenticated the user; the
// claimed role is still cross-checked against the roster before it is
// trusted, and a failed check drops the auth without an error reply.
func (r *Router) handleAuth(client *registry.Client, p *types.AuthPayload) {
	if !types.IsValidUserID(p.UserID) || !types.IsValidRole(p.Role) {
		log.Printf("Auth rejected, invalid credentials format: conn=%s", client.ID())
		return
	}

	if r.roles != nil {
		if err := r.roles.VerifyRole(p.UserID, p.Role); err != nil {
			log.Printf("Auth rejected: conn=%s user=%s role=%s err=%v", client.ID(), p.UserID, p.Role, err)
			return
		}
	}

	r.registry.Identify(client, p.UserID, p.Role)
	log.Printf("Authenticated: conn=%s user=%s role=%s", client.ID(), p.UserID, p.Role)

	if err := client.Send(types.NewAuthSuccess(p.UserID, p.Role)); err != nil {
		log.Printf("Failed to send authSuccess: conn=%s err=%v", client.ID(), err)
	}
}

// handleJoinSession adds the sender to the session, catches a late joiner up
// with the cached teacher position, and announces the join to everyone else.
func (r *Router) handleJoinSession(client *registry.Client, p *types.JoinSessionPayload) {
	pos := r.directory.Join(p.SessionID, client)
	client.SetSession(p.SessionID)

	// Late-joiner catch-up goes to the joining connection only.
	if pos != nil {
		if err := client.Send(types.NewNavigateTo(pos)); err != nil {
			log.Printf("Failed to send catch-up position: conn=%s err=%v", client.ID(), err)
		}
	}

	r.directory.Broadcast(p.SessionID, types.NewUserJoined(p.UserID), client)
	log.Printf("Joined session: session=%s user=%s participants=%d", p.SessionID, p.UserID, r.directory.Participants(p.SessionID))
}

// handleLeaveSession removes the sender from the session and announces the
// departure. The client's membership field is cleared regardless of whether
// the directory actually held the membership.
func (r *Router) handleLeaveSession(client *registry.Client, p *types.LeaveSessionPayload) {
	r.directory.Leave(p.SessionID, client)
	r.directory.Broadcast(p.SessionID, types.NewUserLeft(p.UserID), client)
	client.ClearSession()
	log.Printf("Left session: session=%s user=%s", p.SessionID, p.UserID)
}

// handleTeacherNavigation caches the teacher's position for late joiners and
// fans it out to everyone else in the session. A non-teacher sender is a
// client bug to be tolerated: the message is dropped without a reply, since
// this is the highest-frequency message type on the wire.
func (r *Router) handleTeacherNavigation(client *registry.Client, p *types.TeacherNavigationPayload) {
	if client.Role() != types.RoleTeacher {
		return
	}

	pos := &types.Position{
		PageType: p.PageType,
		PageURL:  p.PageURL,
		PageData: p.PageData,
	}
	r.directory.SetPosition(p.SessionID, pos)
	r.directory.Broadcast(p.SessionID, types.NewNavigateTo(pos), client)
}

// handleStartSession marks the teacher as actively driving the session. The
// confirmation goes to all participants, the initiating teacher included.
func (r *Router) handleStartSession(client *registry.Client, p *types.StartSessionPayload) {
	if client.Role() != types.RoleTeacher {
		return
	}

	r.tracker.SetActive(p.TeacherID, p.SessionID)
	r.directory.Broadcast(p.SessionID, types.NewSessionStarted(p.SessionID, p.TeacherID), nil)
	log.Printf("Session started: session=%s teacher=%s", p.SessionID, p.TeacherID)
}

// handleEndSession clears the teacher's activity entry, notifies all
// participants, then tears the session down unconditionally. This is the one
// path that removes a session regardless of remaining membership, overriding
// the normal empty-set deletion rule.
func (r *Router) handleEndSession(client *registry.Client, p *types.EndSessionPayload) {
	if client.Role() != types.RoleTeacher {
		return
	}

	r.tracker.ClearActive(p.TeacherID)
	r.directory.Broadcast(p.SessionID, types.NewSessionEnded(p.SessionID), nil)
	r.directory.RemoveSession(p.SessionID)
	log.Printf("Session ended: session=%s teacher=%s", p.SessionID, p.TeacherID)
}

// HandleDisconnect runs the close path for a connection: leave its session
// (if any) and notify the remaining participants. The gateway guarantees this
// runs exactly once per connection, after the last message handler for that
// connection has returned. The closing connection never receives its own
// disconnect notice.
func (r *Router) HandleDisconnect(client *registry.Client) {
	userID := client.UserID()

	if sessionID := client.SessionID(); sessionID != "" {
		r.directory.Leave(sessionID, client)
		r.directory.Broadcast(sessionID, types.NewUserDisconnected(userID), client)
		client.ClearSession()
		log.Printf("Disconnected from session: session=%s user=%s", sessionID, userID)
	}

	// A teacher that drops uncleanly cannot be trusted to still be driving
	// anything; the session itself survives for reconnect-and-resume.
	if userID != "" && client.Role() == types.RoleTeacher {
		r.tracker.ClearActive(userID)
	}
}
