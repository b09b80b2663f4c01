package types

import (
	"encoding/json"
	"time"
)

// Inbound message types accepted from clients. Anything else decodes to
// MessageTypeUnknown and is dropped by the router.
const (
	MessageTypeAuth              = "auth"
	MessageTypeJoinSession       = "joinSession"
	MessageTypeLeaveSession      = "leaveSession"
	MessageTypeTeacherNavigation = "teacherNavigation"
	MessageTypeStartSession      = "startSession"
	MessageTypeEndSession        = "endSession"

	MessageTypeUnknown = "unknown"
)

// Outbound message types pushed to clients.
const (
	MessageTypeAuthSuccess      = "authSuccess"
	MessageTypeNavigateTo       = "navigateTo"
	MessageTypeUserJoined       = "userJoined"
	MessageTypeUserLeft         = "userLeft"
	MessageTypeSessionStarted   = "sessionStarted"
	MessageTypeSessionEnded     = "sessionEnded"
	MessageTypeUserDisconnected = "userDisconnected"
)

// Connection roles established by the auth handshake.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Envelope is the uniform wire frame: one complete JSON envelope per logical
// message, inbound and outbound alike.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Position is the most recently broadcast navigation state for a session.
// Overwritten in place, never accumulated: a latest-value cache, not a log.
type Position struct {
	PageType string                 `json:"pageType"`
	PageURL  string                 `json:"pageUrl"`
	PageData map[string]interface{} `json:"pageData,omitempty"`
}

// AuthPayload identifies a connection. The outer HTTP layer has already
// authenticated the user; role claims are still cross-checked by the router.
type AuthPayload struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// JoinSessionPayload adds the sender to a session's participant set.
type JoinSessionPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// LeaveSessionPayload removes the sender from a session's participant set.
type LeaveSessionPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// TeacherNavigationPayload carries a navigation update from the driving
// teacher to the session's followers.
type TeacherNavigationPayload struct {
	SessionID string                 `json:"sessionId"`
	PageType  string                 `json:"pageType"`
	PageURL   string                 `json:"pageUrl"`
	PageData  map[string]interface{} `json:"pageData,omitempty"`
}

// StartSessionPayload marks a teacher as actively driving a session.
type StartSessionPayload struct {
	SessionID string `json:"sessionId"`
	TeacherID string `json:"teacherId"`
}

// EndSessionPayload tears a session down regardless of remaining membership.
type EndSessionPayload struct {
	SessionID string `json:"sessionId"`
	TeacherID string `json:"teacherId"`
}

// Inbound is the decoded form of a client envelope: a closed variant over the
// six accepted kinds. Exactly one pointer field is non-nil for a recognized
// Kind; unrecognized wire input decodes to MessageTypeUnknown with all fields
// nil rather than failing the parse.
type Inbound struct {
	Kind       string
	Auth       *AuthPayload
	Join       *JoinSessionPayload
	Leave      *LeaveSessionPayload
	Navigation *TeacherNavigationPayload
	Start      *StartSessionPayload
	End        *EndSessionPayload
}

// DecodeInbound parses a raw frame into an Inbound variant. It returns an
// error only for a non-parseable envelope; an unknown type is not an error.
func DecodeInbound(data []byte) (*Inbound, error) {
	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, ErrMalformedEnvelope
	}

	in := &Inbound{Kind: env.Type}
	var dst interface{}
	switch env.Type {
	case MessageTypeAuth:
		in.Auth = &AuthPayload{}
		dst = in.Auth
	case MessageTypeJoinSession:
		in.Join = &JoinSessionPayload{}
		dst = in.Join
	case MessageTypeLeaveSession:
		in.Leave = &LeaveSessionPayload{}
		dst = in.Leave
	case MessageTypeTeacherNavigation:
		in.Navigation = &TeacherNavigationPayload{}
		dst = in.Navigation
	case MessageTypeStartSession:
		in.Start = &StartSessionPayload{}
		dst = in.Start
	case MessageTypeEndSession:
		in.End = &EndSessionPayload{}
		dst = in.End
	default:
		in.Kind = MessageTypeUnknown
		return in, nil
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, dst); err != nil {
			return nil, ErrMalformedEnvelope
		}
	}
	return in, nil
}

// Outbound envelope constructors. Payload shapes mirror the original wire
// protocol exactly so existing web clients keep working unmodified.

func NewAuthSuccess(userID, role string) *Envelope {
	return &Envelope{Type: MessageTypeAuthSuccess, Payload: AuthPayload{UserID: userID, Role: role}}
}

func NewNavigateTo(pos *Position) *Envelope {
	return &Envelope{Type: MessageTypeNavigateTo, Payload: pos}
}

func NewUserJoined(userID string) *Envelope {
	return &Envelope{Type: MessageTypeUserJoined, Payload: map[string]string{"userId": userID}}
}

func NewUserLeft(userID string) *Envelope {
	return &Envelope{Type: MessageTypeUserLeft, Payload: map[string]string{"userId": userID}}
}

func NewSessionStarted(sessionID, teacherID string) *Envelope {
	return &Envelope{Type: MessageTypeSessionStarted, Payload: map[string]string{"sessionId": sessionID, "teacherId": teacherID}}
}

func NewSessionEnded(sessionID string) *Envelope {
	return &Envelope{Type: MessageTypeSessionEnded, Payload: map[string]string{"sessionId": sessionID}}
}

func NewUserDisconnected(userID string) *Envelope {
	return &Envelope{Type: MessageTypeUserDisconnected, Payload: map[string]string{"userId": userID}}
}

// ScheduledSession is a roster record for a planned live session. The live
// synchronization layer never persists anything itself; these records exist so
// teacher and student clients agree on the session identifier they join with.
type ScheduledSession struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	TeacherID  string     `json:"teacher_id" db:"teacher_id"`
	StudentIDs []string   `json:"student_ids" db:"student_ids"`
	StartTime  time.Time  `json:"start_time" db:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty" db:"end_time"`
	Status     string     `json:"status" db:"status"`
}
