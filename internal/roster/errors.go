package roster

import "errors"

var (
	ErrSessionNotFound     = errors.New("scheduled session not found")
	ErrSessionAlreadyEnded = errors.New("scheduled session is already ended")
	ErrInvalidRole         = errors.New("invalid role: must be 'teacher' or 'student'")
)
