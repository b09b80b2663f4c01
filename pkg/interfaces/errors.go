package interfaces

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionEnded    = errors.New("session has ended")
	ErrRoleMismatch    = errors.New("claimed role does not match roster records")
)
