package types

import "errors"

var (
	ErrMalformedEnvelope  = errors.New("malformed message envelope")
	ErrInvalidUserID      = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidRole        = errors.New("invalid role: must be 'teacher' or 'student'")
	ErrInvalidSessionName = errors.New("session name must be 1-200 characters")
	ErrInvalidTeacherID   = errors.New("teacher_id must be a valid user ID")
	ErrEmptyStudentList   = errors.New("student list cannot be empty")
)
