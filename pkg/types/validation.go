package types

import "regexp"

var userIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsValidUserID checks if a user ID meets format requirements.
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return userIDRegex.MatchString(userID)
}

// IsValidRole checks if a role is one of the two recognized roles.
func IsValidRole(role string) bool {
	return role == RoleTeacher || role == RoleStudent
}

// Validate ensures a scheduled session meets all requirements before it is
// persisted or exposed through the API.
func (s *ScheduledSession) Validate() error {
	if len(s.Name) < 1 || len(s.Name) > 200 {
		return ErrInvalidSessionName
	}
	if !IsValidUserID(s.TeacherID) {
		return ErrInvalidTeacherID
	}
	if len(s.StudentIDs) == 0 {
		return ErrEmptyStudentList
	}
	for _, id := range s.StudentIDs {
		if !IsValidUserID(id) {
			return ErrInvalidUserID
		}
	}
	return nil
}
