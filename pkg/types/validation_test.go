package types

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIsValidUserID(t *testing.T) {
	testCases := []struct {
		name     string
		userID   string
		expected bool
	}{
		{"simple", "teacher1", true},
		{"with underscore", "user_42", true},
		{"with hyphen", "user-42", true},
		{"single character", "a", true},
		{"max length", strings.Repeat("a", 50), true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 51), false},
		{"contains space", "user 1", false},
		{"contains dot", "user.1", false},
		{"contains slash", "user/1", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidUserID(tc.userID); got != tc.expected {
				t.Errorf("IsValidUserID(%q) = %v, expected %v", tc.userID, got, tc.expected)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	if !IsValidRole(RoleTeacher) || !IsValidRole(RoleStudent) {
		t.Error("Both recognized roles should validate")
	}
	for _, role := range []string{"", "admin", "Teacher", "STUDENT"} {
		if IsValidRole(role) {
			t.Errorf("Role %q should be invalid", role)
		}
	}
}

func TestScheduledSession_Validate(t *testing.T) {
	valid := func() *ScheduledSession {
		return &ScheduledSession{
			ID:         "id1",
			Name:       "Morning Algebra",
			TeacherID:  "teacher1",
			StudentIDs: []string{"s1", "s2"},
			StartTime:  time.Now(),
			Status:     "active",
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Valid session should pass validation: %v", err)
	}

	testCases := []struct {
		name     string
		mutate   func(*ScheduledSession)
		expected error
	}{
		{"empty name", func(s *ScheduledSession) { s.Name = "" }, ErrInvalidSessionName},
		{"name too long", func(s *ScheduledSession) { s.Name = strings.Repeat("x", 201) }, ErrInvalidSessionName},
		{"bad teacher id", func(s *ScheduledSession) { s.TeacherID = "no spaces allowed" }, ErrInvalidTeacherID},
		{"no students", func(s *ScheduledSession) { s.StudentIDs = nil }, ErrEmptyStudentList},
		{"bad student id", func(s *ScheduledSession) { s.StudentIDs = []string{"ok", "not ok"} }, ErrInvalidUserID},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(s)
			if err := s.Validate(); !errors.Is(err, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, err)
			}
		})
	}
}
