package session

import (
	"context"
	"sync"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// Role of the logged-in user.
type Role string

const (
	RoleNone    Role = ""
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ErrNotPermitted is returned when the role may not perform an action.
var ErrNotPermitted = shared.NewDomainError("session", "Authorize", shared.ErrUnauthorized, "action not permitted for role")

// StudentLoader loads the current value of a student.
type StudentLoader interface {
	FindByID(ctx context.Context, id string) (student.Student, error)
}

// Session holds the view state of one logged-in user. The selected student
// is a weak reference: it is stored as an id and resolved on every read.
type Session struct {
	mu sync.RWMutex

	role      Role
	studentID string
	selected  string
	grade     student.GradeFilter
}

func newSession(role Role, studentID string) *Session {
	return &Session{
		role:      role,
		studentID: studentID,
		selected:  studentID,
		grade:     student.GradeAll,
	}
}

// Role returns the session role; RoleNone after Logout.
func (s *Session) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// IsTeacher reports whether the session may mutate the roster.
func (s *Session) IsTeacher() bool {
	return s.Role() == RoleTeacher
}

// StudentID returns the logged-in student's id, empty for teachers.
func (s *Session) StudentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.studentID
}

// RequireTeacher returns ErrNotPermitted unless the session is a teacher's.
func (s *Session) RequireTeacher(op string) error {
	if !s.IsTeacher() {
		return ErrNotPermitted.WithOp(op)
	}
	return nil
}

// Select stores the id of the student to show. Students may only select themselves.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.role {
	case RoleTeacher:
	case RoleStudent:
		if id != s.studentID {
			return ErrNotPermitted.WithOp("Select")
		}
	default:
		return ErrNotPermitted.WithOp("Select")
	}
	s.selected = id
	return nil
}

// ClearSelection drops the selected student.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = ""
}

// SelectedID returns the raw selected id without resolving it.
func (s *Session) SelectedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Selected resolves the selection against the live roster. A selection whose
// student no longer exists is cleared and reported as none.
func (s *Session) Selected(ctx context.Context, loader StudentLoader) (student.Student, bool, error) {
	id := s.SelectedID()
	if id == "" {
		return student.Student{}, false, nil
	}

	st, err := loader.FindByID(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			s.Invalidate(id)
			return student.Student{}, false, nil
		}
		return student.Student{}, false, err
	}
	return st, true, nil
}

// Invalidate clears the selection if it points at the given id.
// Called after a student is removed.
func (s *Session) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == id {
		s.selected = ""
	}
}

// Grade returns the current grade filter.
func (s *Session) Grade() student.GradeFilter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.grade
}

// SetGrade changes the grade filter. Only teachers filter by grade.
func (s *Session) SetGrade(f student.GradeFilter) error {
	if err := s.RequireTeacher("SetGrade"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grade = f
	return nil
}

// Logout clears role, selection and resets the grade filter to All.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = RoleNone
	s.studentID = ""
	s.selected = ""
	s.grade = student.GradeAll
}
