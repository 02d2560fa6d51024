// Package memory implements the in-process Student Roster Store and XP journal.
// The roster is the canonical collection: every write replaces a whole
// student value and every read hands out a deep copy.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// maxIDAttempts bounds the search for an unused student id.
const maxIDAttempts = 16

// NewStudentID returns a short random id ("s-1a2b3c4d").
func NewStudentID() string {
	return "s-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Roster implements student.Roster on top of an ordered slice of ids and a map.
type Roster struct {
	mu     sync.RWMutex
	order  []string
	byID   map[string]student.Student
	nextID func() string
}

// RosterOption configures a Roster.
type RosterOption func(*Roster)

// WithIDGenerator overrides the student id generator.
func WithIDGenerator(gen func() string) RosterOption {
	return func(r *Roster) {
		if gen != nil {
			r.nextID = gen
		}
	}
}

// NewRoster creates a roster preloaded with seed students in the given order.
// Seed values must already satisfy the aggregate invariants.
func NewRoster(seed []student.Student, opts ...RosterOption) (*Roster, error) {
	r := &Roster{
		order:  make([]string, 0, len(seed)),
		byID:   make(map[string]student.Student, len(seed)),
		nextID: NewStudentID,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, s := range seed {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[s.ID]; dup {
			return nil, shared.ErrStudentExists.WithOp("Seed").Detail("%q", s.ID)
		}
		r.order = append(r.order, s.ID)
		r.byID[s.ID] = s.Clone()
	}
	return r, nil
}

// FindByID returns a copy of the student.
func (r *Roster) FindByID(_ context.Context, id string) (student.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return student.Student{}, shared.ErrUnknownStudentID.Detail("%q", id)
	}
	return s.Clone(), nil
}

// FindByIDFold looks up an id ignoring case. Used by the login gate.
func (r *Roster) FindByIDFold(ctx context.Context, id string) (student.Student, error) {
	id = strings.TrimSpace(id)
	if s, err := r.FindByID(ctx, id); err == nil {
		return s, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, candidate := range r.order {
		if strings.EqualFold(candidate, id) {
			return r.byID[candidate].Clone(), nil
		}
	}
	return student.Student{}, shared.ErrUnknownStudentID.Detail("%q", id)
}

// FilterByGrade returns matching students preserving collection order.
func (r *Roster) FilterByGrade(_ context.Context, filter student.GradeFilter) ([]student.Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]student.Student, 0, len(r.order))
	for _, id := range r.order {
		s := r.byID[id]
		if filter.Matches(s.Grade) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// Add appends the student under a freshly generated id and returns the stored value.
func (r *Roster) Add(_ context.Context, s student.Student) (student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, err := r.freshID()
	if err != nil {
		return student.Student{}, err
	}

	stored := s.Clone()
	stored.ID = id
	if err := stored.Validate(); err != nil {
		return student.Student{}, err
	}

	r.order = append(r.order, id)
	r.byID[id] = stored
	return stored.Clone(), nil
}

// Replace substitutes the student with the same id wholesale.
func (r *Roster) Replace(_ context.Context, s student.Student) error {
	if err := s.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[s.ID]; !ok {
		return shared.ErrUnknownStudentID.WithOp("Replace").Detail("%q", s.ID)
	}
	r.byID[s.ID] = s.Clone()
	return nil
}

// Remove deletes the student and returns the removed value.
func (r *Roster) Remove(_ context.Context, id string) (student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byID[id]
	if !ok {
		return student.Student{}, shared.ErrUnknownStudentID.WithOp("Remove").Detail("%q", id)
	}

	delete(r.byID, id)
	for i, candidate := range r.order {
		if candidate == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return s, nil
}

// Count returns the number of students.
func (r *Roster) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}

func (r *Roster) freshID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := r.nextID()
		if _, taken := r.byID[id]; id != "" && !taken {
			return id, nil
		}
	}
	return "", shared.ErrStudentExists.WithOp("Add").Detail("no free id after %d attempts", maxIDAttempts)
}

var _ student.Roster = (*Roster)(nil)
