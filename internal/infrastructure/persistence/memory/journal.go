package memory

import (
	"context"
	"sync"

	"github.com/alem-hub/gradebook/internal/domain/student"
)

// defaultJournalCapacity caps entries kept per student.
const defaultJournalCapacity = 200

// Journal implements student.XPJournal in memory. Oldest entries are dropped
// once a student exceeds the capacity.
type Journal struct {
	mu       sync.RWMutex
	entries  map[string][]student.XPChange
	capacity int
}

// NewJournal creates a journal; capacity <= 0 selects the default.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = defaultJournalCapacity
	}
	return &Journal{
		entries:  make(map[string][]student.XPChange),
		capacity: capacity,
	}
}

// Append records a change.
func (j *Journal) Append(_ context.Context, change student.XPChange) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	list := append(j.entries[change.StudentID], change)
	if over := len(list) - j.capacity; over > 0 {
		list = append([]student.XPChange(nil), list[over:]...)
	}
	j.entries[change.StudentID] = list
	return nil
}

// ListByStudent returns up to limit entries, newest first. limit <= 0 returns all.
func (j *Journal) ListByStudent(_ context.Context, studentID string, limit int) ([]student.XPChange, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	list := j.entries[studentID]
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]student.XPChange, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

// Forget drops a removed student's history.
func (j *Journal) Forget(studentID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, studentID)
}

var _ student.XPJournal = (*Journal)(nil)
