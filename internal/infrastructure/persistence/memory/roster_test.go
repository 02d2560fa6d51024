package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

func newStudent(t *testing.T, id, name string, grade student.Grade, xp student.XP) student.Student {
	t.Helper()
	s, err := student.NewStudent(student.NewStudentParams{ID: id, Name: name, Grade: grade})
	require.NoError(t, err)
	return s.WithXP(xp)
}

func seededRoster(t *testing.T, opts ...RosterOption) *Roster {
	t.Helper()
	r, err := NewRoster([]student.Student{
		newStudent(t, "s1", "أحمد علي", student.Grade8, 4500),
		newStudent(t, "s2", "سارة محمد", student.Grade7, 3200),
		newStudent(t, "s3", "يوسف خالد", student.Grade8, 2800),
		newStudent(t, "s4", "ميار أحمد", student.Grade7, 2500),
	}, opts...)
	require.NoError(t, err)
	return r
}

func studentIDs(students []student.Student) []string {
	out := make([]string, len(students))
	for i, s := range students {
		out[i] = s.ID
	}
	return out
}

func TestNewRoster_RejectsInvalidSeed(t *testing.T) {
	s := newStudent(t, "s1", "x", student.Grade6, 100)
	s.Level = 9

	_, err := NewRoster([]student.Student{s})
	assert.ErrorIs(t, err, shared.ErrInvalidStudent)

	ok := newStudent(t, "s1", "x", student.Grade6, 100)
	_, err = NewRoster([]student.Student{ok, ok})
	assert.ErrorIs(t, err, shared.ErrStudentExists)
}

func TestRoster_FindByID(t *testing.T) {
	ctx := context.Background()
	r := seededRoster(t)

	s, err := r.FindByID(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "سارة محمد", s.Name)

	_, err = r.FindByID(ctx, "S2")
	assert.ErrorIs(t, err, shared.ErrUnknownStudentID)

	s, err = r.FindByIDFold(ctx, " S2 ")
	require.NoError(t, err)
	assert.Equal(t, "s2", s.ID)
}

func TestRoster_ReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	r := seededRoster(t)

	s, err := r.FindByID(ctx, "s1")
	require.NoError(t, err)
	s.Badges = append(s.Badges, "leak")
	s.Name = "changed"

	again, err := r.FindByID(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.Badges)
	assert.Equal(t, "أحمد علي", again.Name)
}

func TestRoster_FilterByGrade(t *testing.T) {
	ctx := context.Background()
	r := seededRoster(t)

	all, err := r.FilterByGrade(ctx, student.GradeAll)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "s2", "s3", "s4"}, studentIDs(all))

	g8, err := r.FilterByGrade(ctx, student.FilterFor(student.Grade8))
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s3"}, studentIDs(g8))

	g6, err := r.FilterByGrade(ctx, student.FilterFor(student.Grade6))
	require.NoError(t, err)
	assert.Empty(t, g6)
}

func TestRoster_AddAssignsFreshIDAndAppends(t *testing.T) {
	ctx := context.Background()
	n := 0
	ids := []string{"s1", "s2", "s-new"}
	r := seededRoster(t, WithIDGenerator(func() string { id := ids[n]; n++; return id }))

	fresh, err := student.NewStudent(student.NewStudentParams{Name: "ليلى", Grade: student.Grade7})
	require.NoError(t, err)

	stored, err := r.Add(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, "s-new", stored.ID)
	assert.Equal(t, student.XP(0), stored.XP)
	assert.Equal(t, student.Level(1), stored.Level)
	assert.Equal(t, 100, stored.Attendance)

	g7, err := r.FilterByGrade(ctx, student.FilterFor(student.Grade7))
	require.NoError(t, err)
	assert.Equal(t, []string{"s2", "s4", "s-new"}, studentIDs(g7))

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRoster_AddDefaultIDs(t *testing.T) {
	ctx := context.Background()
	r := seededRoster(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		s, err := student.NewStudent(student.NewStudentParams{Name: fmt.Sprintf("n%d", i), Grade: student.Grade6})
		require.NoError(t, err)
		stored, err := r.Add(ctx, s)
		require.NoError(t, err)
		assert.Regexp(t, `^s-[0-9a-f]{8}$`, stored.ID)
		assert.False(t, seen[stored.ID])
		seen[stored.ID] = true
	}
}

func TestRoster_Replace(t *testing.T) {
	ctx := context.Background()
	r := seededRoster(t)

	s, err := r.FindByID(ctx, "s4")
	require.NoError(t, err)

	updated, _, err := student.CreateScore(s, student.ScoreDraft{
		Title: "Quiz", Category: student.CategoryTest, Score: 60, MaxScore: 100, Date: time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC),
	}, func() string { return "n-1" })
	require.NoError(t, err)
	require.NoError(t, r.Replace(ctx, updated))

	got, err := r.FindByID(ctx, "s4")
	require.NoError(t, err)
	assert.Equal(t, student.XP(2560), got.XP)
	assert.Len(t, got.Tests, 1)

	ghost := updated
	ghost.ID = "ghost"
	assert.ErrorIs(t, r.Replace(ctx, ghost), shared.ErrUnknownStudentID)

	broken := updated
	broken.Level = 7
	assert.ErrorIs(t, r.Replace(ctx, broken), shared.ErrInvalidStudent)
}

func TestRoster_RemoveAndClearSelection(t *testing.T) {
	ctx := context.Background()
	r := seededRoster(t)
	selected := "s3"

	removed, err := r.Remove(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, "s3", removed.ID)

	// the store never clears references held elsewhere
	if removed.ID == selected {
		selected = ""
	}
	assert.Empty(t, selected)

	_, err = r.FindByID(ctx, "s3")
	assert.ErrorIs(t, err, shared.ErrUnknownStudentID)

	all, err := r.FilterByGrade(ctx, student.GradeAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s4"}, studentIDs(all))

	_, err = r.Remove(ctx, "s3")
	assert.True(t, shared.IsNotFound(err))
}
