package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/gradebook/internal/domain/shared"
)

func TestNewStudent(t *testing.T) {
	s, err := NewStudent(NewStudentParams{ID: "s-1", Name: "  ليلى  ", Grade: Grade6})
	require.NoError(t, err)

	assert.Equal(t, "ليلى", s.Name)
	assert.Equal(t, XP(0), s.XP)
	assert.Equal(t, Level(1), s.Level)
	assert.Equal(t, XP(1000), s.XPToNextLevel)
	assert.Equal(t, 100, s.Attendance)
	assert.NotNil(t, s.Badges)
	assert.NotNil(t, s.Assignments)
	assert.NotNil(t, s.Tests)
	assert.NoError(t, s.Validate())
}

func TestNewStudent_Invalid(t *testing.T) {
	s, err := NewStudent(NewStudentParams{Name: "x", Grade: Grade6})
	require.NoError(t, err, "id is assigned by the roster")
	assert.ErrorIs(t, s.Validate(), shared.ErrInvalidStudent)

	_, err = NewStudent(NewStudentParams{ID: "s", Name: " ", Grade: Grade6})
	assert.ErrorIs(t, err, shared.ErrInvalidStudent)

	_, err = NewStudent(NewStudentParams{ID: "s", Name: "x", Grade: "Grade 9"})
	assert.ErrorIs(t, err, shared.ErrInvalidGrade)
}

func TestParseGrade(t *testing.T) {
	cases := map[string]Grade{
		"الصف السابع": Grade7,
		"grade6":      Grade6,
		"GRADE8":      Grade8,
		"7":           Grade7,
		"8th":         Grade8,
		"6th Grade":   Grade6,
	}
	for in, want := range cases {
		got, err := ParseGrade(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseGrade("9")
	assert.ErrorIs(t, err, shared.ErrInvalidGrade)
}

func TestGradeFilter(t *testing.T) {
	f, err := ParseGradeFilter("")
	require.NoError(t, err)
	assert.True(t, f.IsAll())
	assert.True(t, f.Matches(Grade6))

	f, err = ParseGradeFilter("all")
	require.NoError(t, err)
	assert.Equal(t, GradeAll, f)

	f, err = ParseGradeFilter("grade7")
	require.NoError(t, err)
	assert.True(t, f.Matches(Grade7))
	assert.False(t, f.Matches(Grade8))
}

func TestWithXP_Copy(t *testing.T) {
	s := fixture(t, 100)
	c := s.WithXP(2500)

	assert.Equal(t, Level(3), c.Level)
	assert.Equal(t, Level(1), s.Level)

	c.Assignments[0].Score = 1
	assert.Equal(t, 95, s.Assignments[0].Score, "slices must not be shared")
}

func TestValidate(t *testing.T) {
	s := fixture(t, 100)
	require.NoError(t, s.Validate())

	bad := s.Clone()
	bad.Level = 3
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidStudent)

	bad = s.Clone()
	bad.Attendance = 101
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidStudent)

	bad = s.Clone()
	bad.Tests = append(bad.Tests, ScoreEvent{ID: "a1", Category: CategoryTest})
	assert.ErrorIs(t, bad.Validate(), shared.ErrDuplicateEventID)

	bad = s.Clone()
	bad.Assignments = append(bad.Assignments, ScoreEvent{ID: "x", Category: CategoryTest})
	assert.ErrorIs(t, bad.Validate(), shared.ErrInvalidStudent)
}

func TestEditProfile(t *testing.T) {
	s := fixture(t, 4500)

	edited, err := s.EditProfile(ProfileEdit{Name: "أحمد", Grade: Grade7, XP: 800})
	require.NoError(t, err)

	assert.Equal(t, "أحمد", edited.Name)
	assert.Equal(t, Grade7, edited.Grade)
	assert.Equal(t, XP(800), edited.XP)
	assert.Equal(t, Level(1), edited.Level)
	assert.Len(t, edited.Assignments, 2, "ledgers untouched")

	_, err = s.EditProfile(ProfileEdit{Name: "x", Grade: Grade7, XP: -1})
	assert.ErrorIs(t, err, shared.ErrInvalidStudent)

	_, err = s.EditProfile(ProfileEdit{Name: "", Grade: Grade7, XP: 1})
	assert.ErrorIs(t, err, shared.ErrInvalidStudent)
}

func TestAddBadge_AllowsDuplicates(t *testing.T) {
	s := fixture(t, 0)

	s, err := s.AddBadge("نجمة صاعدة")
	require.NoError(t, err)
	s, err = s.AddBadge("نجمة صاعدة")
	require.NoError(t, err)

	assert.Equal(t, []string{"نجمة صاعدة", "نجمة صاعدة"}, s.Badges)
	assert.True(t, s.HasBadge("نجمة صاعدة"))

	_, err = s.AddBadge("   ")
	assert.ErrorIs(t, err, shared.ErrInvalidBadge)
}

func TestRemoveBadge(t *testing.T) {
	s := fixture(t, 0)
	s.Badges = []string{"a", "b", "a"}

	c, n := s.RemoveBadge("a")
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"b"}, c.Badges)
	assert.Equal(t, []string{"a", "b", "a"}, s.Badges)

	_, n = c.RemoveBadge("zzz")
	assert.Zero(t, n)
}

func TestRecentActivity(t *testing.T) {
	s := fixture(t, 0)
	s.Assignments = append(s.Assignments, ScoreEvent{
		ID: "a3", Title: "Same day", Score: 1, MaxScore: 10, Date: MustDate("2023-10-15"), Category: CategoryChallenge,
	})

	got := s.RecentActivity()
	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}

	// a3 precedes t1: same date, assignments come first
	assert.Equal(t, []string{"a3", "t1", "a2", "a1"}, ids)

	timeline := s.ProgressTimeline()
	assert.Equal(t, "a1", timeline[0].ID)
	assert.Equal(t, "t1", timeline[len(timeline)-1].ID)
}

func TestSkillRadarAndCompletion(t *testing.T) {
	s := fixture(t, 0)
	s.Attendance = 90

	radar := s.SkillRadar()
	require.Len(t, radar, 5)
	assert.Equal(t, SkillLogic, radar[0].Subject)
	assert.InDelta(t, 85, radar[0].Value, 1e-9)
	assert.InDelta(t, 91.5, radar[1].Value, 1e-9)
	assert.Zero(t, radar[2].Value)
	assert.InDelta(t, 90, radar[3].Value, 1e-9)
	assert.InDelta(t, 75, radar[4].Value, 1e-9)

	assert.Equal(t, 40, s.CompletionPercent())

	empty, err := NewStudent(NewStudentParams{ID: "e", Name: "e", Grade: Grade6})
	require.NoError(t, err)
	assert.Zero(t, empty.CompletionPercent())
	assert.Zero(t, empty.TestAverage())
}
