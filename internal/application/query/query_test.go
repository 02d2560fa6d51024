package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/internal/infrastructure/persistence/memory"
)

func mk(t *testing.T, id, name string, grade student.Grade, xp student.XP, attendance int) student.Student {
	t.Helper()
	s, err := student.NewStudent(student.NewStudentParams{ID: id, Name: name, Grade: grade})
	require.NoError(t, err)
	s = s.WithXP(xp)
	s.Attendance = attendance
	return s
}

func work(id, title string, c student.Category, score, max int, date string) student.ScoreEvent {
	return student.ScoreEvent{ID: id, Title: title, Category: c, Score: score, MaxScore: max, Date: student.MustDate(date)}
}

// classroom: s1 g8 4500, s2 g8 3200, s3 g7 3200, s4 g7 2500, s5 g6 5100.
func classroom(t *testing.T) *memory.Roster {
	t.Helper()

	s1 := mk(t, "s1", "Ahmad", student.Grade8, 4500, 95)
	s1.Assignments = []student.ScoreEvent{
		work("a1", "Loops", student.CategoryHomework, 95, 100, "2023-10-01"),
		work("a2", "Web Page", student.CategoryProject, 88, 100, "2023-10-05"),
	}
	s1.Tests = []student.ScoreEvent{work("t1", "Logic", student.CategoryTest, 85, 100, "2023-10-15")}

	s2 := mk(t, "s2", "Mayar", student.Grade8, 3200, 90)
	s2.Assignments = []student.ScoreEvent{
		work("a1", "Loops", student.CategoryHomework, 40, 50, "2023-10-01"),
	}

	s3 := mk(t, "s3", "Omar", student.Grade7, 3200, 80)
	s4 := mk(t, "s4", "Laila", student.Grade7, 2500, 100)
	s4.Assignments = []student.ScoreEvent{
		work("a9", "Game", student.CategoryChallenge, 30, 40, "2023-09-20"),
	}
	s5 := mk(t, "s5", "Yusuf", student.Grade6, 5100, 70)

	roster, err := memory.NewRoster([]student.Student{s1, s2, s3, s4, s5})
	require.NoError(t, err)
	return roster
}

func TestListStudents(t *testing.T) {
	h := NewListStudentsHandler(classroom(t))

	all, err := h.Handle(context.Background(), ListStudentsQuery{})
	require.NoError(t, err)
	assert.Equal(t, "All", all.Grade)
	require.Len(t, all.Students, 5)
	assert.Equal(t, "s1", all.Students[0].ID)
	assert.Equal(t, 5, all.Students[0].Level)
	assert.Equal(t, 50, all.Students[0].LevelProgress)

	g7, err := h.Handle(context.Background(), ListStudentsQuery{Grade: student.FilterFor(student.Grade7)})
	require.NoError(t, err)
	require.Len(t, g7.Students, 2)
	assert.Equal(t, "s3", g7.Students[0].ID)
	assert.Equal(t, "s4", g7.Students[1].ID)
}

func TestGetDashboard_AllGrades(t *testing.T) {
	h := NewGetDashboardHandler(classroom(t))

	res, err := h.Handle(context.Background(), GetDashboardQuery{Grade: student.GradeAll})
	require.NoError(t, err)

	assert.Equal(t, 5, res.StudentCount)
	assert.Equal(t, 87, res.AverageAttendance) // 435 / 5
	assert.Equal(t, 18500, res.TotalXP)
	require.NotNil(t, res.TopStudent)
	assert.Equal(t, "s5", res.TopStudent.ID)

	require.Len(t, res.Assignments, 3)
	assert.Equal(t, TitleAverageDTO{Title: "Loops", Percent: 88, Submissions: 2}, res.Assignments[0]) // (95 + 80) / 2
	assert.Equal(t, TitleAverageDTO{Title: "Web Page", Percent: 88, Submissions: 1}, res.Assignments[1])
	assert.Equal(t, TitleAverageDTO{Title: "Game", Percent: 75, Submissions: 1}, res.Assignments[2])
}

func TestGetDashboard_TieGoesToLaterStudent(t *testing.T) {
	roster, err := memory.NewRoster([]student.Student{
		mk(t, "x1", "First", student.Grade7, 3000, 90),
		mk(t, "x2", "Second", student.Grade7, 3000, 91),
	})
	require.NoError(t, err)
	res, err := NewGetDashboardHandler(roster).Handle(context.Background(), GetDashboardQuery{})
	require.NoError(t, err)
	require.NotNil(t, res.TopStudent)
	assert.Equal(t, "x2", res.TopStudent.ID)
	assert.Equal(t, 91, res.AverageAttendance) // 90.5 rounds up
}

func TestGetDashboard_EmptyGrade(t *testing.T) {
	roster, err := memory.NewRoster([]student.Student{mk(t, "s1", "A", student.Grade8, 10, 90)})
	require.NoError(t, err)

	res, err := NewGetDashboardHandler(roster).Handle(context.Background(), GetDashboardQuery{Grade: student.FilterFor(student.Grade6)})
	require.NoError(t, err)

	assert.Zero(t, res.StudentCount)
	assert.Zero(t, res.AverageAttendance)
	assert.Zero(t, res.TotalXP)
	assert.Nil(t, res.TopStudent)
	assert.Empty(t, res.Assignments)
}

func TestGetStudentDetail(t *testing.T) {
	roster := classroom(t)
	journal := memory.NewJournal(0)
	s1, err := roster.FindByID(context.Background(), "s1")
	require.NoError(t, err)
	require.NoError(t, journal.Append(context.Background(), student.NewXPChange(s1.WithXP(4400), s1, student.XPReasonScoreCreated, "a2", s1.Tests[0].Date)))

	at := s1.Tests[0].Date
	h := NewGetStudentDetailHandler(roster, journal).WithClock(func() time.Time { return at.Add(2 * time.Hour) })
	res, err := h.Handle(context.Background(), GetStudentDetailQuery{StudentID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, "Ahmad", res.Profile.Name)
	assert.Equal(t, 1, res.ClassRank)
	assert.Equal(t, 2, res.ClassSize)

	ids := func(events []ScoreEventDTO) []string {
		out := make([]string, len(events))
		for i, e := range events {
			out[i] = e.ID
		}
		return out
	}
	assert.Equal(t, []string{"t1", "a2", "a1"}, ids(res.RecentActivity))
	assert.Equal(t, []string{"a1", "a2", "t1"}, ids(res.Timeline))

	assert.InDelta(t, 85.0, res.TestAverage, 0.001)
	assert.Equal(t, 40, res.CompletionPercent)
	assert.Equal(t, 268, res.LedgerTotal)
	require.Len(t, res.Radar, 5)
	assert.InDelta(t, 95.0, res.Radar[1].Value, 0.001)
	assert.InDelta(t, 75.0, res.Radar[4].Value, 0.001)

	require.Len(t, res.XPHistory, 1)
	assert.Equal(t, 100, res.XPHistory[0].Delta)
	assert.Equal(t, "a2", res.XPHistory[0].EventID)
	assert.Equal(t, "2 h ago", res.XPHistory[0].Ago)
}

func TestGetStudentDetail_Errors(t *testing.T) {
	h := NewGetStudentDetailHandler(classroom(t), nil)

	_, err := h.Handle(context.Background(), GetStudentDetailQuery{StudentID: "nobody"})
	assert.ErrorIs(t, err, shared.ErrUnknownStudentID)

	_, err = h.Handle(context.Background(), GetStudentDetailQuery{})
	assert.ErrorIs(t, err, shared.ErrUnknownStudentID)

	res, err := h.Handle(context.Background(), GetStudentDetailQuery{StudentID: "s5"})
	require.NoError(t, err)
	assert.Empty(t, res.XPHistory)
	assert.Equal(t, 0, res.CompletionPercent)
}

func TestGetLeaderboard_TeacherView(t *testing.T) {
	h := NewGetLeaderboardHandler(classroom(t))

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.True(t, res.IsTeacherView())
	assert.Equal(t, 5, res.TotalCount)

	require.Len(t, res.Podium, 3)
	assert.Equal(t, "s5", res.Podium[0].StudentID)
	assert.Equal(t, "s1", res.Podium[1].StudentID)
	assert.Equal(t, "s2", res.Podium[2].StudentID, "equal xp keeps roster order")
	require.Len(t, res.Rest, 2)
	assert.Equal(t, 4, res.Rest[0].Rank)
	assert.Equal(t, "s3", res.Rest[0].StudentID)

	g7, err := h.Handle(context.Background(), GetLeaderboardQuery{Grade: student.FilterFor(student.Grade7)})
	require.NoError(t, err)
	require.Len(t, g7.Podium, 2)
	assert.Empty(t, g7.Rest)
	assert.Equal(t, 1, g7.Podium[0].Rank)
}

func TestGetLeaderboard_StudentViewRanksClassmatesOnly(t *testing.T) {
	h := NewGetLeaderboardHandler(classroom(t))

	res, err := h.Handle(context.Background(), GetLeaderboardQuery{ViewerID: "s4", Grade: student.GradeAll})
	require.NoError(t, err)

	assert.Equal(t, student.Grade7.String(), res.Grade)
	assert.Equal(t, 2, res.TotalCount)
	require.NotNil(t, res.Viewer)
	assert.Equal(t, 2, res.Viewer.Entry.Rank)
	assert.True(t, res.Viewer.InPodium)
	assert.Equal(t, 700, res.Viewer.XPBehind)
	assert.True(t, res.Podium[1].IsViewer)
	assert.False(t, res.Podium[0].IsViewer)

	_, err = h.Handle(context.Background(), GetLeaderboardQuery{ViewerID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrUnknownStudentID)
}

func TestGetStudentRank(t *testing.T) {
	h := NewGetStudentRankHandler(classroom(t))

	res, err := h.Handle(context.Background(), GetStudentRankQuery{StudentID: "s2"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.ClassRank)
	assert.Equal(t, 2, res.ClassSize)
	assert.Equal(t, 3, res.OverallRank)
	assert.Equal(t, 5, res.OverallSize)
	assert.InDelta(t, 0.0, res.Percentile, 0.001)
	assert.Equal(t, 1301, res.XPToNextRank)
	require.Len(t, res.Neighbors, 2)

	_, err = h.Handle(context.Background(), GetStudentRankQuery{StudentID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrUnknownStudentID)

	_, err = h.Handle(context.Background(), GetStudentRankQuery{})
	assert.True(t, shared.IsValidation(err))
}

type stubMirror struct {
	leaderboard.Mirror
	standings []leaderboard.Standing
}

func (m stubMirror) Top(_ context.Context, _ student.GradeFilter, limit int) ([]leaderboard.Standing, error) {
	if limit < len(m.standings) {
		return m.standings[:limit], nil
	}
	return m.standings, nil
}

func TestVerifyMirror(t *testing.T) {
	roster := classroom(t)
	g8 := student.FilterFor(student.Grade8)

	inSync := stubMirror{standings: []leaderboard.Standing{
		{Rank: 1, StudentID: "s1", XP: 4500},
		{Rank: 2, StudentID: "s2", XP: 3200},
	}}
	res, err := NewVerifyMirrorHandler(roster, inSync).Handle(context.Background(), VerifyMirrorQuery{Grade: g8})
	require.NoError(t, err)
	assert.True(t, res.InSync())

	// Ties may be ordered differently by the mirror.
	tied := stubMirror{standings: []leaderboard.Standing{
		{Rank: 1, StudentID: "s5", XP: 5100},
		{Rank: 2, StudentID: "s1", XP: 4500},
		{Rank: 3, StudentID: "s3", XP: 3200},
		{Rank: 4, StudentID: "s2", XP: 3200},
		{Rank: 5, StudentID: "s4", XP: 2500},
	}}
	res, err = NewVerifyMirrorHandler(roster, tied).Handle(context.Background(), VerifyMirrorQuery{})
	require.NoError(t, err)
	assert.True(t, res.InSync())

	stale := stubMirror{standings: []leaderboard.Standing{
		{Rank: 1, StudentID: "s1", XP: 4400},
		{Rank: 2, StudentID: "s2", XP: 3200},
		{Rank: 3, StudentID: "gone", XP: 10},
	}}
	res, err = NewVerifyMirrorHandler(roster, stale).Handle(context.Background(), VerifyMirrorQuery{Grade: g8})
	require.NoError(t, err)
	assert.False(t, res.InSync())
	require.Len(t, res.Mismatches, 2)
	assert.Equal(t, 1, res.Mismatches[0].Rank)
	assert.Equal(t, "gone", res.Mismatches[1].MirrorID)
}
