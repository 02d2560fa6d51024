package student

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/gradebook/internal/domain/shared"
)

func sequence(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func fixture(t *testing.T, xp XP) Student {
	t.Helper()
	s, err := NewStudent(NewStudentParams{ID: "s1", Name: "أحمد علي", Grade: Grade8})
	require.NoError(t, err)
	s = s.WithXP(xp)
	s.Assignments = []ScoreEvent{
		{ID: "a1", Title: "Intro", Score: 95, MaxScore: 100, Date: MustDate("2023-10-01"), Category: CategoryHomework},
		{ID: "a2", Title: "Loops", Score: 88, MaxScore: 100, Date: MustDate("2023-10-08"), Category: CategoryHomework},
	}
	s.Tests = []ScoreEvent{
		{ID: "t1", Title: "Logic", Score: 85, MaxScore: 100, Date: MustDate("2023-10-15"), Category: CategoryTest},
	}
	return s
}

func draft(title string, c Category, score int) ScoreDraft {
	return ScoreDraft{Title: title, Category: c, Score: score, MaxScore: 100, Date: MustDate("2023-11-05")}
}

func TestCreateScore_Additive(t *testing.T) {
	s := fixture(t, 4500)

	updated, change, err := CreateScore(s, draft("Debugging", CategoryChallenge, 50), sequence("n-"))
	require.NoError(t, err)

	assert.Equal(t, XP(4550), updated.XP)
	assert.Equal(t, Level(5), updated.Level)
	assert.Equal(t, XP(5000), updated.XPToNextLevel)
	assert.Len(t, updated.Assignments, 3)
	assert.Len(t, updated.Tests, 1)
	assert.Equal(t, "n-1", change.Event.ID)
	assert.Equal(t, LedgerAssignments, change.To)
	assert.Equal(t, XP(50), change.Delta())

	// original untouched
	assert.Equal(t, XP(4500), s.XP)
	assert.Len(t, s.Assignments, 2)
}

func TestCreateScore_TestGoesToTestLedger(t *testing.T) {
	s := fixture(t, 990)

	updated, change, err := CreateScore(s, draft("Final", CategoryTest, 20), sequence("n-"))
	require.NoError(t, err)

	assert.Len(t, updated.Tests, 2)
	assert.Len(t, updated.Assignments, 2)
	assert.Equal(t, LedgerTests, change.To)
	assert.Equal(t, Level(2), updated.Level, "crossing 1000 levels up")
	assert.True(t, updated.LevelConsistent())
}

func TestCreateScore_SkipsCollidingIDs(t *testing.T) {
	s := fixture(t, 0)
	ids := []string{"a1", "t1", "", "fresh"}
	i := 0
	next := func() string { id := ids[i]; i++; return id }

	updated, change, err := CreateScore(s, draft("x", CategoryHomework, 1), next)
	require.NoError(t, err)
	assert.Equal(t, "fresh", change.Event.ID)
	assert.True(t, updated.HasEvent("fresh"))
}

func TestCreateScore_ExhaustedIDs(t *testing.T) {
	s := fixture(t, 0)
	_, _, err := CreateScore(s, draft("x", CategoryHomework, 1), func() string { return "a1" })
	assert.ErrorIs(t, err, shared.ErrDuplicateEventID)
}

func TestCreateScore_InvalidDraft(t *testing.T) {
	s := fixture(t, 100)
	cases := map[string]ScoreDraft{
		"empty title":    {Title: "  ", Category: CategoryHomework, Score: 1, MaxScore: 10, Date: MustDate("2023-01-01")},
		"negative score": {Title: "x", Category: CategoryHomework, Score: -5, MaxScore: 10, Date: MustDate("2023-01-01")},
		"zero max":       {Title: "x", Category: CategoryHomework, Score: 5, MaxScore: 0, Date: MustDate("2023-01-01")},
		"bad category":   {Title: "x", Category: "Quiz", Score: 5, MaxScore: 10, Date: MustDate("2023-01-01")},
		"no date":        {Title: "x", Category: CategoryTest, Score: 5, MaxScore: 10},
	}

	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := CreateScore(s, d, sequence("n-"))
			assert.ErrorIs(t, err, shared.ErrInvalidScoreEvent)
			assert.True(t, shared.IsValidation(err))
		})
	}
}

func TestCreateScore_ScoreAboveMaxAllowed(t *testing.T) {
	s := fixture(t, 0)
	d := draft("bonus", CategoryProject, 120)

	updated, _, err := CreateScore(s, d, sequence("n-"))
	require.NoError(t, err)
	assert.Equal(t, XP(120), updated.XP)
}

func TestUpdateScore_DeltaOnly(t *testing.T) {
	s := fixture(t, 4500)

	d := ScoreDraft{Title: "Logic", Category: CategoryTest, Score: 95, MaxScore: 500, Date: MustDate("2023-10-15")}
	updated, change, err := UpdateScore(s, "t1", d)
	require.NoError(t, err)

	assert.Equal(t, XP(4510), updated.XP, "+10 regardless of maxScore")
	require.NotNil(t, change.Previous)
	assert.Equal(t, 85, change.Previous.Score)
	assert.Equal(t, 95, updated.Tests[0].Score)
	assert.Equal(t, 500, updated.Tests[0].MaxScore)
	assert.False(t, change.Moved())
}

func TestUpdateScore_InPlaceWithinLedger(t *testing.T) {
	s := fixture(t, 1000)

	updated, change, err := UpdateScore(s, "a1", draft("Intro v2", CategoryProject, 95))
	require.NoError(t, err)

	assert.Equal(t, "a1", updated.Assignments[0].ID, "position preserved")
	assert.Equal(t, CategoryProject, updated.Assignments[0].Category)
	assert.Equal(t, "Intro v2", updated.Assignments[0].Title)
	assert.Equal(t, XP(1000), updated.XP)
	assert.False(t, change.Moved())
}

func TestUpdateScore_MovesBetweenLedgers(t *testing.T) {
	s := fixture(t, 1000)

	updated, change, err := UpdateScore(s, "a1", draft("Intro exam", CategoryTest, 90))
	require.NoError(t, err)

	assert.True(t, change.Moved())
	assert.Equal(t, LedgerAssignments, change.From)
	assert.Equal(t, LedgerTests, change.To)
	assert.Len(t, updated.Assignments, 1)
	assert.Len(t, updated.Tests, 2)
	assert.Equal(t, "a1", updated.Tests[1].ID)
	assert.Equal(t, XP(995), updated.XP)
	assert.Equal(t, Level(1), updated.Level)
	assert.NoError(t, updated.Validate())

	back, change, err := UpdateScore(updated, "a1", draft("Intro", CategoryHomework, 95))
	require.NoError(t, err)
	assert.Equal(t, LedgerTests, change.From)
	assert.Len(t, back.Assignments, 2)
	assert.Len(t, back.Tests, 1)
	assert.Equal(t, XP(1000), back.XP)
}

func TestUpdateScore_NegativeResultNotClamped(t *testing.T) {
	s := fixture(t, 10)

	updated, _, err := UpdateScore(s, "a1", draft("Intro", CategoryHomework, 0))
	require.NoError(t, err)

	assert.Equal(t, XP(-85), updated.XP)
	assert.Equal(t, Level(1), updated.Level)
	assert.Equal(t, XP(1000), updated.XPToNextLevel)
	assert.True(t, updated.LevelConsistent())
}

func TestUpdateScore_UnknownID(t *testing.T) {
	s := fixture(t, 10)

	_, _, err := UpdateScore(s, "missing", draft("x", CategoryHomework, 1))
	assert.ErrorIs(t, err, shared.ErrUnknownEventID)
	assert.True(t, shared.IsNotFound(err))

	_, _, err = UpdateScore(s, "", draft("x", CategoryHomework, 1))
	assert.ErrorIs(t, err, shared.ErrUnknownEventID)
}

func TestDeleteScore_ClampsAtZero(t *testing.T) {
	s := fixture(t, 500)
	s.Tests[0].Score = 800

	updated, change, err := DeleteScore(s, "t1")
	require.NoError(t, err)

	assert.Equal(t, XP(0), updated.XP)
	assert.Equal(t, Level(1), updated.Level)
	assert.Empty(t, updated.Tests)
	assert.Equal(t, 800, change.Event.Score)
	assert.Equal(t, XP(-500), change.Delta())
}

func TestDeleteScore_UnknownID(t *testing.T) {
	s := fixture(t, 500)

	_, _, err := DeleteScore(s, "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUnknownEventID))
}

func TestCreateThenDelete_RoundTrip(t *testing.T) {
	s := fixture(t, 2345)

	for _, c := range Categories() {
		created, change, err := CreateScore(s, draft("rt", c, 77), sequence("n-"))
		require.NoError(t, err)

		restored, _, err := DeleteScore(created, change.Event.ID)
		require.NoError(t, err)

		assert.Equal(t, s.XP, restored.XP, c)
		assert.Equal(t, s.Level, restored.Level, c)
		assert.False(t, restored.HasEvent(change.Event.ID), c)
		assert.Equal(t, s.Assignments, restored.Assignments, c)
		assert.Equal(t, s.Tests, restored.Tests, c)
	}
}

func TestLedgerOps_KeepInvariant(t *testing.T) {
	s := fixture(t, 980)
	next := sequence("n-")

	s, c1, err := CreateScore(s, draft("p", CategoryProject, 40), next)
	require.NoError(t, err)
	assert.True(t, s.LevelConsistent())

	s, _, err = UpdateScore(s, c1.Event.ID, draft("p", CategoryTest, 5))
	require.NoError(t, err)
	assert.True(t, s.LevelConsistent())

	s, _, err = DeleteScore(s, "a2")
	require.NoError(t, err)
	assert.True(t, s.LevelConsistent())
	assert.NoError(t, s.Validate())
}

func TestLedgerTotal_MayDriftFromXP(t *testing.T) {
	s := fixture(t, 4500)
	assert.Equal(t, 95+88+85, s.LedgerTotal())
	assert.NotEqual(t, int(s.XP), s.LedgerTotal())
}
