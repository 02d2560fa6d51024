package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/gradebook/internal/domain/student"
)

func TestJournal_NewestFirst(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(0)

	for i := 1; i <= 3; i++ {
		require.NoError(t, j.Append(ctx, student.XPChange{StudentID: "s1", OldXP: student.XP(i - 1), NewXP: student.XP(i)}))
	}
	require.NoError(t, j.Append(ctx, student.XPChange{StudentID: "s2", NewXP: 9}))

	list, err := j.ListByStudent(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, student.XP(3), list[0].NewXP)
	assert.Equal(t, student.XP(1), list[2].NewXP)

	list, err = j.ListByStudent(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = j.ListByStudent(ctx, "nobody", 5)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestJournal_CapacityAndForget(t *testing.T) {
	ctx := context.Background()
	j := NewJournal(2)

	for i := 1; i <= 5; i++ {
		require.NoError(t, j.Append(ctx, student.XPChange{StudentID: "s1", NewXP: student.XP(i)}))
	}

	list, err := j.ListByStudent(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, student.XP(5), list[0].NewXP)
	assert.Equal(t, student.XP(4), list[1].NewXP)

	j.Forget("s1")
	list, err = j.ListByStudent(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
