package redis

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// offlineMirror builds a mirror over a client that is never dialed.
func offlineMirror(t *testing.T, prefix string) *LeaderboardMirror {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultConfig()
	cfg.KeyPrefix = prefix
	return NewLeaderboardMirror(NewCacheFromClient(client, cfg))
}

func TestScopeKeys(t *testing.T) {
	m := offlineMirror(t, "")

	assert.Equal(t, "gradebook:leaderboard:xp:all", m.ScopeKey(student.GradeAll))
	assert.Equal(t, "gradebook:leaderboard:xp:all", m.ScopeKey(""))
	assert.Equal(t, "gradebook:leaderboard:xp:grade6", m.ScopeKey(student.FilterFor(student.Grade6)))
	assert.Equal(t, "gradebook:leaderboard:xp:grade8", m.ScopeKey(student.FilterFor(student.Grade8)))
	assert.Equal(t, "gradebook:leaderboard:meta", m.MetaKey())

	assert.Equal(t, []string{
		"gradebook:leaderboard:xp:all",
		"gradebook:leaderboard:xp:grade6",
		"gradebook:leaderboard:xp:grade7",
		"gradebook:leaderboard:xp:grade8",
	}, m.allKeys())
}

func TestScopeKeys_CustomPrefix(t *testing.T) {
	m := offlineMirror(t, "test:")
	assert.Equal(t, "test:leaderboard:xp:grade7", m.ScopeKey(student.FilterFor(student.Grade7)))
}

func TestStandingsFrom(t *testing.T) {
	got := standingsFrom([]redis.Z{
		{Score: 5100, Member: "s5"},
		{Score: 4500, Member: "s1"},
	})

	require.Len(t, got, 2)
	assert.Equal(t, leaderboard.Standing{Rank: 1, StudentID: "s5", XP: 5100}, got[0])
	assert.Equal(t, leaderboard.Standing{Rank: 2, StudentID: "s1", XP: 4500}, got[1])
	assert.Empty(t, standingsFrom(nil))
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:6379", cfg.Addr())

	bad := cfg
	bad.Port = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.DB = 16
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Host = ""
	assert.Error(t, bad.Validate())
}

func TestEmptyStudentIDRejected(t *testing.T) {
	m := offlineMirror(t, "")

	err := m.Upsert(context.Background(), student.Student{}, "")
	assert.ErrorIs(t, err, ErrStudentIDEmpty)

	err = m.Remove(context.Background(), "", student.Grade6)
	assert.ErrorIs(t, err, ErrStudentIDEmpty)

	_, err = m.RankOf(context.Background(), student.GradeAll, "")
	assert.ErrorIs(t, err, ErrStudentIDEmpty)
}
