package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD MIRROR
// ══════════════════════════════════════════════════════════════════════════════

// ErrStudentIDEmpty is returned when an operation needs a student id.
var ErrStudentIDEmpty = errors.New("leaderboard_mirror: student id is empty")

// scopeAll is the sorted set holding every student.
const scopeAll = "all"

// LeaderboardMirror mirrors student XP into Redis sorted sets.
//
// Architecture:
//   - Sorted Set "gradebook:leaderboard:xp:all" stores studentID -> XP
//   - Sorted Set "gradebook:leaderboard:xp:{grade6|grade7|grade8}" per grade
//   - String "gradebook:leaderboard:meta" stores the last Sync metadata
//
// Redis orders equal scores by member, so ties may differ from roster order.
type LeaderboardMirror struct {
	cache *Cache
	now   func() time.Time
}

// MirrorMeta is written on every Sync.
type MirrorMeta struct {
	SyncedAt time.Time `json:"synced_at"`
	Students int       `json:"students"`
	TotalXP  int64     `json:"total_xp"`
}

var _ leaderboard.Mirror = (*LeaderboardMirror)(nil)

// NewLeaderboardMirror creates a new LeaderboardMirror.
func NewLeaderboardMirror(cache *Cache) *LeaderboardMirror {
	return &LeaderboardMirror{cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// ScopeKey returns the sorted set key for a grade filter.
func (m *LeaderboardMirror) ScopeKey(filter student.GradeFilter) string {
	if filter == "" || filter.IsAll() {
		return m.cache.Key("leaderboard", "xp", scopeAll)
	}
	return m.cache.Key("leaderboard", "xp", student.Grade(filter).Slug())
}

// MetaKey returns the metadata key.
func (m *LeaderboardMirror) MetaKey() string {
	return m.cache.Key("leaderboard", "meta")
}

func (m *LeaderboardMirror) allKeys() []string {
	keys := []string{m.ScopeKey(student.GradeAll)}
	for _, g := range student.Grades() {
		keys = append(keys, m.ScopeKey(student.FilterFor(g)))
	}
	return keys
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Sync clears every scope and reloads it from the given students atomically.
func (m *LeaderboardMirror) Sync(ctx context.Context, students []student.Student) error {
	pipe := m.cache.Client().TxPipeline()
	pipe.Del(ctx, m.allKeys()...)

	byScope := make(map[string][]redis.Z)
	var total int64
	for _, s := range students {
		z := redis.Z{Score: float64(s.XP), Member: s.ID}
		byScope[m.ScopeKey(student.GradeAll)] = append(byScope[m.ScopeKey(student.GradeAll)], z)
		if s.Grade.IsValid() {
			key := m.ScopeKey(student.FilterFor(s.Grade))
			byScope[key] = append(byScope[key], z)
		}
		total += int64(s.XP)
	}
	for key, members := range byScope {
		pipe.ZAdd(ctx, key, members...)
	}

	meta, err := json.Marshal(MirrorMeta{SyncedAt: m.now(), Students: len(students), TotalXP: total})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	pipe.Set(ctx, m.MetaKey(), meta, 0)

	_, err = pipe.Exec(ctx)
	return err
}

// Upsert writes the student's XP to the overall and grade sets. When the
// grade changed, the entry is moved out of the previous grade's set.
func (m *LeaderboardMirror) Upsert(ctx context.Context, s student.Student, previousGrade student.Grade) error {
	if s.ID == "" {
		return ErrStudentIDEmpty
	}

	z := redis.Z{Score: float64(s.XP), Member: s.ID}
	pipe := m.cache.Client().TxPipeline()
	pipe.ZAdd(ctx, m.ScopeKey(student.GradeAll), z)
	pipe.ZAdd(ctx, m.ScopeKey(student.FilterFor(s.Grade)), z)
	if previousGrade.IsValid() && previousGrade != s.Grade {
		pipe.ZRem(ctx, m.ScopeKey(student.FilterFor(previousGrade)), s.ID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Remove deletes the student from the overall set and its grade set.
// An unknown grade removes it from every grade set.
func (m *LeaderboardMirror) Remove(ctx context.Context, studentID string, grade student.Grade) error {
	if studentID == "" {
		return ErrStudentIDEmpty
	}

	pipe := m.cache.Client().Pipeline()
	if grade.IsValid() {
		pipe.ZRem(ctx, m.ScopeKey(student.GradeAll), studentID)
		pipe.ZRem(ctx, m.ScopeKey(student.FilterFor(grade)), studentID)
	} else {
		for _, key := range m.allKeys() {
			pipe.ZRem(ctx, key, studentID)
		}
	}
	_, err := pipe.Exec(ctx)
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// READ OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Top returns the first limit standings; limit <= 0 returns all of them.
func (m *LeaderboardMirror) Top(ctx context.Context, filter student.GradeFilter, limit int) ([]leaderboard.Standing, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	members, err := m.cache.Client().ZRevRangeWithScores(ctx, m.ScopeKey(filter), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	return standingsFrom(members), nil
}

// RankOf returns the 1-based rank or leaderboard.ErrNotRanked.
func (m *LeaderboardMirror) RankOf(ctx context.Context, filter student.GradeFilter, studentID string) (leaderboard.Rank, error) {
	if studentID == "" {
		return 0, ErrStudentIDEmpty
	}

	rank, err := m.cache.Client().ZRevRank(ctx, m.ScopeKey(filter), studentID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, leaderboard.ErrNotRanked
		}
		return 0, err
	}
	return leaderboard.Rank(rank + 1), nil
}

// Meta returns the metadata of the last Sync or ErrCacheMiss.
func (m *LeaderboardMirror) Meta(ctx context.Context) (*MirrorMeta, error) {
	var meta MirrorMeta
	if err := m.cache.Get(ctx, m.MetaKey(), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func standingsFrom(members []redis.Z) []leaderboard.Standing {
	out := make([]leaderboard.Standing, 0, len(members))
	for i, z := range members {
		id, ok := z.Member.(string)
		if !ok {
			id = fmt.Sprint(z.Member)
		}
		out = append(out, leaderboard.Standing{
			Rank:      leaderboard.Rank(i + 1),
			StudentID: id,
			XP:        student.XP(z.Score),
		})
	}
	return out
}
