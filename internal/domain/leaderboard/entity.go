// Package leaderboard содержит доменную модель рейтинга класса.
// Рейтинг строится из Roster по XP и никогда не хранится как источник истины:
// любое представление (память, Redis) пересобирается из учеников.
package leaderboard

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Rank представляет позицию ученика в рейтинге.
// Rank начинается с 1 (первое место).
type Rank int

// IsValid проверяет, что ранг положительный.
func (r Rank) IsValid() bool {
	return r > 0
}

// IsPodium возвращает true для первых трёх мест.
func (r Rank) IsPodium() bool {
	return r >= 1 && r <= PodiumSize
}

// String возвращает строковое представление ранга.
func (r Rank) String() string {
	return fmt.Sprintf("#%d", r)
}

// PodiumSize - количество мест на пьедестале.
const PodiumSize = 3

// RankChange представляет изменение позиции в рейтинге.
// Положительное значение = подъём, отрицательное = падение.
type RankChange int

// Direction возвращает направление изменения.
func (rc RankChange) Direction() RankDirection {
	switch {
	case rc > 0:
		return RankDirectionUp
	case rc < 0:
		return RankDirectionDown
	default:
		return RankDirectionStable
	}
}

// Abs возвращает абсолютное значение изменения.
func (rc RankChange) Abs() int {
	if rc < 0 {
		return int(-rc)
	}
	return int(rc)
}

// String возвращает строковое представление изменения.
func (rc RankChange) String() string {
	switch {
	case rc > 0:
		return fmt.Sprintf("+%d", rc)
	case rc < 0:
		return fmt.Sprintf("%d", rc)
	default:
		return "±0"
	}
}

// RankDirection определяет направление изменения ранга.
type RankDirection string

const (
	RankDirectionUp     RankDirection = "up"
	RankDirectionDown   RankDirection = "down"
	RankDirectionStable RankDirection = "stable"
	RankDirectionNew    RankDirection = "new"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry - одна строка рейтинга.
type Entry struct {
	Rank      Rank
	StudentID string
	Name      string
	Grade     student.Grade
	XP        student.XP
	Level     student.Level
	Badges    int
}

// EntryFrom собирает строку рейтинга из ученика (ранг выставляет Ranking).
func EntryFrom(s student.Student) Entry {
	return Entry{
		StudentID: s.ID,
		Name:      s.Name,
		Grade:     s.Grade,
		XP:        s.XP,
		Level:     s.Level,
		Badges:    len(s.Badges),
	}
}

// XPGap возвращает разрыв в XP с другой строкой.
func (e Entry) XPGap(other Entry) student.XP {
	diff := e.XP - other.XP
	if diff < 0 {
		return -diff
	}
	return diff
}

// String возвращает строковое представление для логирования.
func (e Entry) String() string {
	return fmt.Sprintf("Entry{Rank: %d, Student: %s, XP: %d}", e.Rank, e.StudentID, e.XP)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// Ranking - отсортированный по убыванию XP список строк.
// При равном XP сохраняется порядок Roster, ранги идут подряд без разделения мест.
type Ranking struct {
	entries []Entry
	byID    map[string]int
}

// Build строит рейтинг из учеников в порядке Roster.
func Build(students []student.Student) *Ranking {
	entries := make([]Entry, len(students))
	for i, s := range students {
		entries[i] = EntryFrom(s)
	}
	return FromEntries(entries)
}

// FromEntries сортирует готовые строки и присваивает ранги.
func FromEntries(entries []Entry) *Ranking {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].XP > sorted[j].XP
	})

	r := &Ranking{entries: sorted, byID: make(map[string]int, len(sorted))}
	for i := range r.entries {
		r.entries[i].Rank = Rank(i + 1)
		r.byID[r.entries[i].StudentID] = i
	}
	return r
}

// Count возвращает количество строк.
func (r *Ranking) Count() int {
	return len(r.entries)
}

// All возвращает копию всех строк.
func (r *Ranking) All() []Entry {
	return r.Slice(0, len(r.entries))
}

// Podium возвращает первые три места (или меньше).
func (r *Ranking) Podium() []Entry {
	return r.Top(PodiumSize)
}

// Rest возвращает всех после пьедестала.
func (r *Ranking) Rest() []Entry {
	return r.Slice(PodiumSize, len(r.entries))
}

// Top возвращает топ-N строк.
func (r *Ranking) Top(n int) []Entry {
	if n <= 0 {
		return nil
	}
	return r.Slice(0, n)
}

// Slice возвращает строки [from:to).
func (r *Ranking) Slice(from, to int) []Entry {
	if from < 0 {
		from = 0
	}
	if to > len(r.entries) {
		to = len(r.entries)
	}
	if from >= to {
		return nil
	}
	out := make([]Entry, to-from)
	copy(out, r.entries[from:to])
	return out
}

// Get возвращает строку ученика.
func (r *Ranking) Get(studentID string) (Entry, bool) {
	idx, ok := r.byID[studentID]
	if !ok {
		return Entry{}, false
	}
	return r.entries[idx], true
}

// RankOf возвращает ранг ученика или ErrNotRanked.
func (r *Ranking) RankOf(studentID string) (Rank, error) {
	e, ok := r.Get(studentID)
	if !ok {
		return 0, ErrNotRanked
	}
	return e.Rank, nil
}

// Neighbors возвращает соседей ученика по рангу (±rangeSize), включая его самого.
func (r *Ranking) Neighbors(studentID string, rangeSize int) []Entry {
	idx, ok := r.byID[studentID]
	if !ok {
		return nil
	}
	return r.Slice(idx-rangeSize, idx+rangeSize+1)
}

// FilterByGrade возвращает новый рейтинг только с указанным классом.
func (r *Ranking) FilterByGrade(filter student.GradeFilter) *Ranking {
	if filter.IsAll() {
		return FromEntries(r.entries)
	}
	var kept []Entry
	for _, e := range r.entries {
		if filter.Matches(e.Grade) {
			kept = append(kept, e)
		}
	}
	return FromEntries(kept)
}

// TotalXP возвращает сумму XP всех строк.
func (r *Ranking) TotalXP() student.XP {
	var total student.XP
	for _, e := range r.entries {
		total += e.XP
	}
	return total
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNotRanked - ученика нет в рейтинге.
	ErrNotRanked = errors.New("student is not ranked")

	// ErrEmptyLeaderboard - рейтинг пуст.
	ErrEmptyLeaderboard = errors.New("leaderboard is empty")
)
