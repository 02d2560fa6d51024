package leaderboard

import (
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANKING DIFF
// Сравнение рейтинга до и после записи в Roster. Используется для
// логирования смены мест и входа/выхода с пьедестала.
// ══════════════════════════════════════════════════════════════════════════════

// Diff представляет различия между двумя рейтингами.
type Diff struct {
	// RankChanges - изменения рангов (studentID -> RankChange), только ненулевые.
	RankChanges map[string]RankChange

	// Added - ученики, которых не было в старом рейтинге.
	Added []Entry

	// Removed - ученики, которых нет в новом рейтинге.
	Removed []Entry

	// PodiumChanges - входы на пьедестал и уходы с него.
	PodiumChanges []PodiumChange
}

// PodiumChange представляет вход на пьедестал или уход с него.
type PodiumChange struct {
	StudentID string
	OldRank   Rank
	NewRank   Rank
}

// Entered возвращает true, если ученик поднялся на пьедестал.
func (pc PodiumChange) Entered() bool {
	return !pc.OldRank.IsPodium() && pc.NewRank.IsPodium()
}

// Left возвращает true, если ученик покинул пьедестал.
func (pc PodiumChange) Left() bool {
	return pc.OldRank.IsPodium() && !pc.NewRank.IsPodium()
}

// CalculateDiff вычисляет разницу между рейтингами.
// before может быть nil (первое построение).
func CalculateDiff(before, after *Ranking) *Diff {
	diff := &Diff{RankChanges: make(map[string]RankChange)}
	if after == nil {
		return diff
	}
	if before == nil {
		diff.Added = after.All()
		return diff
	}

	for _, e := range after.entries {
		old, ok := before.Get(e.StudentID)
		if !ok {
			diff.Added = append(diff.Added, e)
			continue
		}
		// был 5, стал 2 = +3
		change := RankChange(int(old.Rank) - int(e.Rank))
		if change != 0 {
			diff.RankChanges[e.StudentID] = change
		}
		if old.Rank.IsPodium() != e.Rank.IsPodium() {
			diff.PodiumChanges = append(diff.PodiumChanges, PodiumChange{
				StudentID: e.StudentID,
				OldRank:   old.Rank,
				NewRank:   e.Rank,
			})
		}
	}

	for _, e := range before.entries {
		if _, ok := after.Get(e.StudentID); !ok {
			diff.Removed = append(diff.Removed, e)
		}
	}

	return diff
}

// HasChanges возвращает true, если есть какие-либо изменения.
func (d *Diff) HasChanges() bool {
	return len(d.RankChanges) > 0 || len(d.Added) > 0 || len(d.Removed) > 0
}

// Improved возвращает учеников, поднявшихся в рейтинге, в порядке ID.
func (d *Diff) Improved() []string {
	return d.filter(func(c RankChange) bool { return c > 0 })
}

// Dropped возвращает учеников, опустившихся в рейтинге, в порядке ID.
func (d *Diff) Dropped() []string {
	return d.filter(func(c RankChange) bool { return c < 0 })
}

func (d *Diff) filter(keep func(RankChange) bool) []string {
	result := make([]string, 0)
	for id, change := range d.RankChanges {
		if keep(change) {
			result = append(result, id)
		}
	}
	sort.Strings(result)
	return result
}
