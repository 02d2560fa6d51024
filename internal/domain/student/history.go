package student

import (
	"math"
	"sort"
)

// ══════════════════════════════════════════════════════════════════════════════
// HISTORY
// Представления объединённого журнала для карточки ученика.
// ══════════════════════════════════════════════════════════════════════════════

// History возвращает задания, затем тесты, в порядке вставки.
func (s Student) History() []ScoreEvent {
	out := make([]ScoreEvent, 0, len(s.Assignments)+len(s.Tests))
	out = append(out, s.Assignments...)
	return append(out, s.Tests...)
}

// RecentActivity - история по убыванию даты; при равных датах сохраняется порядок вставки.
func (s Student) RecentActivity() []ScoreEvent {
	h := s.History()
	sort.SliceStable(h, func(i, j int) bool {
		return h[i].Date.After(h[j].Date)
	})
	return h
}

// ProgressTimeline - история по возрастанию даты (для графика прогресса).
func (s Student) ProgressTimeline() []ScoreEvent {
	h := s.History()
	sort.SliceStable(h, func(i, j int) bool {
		return h[i].Date.Before(h[j].Date)
	})
	return h
}

// TestAverage - средняя оценка за тесты, 0 если тестов нет.
func (s Student) TestAverage() float64 {
	return averageScore(s.Tests)
}

// CategoryAverage - средняя оценка по категории, 0 если записей нет.
func (s Student) CategoryAverage(c Category) float64 {
	if c.IsTest() {
		return s.TestAverage()
	}
	var matched []ScoreEvent
	for _, e := range s.Assignments {
		if e.Category == c {
			matched = append(matched, e)
		}
	}
	return averageScore(matched)
}

// expectedAssignments - знаменатель процента выполнения по умолчанию.
const expectedAssignments = 5

// CompletionPercent - доля выполненных заданий относительно max(n, 5).
func (s Student) CompletionPercent() int {
	n := len(s.Assignments)
	denom := n
	if denom == 0 {
		denom = 1
	}
	if denom < expectedAssignments {
		denom = expectedAssignments
	}
	return int(math.Round(float64(n) / float64(denom) * 100))
}

// SkillAxis - одна ось радара навыков.
type SkillAxis struct {
	Subject  string
	Value    float64
	FullMark float64
}

// Подписи осей радара.
const (
	SkillLogic      = "المنطق"
	SkillCoding     = "بناء الكود"
	SkillCreativity = "الإبداع"
	SkillAttendance = "الحضور"
	SkillSpeed      = "السرعة"
)

// speedBaseline - значение оси скорости, пока её не из чего считать.
const speedBaseline = 75

// SkillRadar возвращает пять осей: логика (тесты), код (домашние),
// креативность (проекты), посещаемость и скорость.
func (s Student) SkillRadar() []SkillAxis {
	return []SkillAxis{
		{Subject: SkillLogic, Value: s.TestAverage(), FullMark: 100},
		{Subject: SkillCoding, Value: s.CategoryAverage(CategoryHomework), FullMark: 100},
		{Subject: SkillCreativity, Value: s.CategoryAverage(CategoryProject), FullMark: 100},
		{Subject: SkillAttendance, Value: float64(s.Attendance), FullMark: 100},
		{Subject: SkillSpeed, Value: speedBaseline, FullMark: 100},
	}
}

func averageScore(events []ScoreEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	total := 0
	for _, e := range events {
		total += e.Score
	}
	return float64(total) / float64(len(events))
}
