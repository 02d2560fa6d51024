// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"math"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST STUDENTS QUERY
// Список учеников класса в порядке Roster (сайдбар и команда roster).
// ══════════════════════════════════════════════════════════════════════════════

// ListStudentsQuery содержит параметры запроса списка.
type ListStudentsQuery struct {
	// Grade - фильтр по классу (пустое значение = все классы).
	Grade student.GradeFilter
}

// StudentSummaryDTO - краткая карточка ученика.
type StudentSummaryDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Grade string `json:"grade"`

	XP            int `json:"xp"`
	Level         int `json:"level"`
	XPToNextLevel int `json:"xp_to_next_level"`

	// LevelProgress - заполнение полосы уровня в процентах (0..100).
	LevelProgress int `json:"level_progress"`

	Attendance int      `json:"attendance"`
	Badges     []string `json:"badges"`
}

// ListStudentsResult содержит результат запроса списка.
type ListStudentsResult struct {
	Grade    string              `json:"grade"`
	Students []StudentSummaryDTO `json:"students"`
}

// ListStudentsHandler обрабатывает запрос списка учеников.
type ListStudentsHandler struct {
	roster student.Roster
}

// NewListStudentsHandler создаёт новый обработчик.
func NewListStudentsHandler(roster student.Roster) *ListStudentsHandler {
	return &ListStudentsHandler{roster: roster}
}

// Handle выполняет запрос.
func (h *ListStudentsHandler) Handle(ctx context.Context, query ListStudentsQuery) (*ListStudentsResult, error) {
	filter := normalizeFilter(query.Grade)

	students, err := h.roster.FilterByGrade(ctx, filter)
	if err != nil {
		return nil, shared.WrapError("query", "ListStudents", shared.ErrNotFound, "failed to list students", err)
	}

	result := &ListStudentsResult{
		Grade:    string(filter),
		Students: make([]StudentSummaryDTO, 0, len(students)),
	}
	for _, s := range students {
		result.Students = append(result.Students, summaryOf(s))
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func normalizeFilter(f student.GradeFilter) student.GradeFilter {
	if f == "" {
		return student.GradeAll
	}
	return f
}

func summaryOf(s student.Student) StudentSummaryDTO {
	_, fill := student.ProgressInLevel(s.XP)
	badges := make([]string, len(s.Badges))
	copy(badges, s.Badges)

	return StudentSummaryDTO{
		ID:            s.ID,
		Name:          s.Name,
		Grade:         s.Grade.String(),
		XP:            int(s.XP),
		Level:         int(s.Level),
		XPToNextLevel: int(s.XPToNextLevel),
		LevelProgress: round(fill * 100),
		Attendance:    s.Attendance,
		Badges:        badges,
	}
}

// round rounds half away from zero; all inputs here are non-negative.
func round(v float64) int {
	return int(math.Round(v))
}
