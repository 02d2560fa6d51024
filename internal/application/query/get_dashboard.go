package query

import (
	"context"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Сводка по классу для учителя: численность, посещаемость, XP, лучший
// ученик и средний процент по каждому заданию.
// ══════════════════════════════════════════════════════════════════════════════

// GetDashboardQuery содержит параметры запроса сводки.
type GetDashboardQuery struct {
	// Grade - фильтр по классу (пустое значение = все классы).
	Grade student.GradeFilter
}

// TitleAverageDTO - средний процент выполнения одного задания.
type TitleAverageDTO struct {
	Title string `json:"title"`

	// Percent - round(mean(score / maxScore * 100)).
	Percent int `json:"percent"`

	// Submissions - сколько записей с этим заголовком учтено.
	Submissions int `json:"submissions"`
}

// DashboardResult содержит результат запроса сводки.
type DashboardResult struct {
	Grade string `json:"grade"`

	StudentCount int `json:"student_count"`

	// AverageAttendance - округлённое среднее, 0 для пустого класса.
	AverageAttendance int `json:"average_attendance"`

	TotalXP int `json:"total_xp"`

	// TopStudent - ученик с максимальным XP, nil для пустого класса.
	TopStudent *StudentSummaryDTO `json:"top_student,omitempty"`

	// Assignments - средние по заголовкам заданий в порядке первого появления.
	Assignments []TitleAverageDTO `json:"assignments"`

	// Students - ученики класса в порядке Roster.
	Students []StudentSummaryDTO `json:"students"`
}

// GetDashboardHandler обрабатывает запрос сводки.
type GetDashboardHandler struct {
	roster student.Roster
}

// NewGetDashboardHandler создаёт новый обработчик.
func NewGetDashboardHandler(roster student.Roster) *GetDashboardHandler {
	return &GetDashboardHandler{roster: roster}
}

// Handle выполняет запрос.
func (h *GetDashboardHandler) Handle(ctx context.Context, query GetDashboardQuery) (*DashboardResult, error) {
	filter := normalizeFilter(query.Grade)

	students, err := h.roster.FilterByGrade(ctx, filter)
	if err != nil {
		return nil, shared.WrapError("query", "GetDashboard", shared.ErrNotFound, "failed to load roster", err)
	}

	result := &DashboardResult{
		Grade:        string(filter),
		StudentCount: len(students),
		Assignments:  titleAverages(students),
		Students:     make([]StudentSummaryDTO, 0, len(students)),
	}

	attendance := 0
	for _, s := range students {
		attendance += s.Attendance
		result.TotalXP += int(s.XP)
		result.Students = append(result.Students, summaryOf(s))
	}
	if len(students) > 0 {
		result.AverageAttendance = round(float64(attendance) / float64(len(students)))
	}

	if top, ok := topStudent(students); ok {
		summary := summaryOf(top)
		result.TopStudent = &summary
	}

	return result, nil
}

// topStudent возвращает ученика с максимальным XP.
// При равенстве побеждает более поздний в порядке Roster.
func topStudent(students []student.Student) (student.Student, bool) {
	if len(students) == 0 {
		return student.Student{}, false
	}
	best := students[0]
	for _, s := range students[1:] {
		if s.XP >= best.XP {
			best = s
		}
	}
	return best, true
}

// titleAverages группирует задания (без тестов) по заголовку.
func titleAverages(students []student.Student) []TitleAverageDTO {
	type acc struct {
		sum float64
		n   int
	}

	var order []string
	byTitle := make(map[string]*acc)
	for _, s := range students {
		for _, a := range s.Assignments {
			entry, ok := byTitle[a.Title]
			if !ok {
				entry = &acc{}
				byTitle[a.Title] = entry
				order = append(order, a.Title)
			}
			entry.sum += a.Percent()
			entry.n++
		}
	}

	out := make([]TitleAverageDTO, 0, len(order))
	for _, title := range order {
		entry := byTitle[title]
		out = append(out, TitleAverageDTO{
			Title:       title,
			Percent:     round(entry.sum / float64(entry.n)),
			Submissions: entry.n,
		})
	}
	return out
}
