package query

import (
	"context"
	"errors"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT RANK QUERY
// Позиция ученика в классе и в общем рейтинге плюс соседи по классу.
// Это ключевой запрос для ученика - показывает "где я нахожусь".
// ══════════════════════════════════════════════════════════════════════════════

// Пределы окна соседей.
const (
	defaultNeighborRange = 2
	maxNeighborRange     = 5
)

// GetStudentRankQuery содержит параметры запроса позиции студента.
type GetStudentRankQuery struct {
	StudentID string

	// RangeSize - сколько соседей сверху и снизу показать (по умолчанию 2, максимум 5).
	RangeSize int
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentRankQuery) Validate() error {
	if q.StudentID == "" {
		return errors.New("student_id must be provided")
	}
	if q.RangeSize < 0 {
		return errors.New("range_size cannot be negative")
	}
	if q.RangeSize == 0 {
		q.RangeSize = defaultNeighborRange
	}
	if q.RangeSize > maxNeighborRange {
		q.RangeSize = maxNeighborRange
	}
	return nil
}

// StudentRankDTO - DTO с позицией студента в рейтинге.
type StudentRankDTO struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Grade     string `json:"grade"`
	XP        int    `json:"xp"`

	// ClassRank - место среди одноклассников.
	ClassRank int `json:"class_rank"`
	ClassSize int `json:"class_size"`

	// OverallRank - место среди всех учеников.
	OverallRank int `json:"overall_rank"`
	OverallSize int `json:"overall_size"`

	// Percentile - доля класса ниже ученика, 0..100.
	Percentile float64 `json:"percentile"`

	// XPToNextRank - сколько XP нужно, чтобы обойти место выше (0 для первого).
	XPToNextRank int `json:"xp_to_next_rank"`

	// Neighbors - соседи по классу, включая самого ученика.
	Neighbors []LeaderboardEntryDTO `json:"neighbors"`
}

// GetStudentRankHandler обрабатывает запросы на получение позиции.
type GetStudentRankHandler struct {
	roster student.Roster
}

// NewGetStudentRankHandler создаёт новый обработчик.
func NewGetStudentRankHandler(roster student.Roster) *GetStudentRankHandler {
	return &GetStudentRankHandler{roster: roster}
}

// Handle выполняет запрос.
func (h *GetStudentRankHandler) Handle(ctx context.Context, query GetStudentRankQuery) (*StudentRankDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetStudentRank", shared.ErrValidation, err.Error(), err)
	}

	all, err := h.roster.FilterByGrade(ctx, student.GradeAll)
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentRank", shared.ErrNotFound, "failed to load roster", err)
	}

	overall := leaderboard.Build(all)
	entry, ok := overall.Get(query.StudentID)
	if !ok {
		return nil, shared.ErrUnknownStudentID.WithOp("GetStudentRank")
	}

	class := overall.FilterByGrade(student.FilterFor(entry.Grade))
	classEntry, _ := class.Get(query.StudentID)

	dto := &StudentRankDTO{
		StudentID:   entry.StudentID,
		Name:        entry.Name,
		Grade:       entry.Grade.String(),
		XP:          int(entry.XP),
		ClassRank:   int(classEntry.Rank),
		ClassSize:   class.Count(),
		OverallRank: int(entry.Rank),
		OverallSize: overall.Count(),
		Percentile:  percentile(classEntry.Rank, class.Count()),
		Neighbors:   entryDTOs(class.Neighbors(query.StudentID, query.RangeSize), query.StudentID),
	}

	if classEntry.Rank > 1 {
		above := class.Slice(int(classEntry.Rank)-2, int(classEntry.Rank)-1)
		// Обойти - значит набрать строго больше.
		dto.XPToNextRank = int(above[0].XPGap(classEntry)) + 1
	}

	return dto, nil
}

// percentile - доля мест ниже ранга.
func percentile(rank leaderboard.Rank, total int) float64 {
	if total <= 1 || !rank.IsValid() {
		return 100
	}
	below := total - int(rank)
	return float64(below) / float64(total-1) * 100
}
