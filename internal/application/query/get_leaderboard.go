package query

import (
	"context"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Рейтинг по XP с пьедесталом (топ-3) и остальными местами.
// Учитель видит выбранный класс; ученик видит только своих одноклассников
// и свою позицию.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery содержит параметры запроса рейтинга.
type GetLeaderboardQuery struct {
	// Grade - фильтр по классу для учителя (пустое значение = все классы).
	Grade student.GradeFilter

	// ViewerID - ученик, который смотрит рейтинг. Если задан, Grade
	// игнорируется: рейтинг строится по классу ученика.
	ViewerID string
}

// LeaderboardEntryDTO - DTO для записи лидерборда (Data Transfer Object).
type LeaderboardEntryDTO struct {
	// Rank - позиция в рейтинге (начиная с 1).
	Rank int `json:"rank"`

	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	Grade     string `json:"grade"`
	XP        int    `json:"xp"`
	Level     int    `json:"level"`
	Badges    int    `json:"badges"`

	// IsViewer - строка принадлежит смотрящему ученику.
	IsViewer bool `json:"is_viewer"`
}

// ViewerStandingDTO - позиция смотрящего ученика.
type ViewerStandingDTO struct {
	Entry LeaderboardEntryDTO `json:"entry"`

	InPodium bool `json:"in_podium"`

	// XPBehind - отставание от места выше (0 для первого места).
	XPBehind int `json:"xp_behind"`
}

// GetLeaderboardResult содержит результат запроса рейтинга.
type GetLeaderboardResult struct {
	Grade string `json:"grade"`

	// Podium - места 1..3 (может быть меньше трёх).
	Podium []LeaderboardEntryDTO `json:"podium"`

	// Rest - места с четвёртого.
	Rest []LeaderboardEntryDTO `json:"rest"`

	TotalCount int `json:"total_count"`
	TotalXP    int `json:"total_xp"`

	// Viewer - позиция ученика; nil в режиме учителя.
	Viewer *ViewerStandingDTO `json:"viewer,omitempty"`
}

// IsTeacherView возвращает true, если рейтинг построен без ученика.
func (r *GetLeaderboardResult) IsTeacherView() bool {
	return r.Viewer == nil
}

// GetLeaderboardHandler обрабатывает запросы на получение лидерборда.
type GetLeaderboardHandler struct {
	roster student.Roster
}

// NewGetLeaderboardHandler создаёт новый обработчик запроса лидерборда.
func NewGetLeaderboardHandler(roster student.Roster) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{roster: roster}
}

// Handle выполняет запрос на получение лидерборда.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, query GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	filter := normalizeFilter(query.Grade)

	// Ученик всегда видит свой текущий класс из Roster, а не из сессии.
	if query.ViewerID != "" {
		viewer, err := h.roster.FindByID(ctx, query.ViewerID)
		if err != nil {
			return nil, err
		}
		filter = student.FilterFor(viewer.Grade)
	}

	students, err := h.roster.FilterByGrade(ctx, filter)
	if err != nil {
		return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrNotFound, "failed to load roster", err)
	}
	ranking := leaderboard.Build(students)

	result := &GetLeaderboardResult{
		Grade:      string(filter),
		Podium:     entryDTOs(ranking.Podium(), query.ViewerID),
		Rest:       entryDTOs(ranking.Rest(), query.ViewerID),
		TotalCount: ranking.Count(),
		TotalXP:    int(ranking.TotalXP()),
	}

	if query.ViewerID != "" {
		entry, ok := ranking.Get(query.ViewerID)
		if !ok {
			return nil, shared.WrapError("query", "GetLeaderboard", shared.ErrNotFound, "viewer is not ranked", leaderboard.ErrNotRanked)
		}
		standing := &ViewerStandingDTO{
			Entry:    entryDTO(entry, query.ViewerID),
			InPodium: entry.Rank.IsPodium(),
		}
		if entry.Rank > 1 {
			above := ranking.Slice(int(entry.Rank)-2, int(entry.Rank)-1)
			standing.XPBehind = int(above[0].XPGap(entry))
		}
		result.Viewer = standing
	}

	return result, nil
}

func entryDTOs(entries []leaderboard.Entry, viewerID string) []LeaderboardEntryDTO {
	out := make([]LeaderboardEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryDTO(e, viewerID))
	}
	return out
}

func entryDTO(e leaderboard.Entry, viewerID string) LeaderboardEntryDTO {
	return LeaderboardEntryDTO{
		Rank:      int(e.Rank),
		StudentID: e.StudentID,
		Name:      e.Name,
		Grade:     e.Grade.String(),
		XP:        int(e.XP),
		Level:     int(e.Level),
		Badges:    e.Badges,
		IsViewer:  viewerID != "" && e.StudentID == viewerID,
	}
}
