package query

import (
	"context"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// VERIFY MIRROR QUERY
// Сверяет внешнее зеркало рейтинга с Roster. Ничего не чинит: пересборка
// зеркала выполняется проекцией (Rebuild).
// ══════════════════════════════════════════════════════════════════════════════

// VerifyMirrorQuery содержит параметры сверки.
type VerifyMirrorQuery struct {
	Grade student.GradeFilter
}

// MirrorMismatchDTO - расхождение на одном месте рейтинга.
type MirrorMismatchDTO struct {
	Rank int `json:"rank"`

	ExpectedXP int `json:"expected_xp"`
	MirrorXP   int `json:"mirror_xp"`

	ExpectedID string `json:"expected_id"`
	MirrorID   string `json:"mirror_id"`
}

// VerifyMirrorResult содержит результат сверки.
type VerifyMirrorResult struct {
	Grade string `json:"grade"`

	RosterCount int `json:"roster_count"`
	MirrorCount int `json:"mirror_count"`

	Mismatches []MirrorMismatchDTO `json:"mismatches"`
}

// InSync возвращает true, если зеркало совпадает с Roster.
func (r *VerifyMirrorResult) InSync() bool {
	return r.RosterCount == r.MirrorCount && len(r.Mismatches) == 0
}

// VerifyMirrorHandler обрабатывает запрос сверки.
type VerifyMirrorHandler struct {
	roster student.Roster
	mirror leaderboard.Mirror
}

// NewVerifyMirrorHandler создаёт новый обработчик.
func NewVerifyMirrorHandler(roster student.Roster, mirror leaderboard.Mirror) *VerifyMirrorHandler {
	return &VerifyMirrorHandler{roster: roster, mirror: mirror}
}

// Handle выполняет сверку. Места с одинаковым XP могут идти в зеркале
// в другом порядке: такое расхождение не считается ошибкой, пока
// совпадают XP и состав участников.
func (h *VerifyMirrorHandler) Handle(ctx context.Context, query VerifyMirrorQuery) (*VerifyMirrorResult, error) {
	filter := normalizeFilter(query.Grade)

	students, err := h.roster.FilterByGrade(ctx, filter)
	if err != nil {
		return nil, shared.WrapError("query", "VerifyMirror", shared.ErrNotFound, "failed to load roster", err)
	}
	expected := leaderboard.Build(students).All()

	// Запрашиваем на одну позицию больше, чтобы заметить лишних.
	standings, err := h.mirror.Top(ctx, filter, len(expected)+1)
	if err != nil {
		return nil, shared.WrapError("query", "VerifyMirror", shared.ErrNotFound, "failed to read mirror", err)
	}

	result := &VerifyMirrorResult{
		Grade:       string(filter),
		RosterCount: len(expected),
		MirrorCount: len(standings),
		Mismatches:  []MirrorMismatchDTO{},
	}

	members := make(map[string]bool, len(expected))
	for _, e := range expected {
		members[e.StudentID] = true
	}

	for i := 0; i < len(expected) || i < len(standings); i++ {
		var mm MirrorMismatchDTO
		mm.Rank = i + 1
		if i < len(expected) {
			mm.ExpectedID, mm.ExpectedXP = expected[i].StudentID, int(expected[i].XP)
		}
		if i < len(standings) {
			mm.MirrorID, mm.MirrorXP = standings[i].StudentID, int(standings[i].XP)
		}

		switch {
		case mm.ExpectedID == mm.MirrorID && mm.ExpectedXP == mm.MirrorXP:
			continue
		case mm.ExpectedID != "" && mm.MirrorID != "" && mm.ExpectedXP == mm.MirrorXP && members[mm.MirrorID]:
			continue
		}
		result.Mismatches = append(result.Mismatches, mm)
	}

	return result, nil
}
