package query

import (
	"context"
	"errors"
	"time"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STUDENT DETAIL QUERY
// Карточка ученика: профиль, активность, график прогресса, радар навыков
// и журнал изменений XP. Используется и учителем, и самим учеником.
// ══════════════════════════════════════════════════════════════════════════════

// GetStudentDetailQuery содержит параметры запроса карточки.
type GetStudentDetailQuery struct {
	StudentID string

	// HistoryLimit - сколько последних изменений XP вернуть (0 = 10).
	HistoryLimit int
}

// Validate проверяет корректность параметров запроса.
func (q *GetStudentDetailQuery) Validate() error {
	if q.StudentID == "" {
		return shared.ErrUnknownStudentID.Detail("student id is empty")
	}
	if q.HistoryLimit < 0 {
		return errors.New("history_limit cannot be negative")
	}
	if q.HistoryLimit == 0 {
		q.HistoryLimit = 10
	}
	return nil
}

// ScoreEventDTO - запись журнала оценок.
type ScoreEventDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Date     string `json:"date"`
	Percent  int    `json:"percent"`
}

// SkillAxisDTO - ось радара навыков.
type SkillAxisDTO struct {
	Subject  string  `json:"subject"`
	Value    float64 `json:"value"`
	FullMark float64 `json:"full_mark"`
}

// XPChangeDTO - запись журнала XP.
type XPChangeDTO struct {
	OldXP     int    `json:"old_xp"`
	NewXP     int    `json:"new_xp"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	EventID   string `json:"event_id,omitempty"`
	LeveledUp bool   `json:"leveled_up"`
	At        string `json:"at"`
	Ago       string `json:"ago"`
}

// StudentDetailResult содержит результат запроса карточки.
type StudentDetailResult struct {
	Profile StudentSummaryDTO `json:"profile"`

	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`

	// ClassRank - место среди одноклассников (по XP).
	ClassRank int `json:"class_rank"`
	ClassSize int `json:"class_size"`

	// RecentActivity - задания и тесты по убыванию даты.
	RecentActivity []ScoreEventDTO `json:"recent_activity"`

	// Timeline - те же записи по возрастанию даты.
	Timeline []ScoreEventDTO `json:"timeline"`

	TestAverage       float64        `json:"test_average"`
	CompletionPercent int            `json:"completion_percent"`
	Radar             []SkillAxisDTO `json:"radar"`

	// LedgerTotal - сумма оценок в журналах; может расходиться с XP.
	LedgerTotal int `json:"ledger_total"`

	// XPHistory - последние изменения XP (пусто без журнала).
	XPHistory []XPChangeDTO `json:"xp_history"`
}

// GetStudentDetailHandler обрабатывает запрос карточки.
type GetStudentDetailHandler struct {
	roster  student.Roster
	journal student.XPJournal
	now     func() time.Time
}

// NewGetStudentDetailHandler создаёт новый обработчик. journal может быть nil.
func NewGetStudentDetailHandler(roster student.Roster, journal student.XPJournal) *GetStudentDetailHandler {
	return &GetStudentDetailHandler{roster: roster, journal: journal, now: time.Now}
}

// WithClock подменяет часы для поля Ago.
func (h *GetStudentDetailHandler) WithClock(now func() time.Time) *GetStudentDetailHandler {
	h.now = now
	return h
}

// Handle выполняет запрос.
func (h *GetStudentDetailHandler) Handle(ctx context.Context, query GetStudentDetailQuery) (*StudentDetailResult, error) {
	if err := query.Validate(); err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, shared.WrapError("query", "GetStudentDetail", shared.ErrValidation, err.Error(), err)
	}

	s, err := h.roster.FindByID(ctx, query.StudentID)
	if err != nil {
		return nil, err
	}

	classmates, err := h.roster.FilterByGrade(ctx, student.FilterFor(s.Grade))
	if err != nil {
		return nil, shared.WrapError("query", "GetStudentDetail", shared.ErrNotFound, "failed to load classmates", err)
	}
	ranking := leaderboard.Build(classmates)
	rank, _ := ranking.RankOf(s.ID)

	result := &StudentDetailResult{
		Profile:           summaryOf(s),
		Strengths:         append([]string{}, s.Strengths...),
		Weaknesses:        append([]string{}, s.Weaknesses...),
		ClassRank:         int(rank),
		ClassSize:         ranking.Count(),
		RecentActivity:    scoreEventDTOs(s.RecentActivity()),
		Timeline:          scoreEventDTOs(s.ProgressTimeline()),
		TestAverage:       s.TestAverage(),
		CompletionPercent: s.CompletionPercent(),
		LedgerTotal:       int(s.LedgerTotal()),
		XPHistory:         []XPChangeDTO{},
	}

	for _, axis := range s.SkillRadar() {
		result.Radar = append(result.Radar, SkillAxisDTO{
			Subject:  axis.Subject,
			Value:    axis.Value,
			FullMark: axis.FullMark,
		})
	}

	if h.journal != nil {
		changes, err := h.journal.ListByStudent(ctx, s.ID, query.HistoryLimit)
		if err != nil {
			// Журнал вспомогательный: карточка строится без него.
			return result, nil
		}
		now := h.now()
		for _, c := range changes {
			result.XPHistory = append(result.XPHistory, XPChangeDTO{
				OldXP:     int(c.OldXP),
				NewXP:     int(c.NewXP),
				Delta:     int(c.Delta()),
				Reason:    string(c.Reason),
				EventID:   c.EventID,
				LeveledUp: c.LeveledUp(),
				At:        timeutil.Stamp(c.At),
				Ago:       timeutil.FormatRelative(c.At, now),
			})
		}
	}

	return result, nil
}

func scoreEventDTOs(events []student.ScoreEvent) []ScoreEventDTO {
	out := make([]ScoreEventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, ScoreEventDTO{
			ID:       e.ID,
			Title:    e.Title,
			Category: e.Category.String(),
			Score:    e.Score,
			MaxScore: e.MaxScore,
			Date:     e.DateString(),
			Percent:  round(e.Percent()),
		})
	}
	return out
}
