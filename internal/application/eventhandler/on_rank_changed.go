// Package eventhandler содержит обработчики доменных событий.
// Обработчики подписываются на шину и запускают побочные эффекты записи:
// логирование рангов и уровней, очистку вспомогательных данных.
// Ошибка обработчика никогда не отменяет запись в Roster.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alem-hub/gradebook/internal/domain/leaderboard"
	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON RANK CHANGED HANDLER
// После каждой записи в Roster пересчитывает рейтинг и сравнивает его
// с предыдущим: кто поднялся, кто опустился, кто вошёл на пьедестал.
// ═══════════════════════════════════════════════════════════════════════════

// RankSource - чтение учеников для пересчёта рейтинга.
type RankSource interface {
	FilterByGrade(ctx context.Context, filter student.GradeFilter) ([]student.Student, error)
}

// RankChangedConfig содержит конфигурацию обработчика.
type RankChangedConfig struct {
	// MinRankChange - минимальный сдвиг, который логируется на уровне Info.
	// Меньшие сдвиги пишутся в Debug.
	MinRankChange int

	// OnDiff вызывается для каждого непустого сравнения. Опционально.
	OnDiff func(diff *leaderboard.Diff)
}

// DefaultRankChangedConfig возвращает конфигурацию по умолчанию.
func DefaultRankChangedConfig() RankChangedConfig {
	return RankChangedConfig{MinRankChange: 1}
}

// OnRankChangedHandler отслеживает изменения общего рейтинга.
type OnRankChangedHandler struct {
	source RankSource
	logger *slog.Logger
	config RankChangedConfig

	mu       sync.Mutex
	previous *leaderboard.Ranking
	lastDiff *leaderboard.Diff
}

// NewOnRankChangedHandler создаёт новый обработчик.
func NewOnRankChangedHandler(source RankSource, logger *slog.Logger, config RankChangedConfig) *OnRankChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnRankChangedHandler{
		source: source,
		logger: logger.With("handler", "on_rank_changed"),
		config: config,
	}
}

// EventTypes перечисляет события, на которые нужно подписать обработчик.
func (h *OnRankChangedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventStudentAdded,
		shared.EventStudentReplaced,
		shared.EventStudentRemoved,
	}
}

// Prime запоминает текущий рейтинг как исходную точку сравнения.
func (h *OnRankChangedHandler) Prime(ctx context.Context) error {
	students, err := h.source.FilterByGrade(ctx, student.GradeAll)
	if err != nil {
		return fmt.Errorf("prime ranking: %w", err)
	}
	h.mu.Lock()
	h.previous = leaderboard.Build(students)
	h.mu.Unlock()
	return nil
}

// Handle обрабатывает событие записи.
// Реализует интерфейс shared.EventHandler.
func (h *OnRankChangedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	students, err := h.source.FilterByGrade(ctx, student.GradeAll)
	if err != nil {
		h.logger.Error("failed to load roster", "event_type", event.EventType(), "error", err)
		return fmt.Errorf("load roster: %w", err)
	}
	current := leaderboard.Build(students)

	h.mu.Lock()
	previous := h.previous
	h.previous = current
	h.mu.Unlock()

	if previous == nil {
		return nil
	}

	diff := leaderboard.CalculateDiff(previous, current)
	if !diff.HasChanges() {
		return nil
	}

	h.mu.Lock()
	h.lastDiff = diff
	h.mu.Unlock()

	h.logDiff(event, diff)

	if h.config.OnDiff != nil {
		h.config.OnDiff(diff)
	}
	return nil
}

// LastDiff возвращает последнее непустое сравнение (nil, если его не было).
func (h *OnRankChangedHandler) LastDiff() *leaderboard.Diff {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastDiff
}

func (h *OnRankChangedHandler) logDiff(event shared.Event, diff *leaderboard.Diff) {
	for _, id := range append(diff.Improved(), diff.Dropped()...) {
		change := diff.RankChanges[id]
		level := slog.LevelDebug
		if change.Abs() >= h.config.MinRankChange {
			level = slog.LevelInfo
		}
		h.logger.Log(context.Background(), level, "rank changed",
			"student_id", id,
			"change", change.String(),
			"direction", change.Direction(),
			"cause", event.AggregateID(),
		)
	}

	for _, pc := range diff.PodiumChanges {
		switch {
		case pc.Entered():
			h.logger.Info("entered podium", "student_id", pc.StudentID, "rank", pc.NewRank)
		case pc.Left():
			h.logger.Info("left podium", "student_id", pc.StudentID, "old_rank", pc.OldRank)
		}
	}
}
