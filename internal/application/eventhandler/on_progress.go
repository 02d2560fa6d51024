package eventhandler

import (
	"log/slog"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESS HANDLER
// Логирует изменения XP и повышения уровня; по желанию передаёт
// повышение уровня наружу (например, в интерактивную оболочку).
// ═══════════════════════════════════════════════════════════════════════════

// OnProgressHandler обрабатывает события прогресса.
type OnProgressHandler struct {
	logger  *slog.Logger
	onLevel func(student.LevelUpEvent)
}

// NewOnProgressHandler создаёт новый обработчик. onLevel может быть nil.
func NewOnProgressHandler(logger *slog.Logger, onLevel func(student.LevelUpEvent)) *OnProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnProgressHandler{
		logger:  logger.With("handler", "on_progress"),
		onLevel: onLevel,
	}
}

// EventTypes перечисляет события, на которые нужно подписать обработчик.
func (h *OnProgressHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventXPChanged, shared.EventLevelUp}
}

// Handle реализует интерфейс shared.EventHandler.
func (h *OnProgressHandler) Handle(event shared.Event) error {
	switch e := event.(type) {
	case student.XPChangedEvent:
		h.logger.Info("xp changed",
			"student_id", e.Change.StudentID,
			"old_xp", int(e.Change.OldXP),
			"new_xp", int(e.Change.NewXP),
			"delta", int(e.Change.Delta()),
			"reason", string(e.Change.Reason),
			"action_id", e.CorrelationID,
		)

	case student.LevelUpEvent:
		h.logger.Info("level up",
			"student_id", e.AggregateID(),
			"name", e.StudentName,
			"old_level", int(e.OldLevel),
			"new_level", int(e.NewLevel),
			"action_id", e.CorrelationID,
		)
		if h.onLevel != nil {
			h.onLevel(e)
		}

	default:
		h.logger.Warn("unexpected event", "event_type", event.EventType())
	}
	return nil
}
