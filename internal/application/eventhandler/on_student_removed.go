package eventhandler

import (
	"log/slog"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON STUDENT REMOVED HANDLER
// Убирает следы удалённого ученика: записи журнала XP в памяти и выбор
// в открытых сессиях.
// ═══════════════════════════════════════════════════════════════════════════

// Forgetter удаляет данные ученика из вспомогательного хранилища.
type Forgetter interface {
	Forget(studentID string)
}

// Invalidator сбрасывает ссылки на ученика (например, выбор в сессии).
type Invalidator interface {
	Invalidate(studentID string)
}

// OnStudentRemovedHandler обрабатывает событие удаления ученика.
type OnStudentRemovedHandler struct {
	logger       *slog.Logger
	forgetters   []Forgetter
	invalidators []Invalidator
}

// NewOnStudentRemovedHandler создаёт новый обработчик.
func NewOnStudentRemovedHandler(logger *slog.Logger) *OnStudentRemovedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnStudentRemovedHandler{logger: logger.With("handler", "on_student_removed")}
}

// Forget добавляет хранилище, которое нужно чистить.
func (h *OnStudentRemovedHandler) Forget(f Forgetter) *OnStudentRemovedHandler {
	h.forgetters = append(h.forgetters, f)
	return h
}

// Invalidate добавляет держателя ссылок, которые нужно сбрасывать.
func (h *OnStudentRemovedHandler) Invalidate(i Invalidator) *OnStudentRemovedHandler {
	h.invalidators = append(h.invalidators, i)
	return h
}

// EventTypes перечисляет события, на которые нужно подписать обработчик.
func (h *OnStudentRemovedHandler) EventTypes() []shared.EventType {
	return []shared.EventType{shared.EventStudentRemoved}
}

// Handle реализует интерфейс shared.EventHandler.
func (h *OnStudentRemovedHandler) Handle(event shared.Event) error {
	removed, ok := event.(student.StudentRemovedEvent)
	if !ok {
		h.logger.Warn("received non-StudentRemovedEvent", "event_type", event.EventType())
		return nil
	}

	id := removed.Student.ID
	for _, f := range h.forgetters {
		f.Forget(id)
	}
	for _, i := range h.invalidators {
		i.Invalidate(id)
	}

	h.logger.Info("student traces cleared",
		"student_id", id,
		"stores", len(h.forgetters),
		"sessions", len(h.invalidators),
	)
	return nil
}
