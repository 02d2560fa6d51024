package student

import (
	"github.com/alem-hub/gradebook/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// События публикуются после каждой записи в Roster; на них подписаны
// проекции (лидерборд в Redis, журнал XP) и логирование.
// ══════════════════════════════════════════════════════════════════════════════

// StudentAddedEvent - ученик добавлен в Roster.
type StudentAddedEvent struct {
	shared.BaseEvent
	Student Student
}

// Payload implements shared.Event.
func (e StudentAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.Student.ID,
		"name":       e.Student.Name,
		"grade":      e.Student.Grade.Slug(),
	}
}

// NewStudentAddedEvent создаёт событие добавления.
func NewStudentAddedEvent(s Student) StudentAddedEvent {
	return StudentAddedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStudentAdded, s.ID),
		Student:   s.Clone(),
	}
}

// StudentReplacedEvent - ученик целиком заменён в Roster.
type StudentReplacedEvent struct {
	shared.BaseEvent
	Before Student
	After  Student
}

// Payload implements shared.Event.
func (e StudentReplacedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.After.ID,
		"old_xp":     int(e.Before.XP),
		"new_xp":     int(e.After.XP),
		"old_grade":  e.Before.Grade.Slug(),
		"new_grade":  e.After.Grade.Slug(),
	}
}

// NewStudentReplacedEvent создаёт событие замены.
func NewStudentReplacedEvent(before, after Student) StudentReplacedEvent {
	return StudentReplacedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStudentReplaced, after.ID),
		Before:    before.Clone(),
		After:     after.Clone(),
	}
}

// StudentRemovedEvent - ученик удалён из Roster.
type StudentRemovedEvent struct {
	shared.BaseEvent
	Student Student
}

// Payload implements shared.Event.
func (e StudentRemovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.Student.ID,
		"grade":      e.Student.Grade.Slug(),
	}
}

// NewStudentRemovedEvent создаёт событие удаления.
func NewStudentRemovedEvent(s Student) StudentRemovedEvent {
	return StudentRemovedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventStudentRemoved, s.ID),
		Student:   s.Clone(),
	}
}

// XPChangedEvent - XP ученика изменился.
type XPChangedEvent struct {
	shared.BaseEvent
	Change XPChange
}

// Payload implements shared.Event.
func (e XPChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.Change.StudentID,
		"old_xp":     int(e.Change.OldXP),
		"new_xp":     int(e.Change.NewXP),
		"delta":      int(e.Change.Delta()),
		"reason":     string(e.Change.Reason),
		"event_id":   e.Change.EventID,
	}
}

// NewXPChangedEvent создаёт событие изменения XP.
func NewXPChangedEvent(change XPChange) XPChangedEvent {
	return XPChangedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventXPChanged, change.StudentID),
		Change:    change,
	}
}

// LevelUpEvent - ученик перешёл на новый уровень.
type LevelUpEvent struct {
	shared.BaseEvent
	StudentName string
	OldLevel    Level
	NewLevel    Level
}

// Payload implements shared.Event.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.AggregateId,
		"name":       e.StudentName,
		"old_level":  int(e.OldLevel),
		"new_level":  int(e.NewLevel),
	}
}

// NewLevelUpEvent создаёт событие повышения уровня.
func NewLevelUpEvent(s Student, oldLevel Level) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent:   shared.NewBaseEvent(shared.EventLevelUp, s.ID),
		StudentName: s.Name,
		OldLevel:    oldLevel,
		NewLevel:    s.Level,
	}
}
