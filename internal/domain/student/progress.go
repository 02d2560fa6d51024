package student

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP JOURNAL
// Каждое изменение XP фиксируется записью XPChange.
// ══════════════════════════════════════════════════════════════════════════════

// XPReason - причина изменения XP.
type XPReason string

const (
	XPReasonScoreCreated XPReason = "score_created"
	XPReasonScoreUpdated XPReason = "score_updated"
	XPReasonScoreDeleted XPReason = "score_deleted"
	XPReasonManualEdit   XPReason = "manual_edit"
)

// XPChange - запись журнала изменений XP.
type XPChange struct {
	StudentID string
	OldXP     XP
	NewXP     XP
	Reason    XPReason

	// EventID - запись журнала оценок, вызвавшая изменение (если есть).
	EventID string

	OldLevel Level
	NewLevel Level

	// CorrelationID связывает запись с действием пользователя.
	CorrelationID string

	At time.Time
}

// NewXPChange собирает запись из состояний ученика до и после.
func NewXPChange(before, after Student, reason XPReason, eventID string, at time.Time) XPChange {
	return XPChange{
		StudentID: after.ID,
		OldXP:     before.XP,
		NewXP:     after.XP,
		Reason:    reason,
		EventID:   eventID,
		OldLevel:  before.Level,
		NewLevel:  after.Level,
		At:        at,
	}
}

// Delta возвращает изменение XP.
func (c XPChange) Delta() XP {
	return c.NewXP - c.OldXP
}

// LeveledUp возвращает true, если уровень вырос.
func (c XPChange) LeveledUp() bool {
	return c.NewLevel > c.OldLevel
}

// IsNoop возвращает true, если XP не изменился.
func (c XPChange) IsNoop() bool {
	return c.OldXP == c.NewXP
}
