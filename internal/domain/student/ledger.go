package student

import (
	"github.com/alem-hub/gradebook/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE LEDGER OPERATIONS
// Чистые функции: принимают Student и возвращают новый Student.
// Журналы заданий и тестов делят одно пространство идентификаторов.
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator выдаёт кандидатов в идентификаторы записей журнала.
type IDGenerator func() string

// maxIDAttempts ограничивает поиск свободного идентификатора.
const maxIDAttempts = 16

// LedgerChange описывает результат операции над журналом.
type LedgerChange struct {
	// Event - созданная, изменённая или удалённая запись.
	Event ScoreEvent

	// Previous - запись до изменения (только для UpdateScore).
	Previous *ScoreEvent

	// From и To - журналы до и после; при переносе Test <-> задание они различаются.
	From Ledger
	To   Ledger

	OldXP XP
	NewXP XP
}

// Delta возвращает изменение XP.
func (c LedgerChange) Delta() XP {
	return c.NewXP - c.OldXP
}

// Moved возвращает true, если запись перешла в другой журнал.
func (c LedgerChange) Moved() bool {
	return c.From != "" && c.To != "" && c.From != c.To
}

// CreateScore добавляет запись в журнал по категории черновика
// и прибавляет оценку к XP без ограничения.
func CreateScore(s Student, draft ScoreDraft, nextID IDGenerator) (Student, LedgerChange, error) {
	if err := draft.Validate(); err != nil {
		return Student{}, LedgerChange{}, err
	}

	id, err := freshEventID(s, nextID)
	if err != nil {
		return Student{}, LedgerChange{}, err
	}

	ev := draft.toEvent(id)
	c := s.WithXP(s.XP + XP(draft.Score))
	if ev.IsTest() {
		c.Tests = append(c.Tests, ev)
	} else {
		c.Assignments = append(c.Assignments, ev)
	}

	return c, LedgerChange{
		Event: ev,
		To:    ev.Category.Ledger(),
		OldXP: s.XP,
		NewXP: c.XP,
	}, nil
}

// UpdateScore заменяет поля записи. Если журнал не меняется, запись остаётся
// на своём месте; иначе она удаляется из исходного журнала и добавляется в конец
// целевого. XP меняется на разницу новой и старой оценки без ограничения.
func UpdateScore(s Student, eventID string, draft ScoreDraft) (Student, LedgerChange, error) {
	if eventID == "" {
		return Student{}, LedgerChange{}, shared.ErrUnknownEventID.WithOp("Update").Detail("event id is empty")
	}
	if err := draft.Validate(); err != nil {
		return Student{}, LedgerChange{}, err
	}

	old, from, idx, ok := s.FindEvent(eventID)
	if !ok {
		return Student{}, LedgerChange{}, shared.ErrUnknownEventID.WithOp("Update").Detail("%q", eventID)
	}

	ev := draft.toEvent(old.ID)
	to := ev.Category.Ledger()

	c := s.WithXP(s.XP + XP(ev.Score-old.Score))
	switch {
	case from == to && from == LedgerTests:
		c.Tests[idx] = ev
	case from == to:
		c.Assignments[idx] = ev
	case from == LedgerTests:
		c.Tests = removeAt(c.Tests, idx)
		c.Assignments = append(c.Assignments, ev)
	default:
		c.Assignments = removeAt(c.Assignments, idx)
		c.Tests = append(c.Tests, ev)
	}

	return c, LedgerChange{
		Event:    ev,
		Previous: &old,
		From:     from,
		To:       to,
		OldXP:    s.XP,
		NewXP:    c.XP,
	}, nil
}

// DeleteScore удаляет запись из журнала, в котором она лежит.
// XP уменьшается на её оценку, но не опускается ниже нуля.
func DeleteScore(s Student, eventID string) (Student, LedgerChange, error) {
	if eventID == "" {
		return Student{}, LedgerChange{}, shared.ErrUnknownEventID.WithOp("Delete").Detail("event id is empty")
	}

	old, from, idx, ok := s.FindEvent(eventID)
	if !ok {
		return Student{}, LedgerChange{}, shared.ErrUnknownEventID.WithOp("Delete").Detail("%q", eventID)
	}

	newXP := s.XP - XP(old.Score)
	if newXP < 0 {
		newXP = 0
	}

	c := s.WithXP(newXP)
	if from == LedgerTests {
		c.Tests = removeAt(c.Tests, idx)
	} else {
		c.Assignments = removeAt(c.Assignments, idx)
	}

	return c, LedgerChange{
		Event: old,
		From:  from,
		OldXP: s.XP,
		NewXP: c.XP,
	}, nil
}

// FindEvent ищет запись по идентификатору в обоих журналах.
func (s Student) FindEvent(eventID string) (ScoreEvent, Ledger, int, bool) {
	for i, e := range s.Assignments {
		if e.ID == eventID {
			return e, LedgerAssignments, i, true
		}
	}
	for i, e := range s.Tests {
		if e.ID == eventID {
			return e, LedgerTests, i, true
		}
	}
	return ScoreEvent{}, "", -1, false
}

// HasEvent проверяет, занят ли идентификатор в любом из журналов.
func (s Student) HasEvent(eventID string) bool {
	_, _, _, ok := s.FindEvent(eventID)
	return ok
}

// LedgerTotal возвращает сумму оценок обоих журналов. Может не совпадать с XP.
func (s Student) LedgerTotal() int {
	total := 0
	for _, e := range s.Assignments {
		total += e.Score
	}
	for _, e := range s.Tests {
		total += e.Score
	}
	return total
}

func freshEventID(s Student, nextID IDGenerator) (string, error) {
	if nextID == nil {
		return "", shared.ErrInvalidScoreEvent.WithOp("Create").Detail("no id generator")
	}
	for i := 0; i < maxIDAttempts; i++ {
		id := nextID()
		if id != "" && !s.HasEvent(id) {
			return id, nil
		}
	}
	return "", shared.ErrDuplicateEventID.Detail("no free id after %d attempts", maxIDAttempts)
}

func removeAt(events []ScoreEvent, idx int) []ScoreEvent {
	out := make([]ScoreEvent, 0, len(events)-1)
	out = append(out, events[:idx]...)
	return append(out, events[idx+1:]...)
}
