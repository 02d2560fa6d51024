// Package student содержит доменную модель ученика и его журнала оценок.
//
// Это ядро бизнес-логики гейм-журнала. Пакет определяет:
//
//   - Агрегат: Student (идентичность, класс, XP, уровень, значки, посещаемость, журналы)
//   - Запись журнала: ScoreEvent с категорией Homework / Project / Challenge / Test
//   - Операции журнала: CreateScore, UpdateScore, DeleteScore
//   - Функцию уровней: LevelOf
//   - Доменные события: StudentAdded, StudentReplaced, StudentRemoved, XPChanged, LevelUp
//   - Интерфейсы хранилищ: Roster, XPJournal
//
// # Инварианты
//
// Level и XPToNextLevel никогда не хранятся отдельно от XP: любой путь,
// меняющий XP, проходит через Student.WithXP, который пересчитывает оба поля:
//
//	level = XP/1000 + 1
//	xpToNextLevel = level * 1000
//
// Агрегат имеет семантику значения. Операции не меняют исходный Student,
// а возвращают новую копию, которую затем целиком кладут в Roster через Replace:
//
//	updated, ev, err := student.CreateScore(s, draft, uuid.NewString)
//	if err != nil {
//	    return err
//	}
//	return roster.Replace(ctx, updated)
//
// # Расхождение XP и журнала
//
// XP не сверяется с суммой оценок в журнале. Ручная правка профиля и
// ограничение нулём при удалении могут развести их; это допустимо.
package student
