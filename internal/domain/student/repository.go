package student

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Roster - каноническая коллекция учеников. Все записи проходят через
// Add, Replace и Remove; частичного обновления на уровне хранилища нет.
type Roster interface {
	// FindByID возвращает копию ученика.
	// Возвращает shared.ErrUnknownStudentID, если ученик не найден.
	FindByID(ctx context.Context, id string) (Student, error)

	// FilterByGrade возвращает учеников в порядке коллекции.
	// GradeAll возвращает всех.
	FilterByGrade(ctx context.Context, filter GradeFilter) ([]Student, error)

	// Add добавляет ученика в конец с новым уникальным идентификатором
	// и возвращает сохранённое значение.
	Add(ctx context.Context, s Student) (Student, error)

	// Replace целиком заменяет ученика с тем же ID.
	// Возвращает shared.ErrUnknownStudentID, если ученик не найден.
	Replace(ctx context.Context, s Student) error

	// Remove удаляет ученика и возвращает удалённое значение.
	// Ссылки на него вне хранилища вызывающий инвалидирует сам.
	Remove(ctx context.Context, id string) (Student, error)

	// Count возвращает количество учеников.
	Count(ctx context.Context) (int, error)
}

// XPJournal хранит историю изменений XP.
type XPJournal interface {
	// Append добавляет запись.
	Append(ctx context.Context, change XPChange) error

	// ListByStudent возвращает последние записи ученика, новые первыми.
	ListByStudent(ctx context.Context, studentID string, limit int) ([]XPChange, error)
}
