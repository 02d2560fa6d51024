package leaderboard

import (
	"context"

	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD MIRROR INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Standing - позиция ученика в зеркале рейтинга (без имени и класса).
type Standing struct {
	Rank      Rank
	StudentID string
	XP        student.XP
}

// Mirror - внешняя копия рейтинга (например, отсортированные множества Redis).
// Источник истины всегда Roster: зеркало пересобирается через Sync
// и поддерживается событиями ученика.
type Mirror interface {
	// Sync полностью перестраивает зеркало из учеников.
	Sync(ctx context.Context, students []student.Student) error

	// Upsert обновляет позицию ученика; previousGrade задаётся при смене класса.
	Upsert(ctx context.Context, s student.Student, previousGrade student.Grade) error

	// Remove удаляет ученика из зеркала.
	Remove(ctx context.Context, studentID string, grade student.Grade) error

	// Top возвращает первые limit позиций по фильтру класса.
	Top(ctx context.Context, filter student.GradeFilter, limit int) ([]Standing, error)

	// RankOf возвращает ранг ученика или ErrNotRanked.
	RankOf(ctx context.Context, filter student.GradeFilter, studentID string) (Rank, error)
}
