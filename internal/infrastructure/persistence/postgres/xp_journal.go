package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/gradebook/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP JOURNAL
// ══════════════════════════════════════════════════════════════════════════════

const (
	insertXPChangeSQL = `
		INSERT INTO xp_journal (
			student_id, old_xp, new_xp, old_level, new_level,
			reason, event_id, correlation_id, at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	listXPChangesSQL = `
		SELECT student_id, old_xp, new_xp, old_level, new_level,
			reason, event_id, correlation_id, at
		FROM xp_journal
		WHERE student_id = $1
		ORDER BY id DESC`

	forgetStudentSQL = `DELETE FROM xp_journal WHERE student_id = $1`
)

// forgetTimeout bounds the cleanup issued from the removal handler, which
// carries no context of its own.
const forgetTimeout = 5 * time.Second

// XPJournal implements student.XPJournal on PostgreSQL.
type XPJournal struct {
	db     Querier
	logger *slog.Logger
}

// NewXPJournal creates a journal over an open connection.
func NewXPJournal(db Querier, logger *slog.Logger) *XPJournal {
	if logger == nil {
		logger = slog.Default()
	}
	return &XPJournal{db: db, logger: logger.With("component", "xp_journal")}
}

// Append records a change.
func (j *XPJournal) Append(ctx context.Context, change student.XPChange) error {
	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := j.db.Exec(ctx, insertXPChangeSQL,
		change.StudentID,
		int(change.OldXP),
		int(change.NewXP),
		int(change.OldLevel),
		int(change.NewLevel),
		string(change.Reason),
		change.EventID,
		change.CorrelationID,
		at,
	)
	if err != nil {
		return fmt.Errorf("append xp change for %s: %w", change.StudentID, err)
	}
	return nil
}

// ListByStudent returns up to limit entries, newest first. limit <= 0 returns all.
func (j *XPJournal) ListByStudent(ctx context.Context, studentID string, limit int) ([]student.XPChange, error) {
	query := listXPChangesSQL
	args := []interface{}{studentID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := j.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list xp changes for %s: %w", studentID, err)
	}

	changes, err := pgx.CollectRows(rows, scanXPChange)
	if err != nil {
		return nil, fmt.Errorf("scan xp changes for %s: %w", studentID, err)
	}
	return changes, nil
}

// Forget deletes a removed student's history. Failures are logged.
func (j *XPJournal) Forget(studentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), forgetTimeout)
	defer cancel()

	tag, err := j.db.Exec(ctx, forgetStudentSQL, studentID)
	if err != nil {
		j.logger.Error("failed to forget xp history", "student_id", studentID, "error", err)
		return
	}
	j.logger.Debug("xp history forgotten", "student_id", studentID, "rows", tag.RowsAffected())
}

func scanXPChange(row pgx.CollectableRow) (student.XPChange, error) {
	var (
		c                  student.XPChange
		oldXP, newXP       int
		oldLevel, newLevel int
		reason             string
	)
	err := row.Scan(
		&c.StudentID,
		&oldXP,
		&newXP,
		&oldLevel,
		&newLevel,
		&reason,
		&c.EventID,
		&c.CorrelationID,
		&c.At,
	)
	if err != nil {
		return student.XPChange{}, err
	}

	c.OldXP = student.XP(oldXP)
	c.NewXP = student.XP(newXP)
	c.OldLevel = student.Level(oldLevel)
	c.NewLevel = student.Level(newLevel)
	c.Reason = student.XPReason(reason)
	return c, nil
}

var _ student.XPJournal = (*XPJournal)(nil)
