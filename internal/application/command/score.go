package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE FORM
// The form-layer contract for a score event; tags run before the domain checks.
// ══════════════════════════════════════════════════════════════════════════════

// ScoreForm contains raw score fields as entered by the teacher.
type ScoreForm struct {
	Title    string `validate:"required"`
	Category string `validate:"required,oneof=Homework Project Challenge Test"`
	Score    int    `validate:"gte=0"`
	MaxScore int    `validate:"gte=1"`
	Date     string `validate:"required,datetime=2006-01-02"`
}

// Draft validates the form and converts it into a domain draft.
func (f ScoreForm) Draft() (student.ScoreDraft, error) {
	if err := checkStruct(f, shared.ErrInvalidScoreEvent); err != nil {
		return student.ScoreDraft{}, err
	}

	category, err := student.ParseCategory(f.Category)
	if err != nil {
		return student.ScoreDraft{}, err
	}
	date, err := student.ParseDate(f.Date)
	if err != nil {
		return student.ScoreDraft{}, err
	}

	draft := student.ScoreDraft{
		Title:    strings.TrimSpace(f.Title),
		Category: category,
		Score:    f.Score,
		MaxScore: f.MaxScore,
		Date:     date,
	}
	return draft, draft.Validate()
}

// ScoreResult is returned by every score command.
type ScoreResult struct {
	Student  student.Student
	Change   student.LedgerChange
	XPChange *student.XPChange
}

// LeveledUp reports whether the write crossed a level boundary upwards.
func (r *ScoreResult) LeveledUp() bool {
	return r.XPChange != nil && r.XPChange.LeveledUp()
}

// ══════════════════════════════════════════════════════════════════════════════
// RECORD SCORE
// ══════════════════════════════════════════════════════════════════════════════

// RecordScoreCommand adds a new score event to a student.
type RecordScoreCommand struct {
	StudentID     string    `validate:"required"`
	Form          ScoreForm `validate:"-"`
	CorrelationID string
}

// RecordScoreHandler handles RecordScoreCommand.
type RecordScoreHandler struct {
	deps Deps
}

// NewRecordScoreHandler creates a new RecordScoreHandler.
func NewRecordScoreHandler(deps Deps) *RecordScoreHandler {
	return &RecordScoreHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *RecordScoreHandler) Handle(ctx context.Context, cmd RecordScoreCommand) (*ScoreResult, error) {
	cmd.CorrelationID = correlationOr(cmd.CorrelationID)
	log := h.deps.Logger.WithActionID(cmd.CorrelationID).With(
		logger.Operation("record_score"),
		logger.StudentID(cmd.StudentID),
	)

	if err := checkStruct(cmd, shared.ErrUnknownStudentID); err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}
	draft, err := cmd.Form.Draft()
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	before, err := h.deps.Roster.FindByID(ctx, cmd.StudentID)
	if err != nil {
		log.Warn("student lookup failed", logger.Err(err))
		return nil, err
	}

	after, change, err := student.CreateScore(before, draft, h.deps.EventIDs)
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	xp, err := h.deps.apply(ctx, commit{
		before:        before,
		after:         after,
		reason:        student.XPReasonScoreCreated,
		eventID:       change.Event.ID,
		correlationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("record_score: %w", err)
	}

	log.Info("score recorded",
		logger.EventID(change.Event.ID),
		logger.Category(change.Event.Category.String()),
		logger.XPAmount(int(change.Delta())),
		logger.XPTotal(int(after.XP)),
		logger.StudentLevel(int(after.Level)),
	)

	return &ScoreResult{Student: after, Change: change, XPChange: xp}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EDIT SCORE
// ══════════════════════════════════════════════════════════════════════════════

// EditScoreCommand replaces the fields of an existing score event.
type EditScoreCommand struct {
	StudentID     string    `validate:"required"`
	EventID       string
	Form          ScoreForm `validate:"-"`
	CorrelationID string
}

// EditScoreHandler handles EditScoreCommand.
type EditScoreHandler struct {
	deps Deps
}

// NewEditScoreHandler creates a new EditScoreHandler.
func NewEditScoreHandler(deps Deps) *EditScoreHandler {
	return &EditScoreHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *EditScoreHandler) Handle(ctx context.Context, cmd EditScoreCommand) (*ScoreResult, error) {
	cmd.CorrelationID = correlationOr(cmd.CorrelationID)
	log := h.deps.Logger.WithActionID(cmd.CorrelationID).With(
		logger.Operation("edit_score"),
		logger.StudentID(cmd.StudentID),
		logger.EventID(cmd.EventID),
	)

	if err := checkStruct(cmd, shared.ErrUnknownStudentID); err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}
	draft, err := cmd.Form.Draft()
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	before, err := h.deps.Roster.FindByID(ctx, cmd.StudentID)
	if err != nil {
		log.Warn("student lookup failed", logger.Err(err))
		return nil, err
	}

	after, change, err := student.UpdateScore(before, cmd.EventID, draft)
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	xp, err := h.deps.apply(ctx, commit{
		before:        before,
		after:         after,
		reason:        student.XPReasonScoreUpdated,
		eventID:       change.Event.ID,
		correlationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("edit_score: %w", err)
	}

	log.Info("score edited",
		logger.Category(change.Event.Category.String()),
		logger.Bool("moved", change.Moved()),
		logger.XPAmount(int(change.Delta())),
		logger.XPTotal(int(after.XP)),
	)

	return &ScoreResult{Student: after, Change: change, XPChange: xp}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DELETE SCORE
// ══════════════════════════════════════════════════════════════════════════════

// DeleteScoreCommand removes a score event. Confirmation is the caller's job.
type DeleteScoreCommand struct {
	StudentID     string `validate:"required"`
	EventID       string
	CorrelationID string
}

// DeleteScoreHandler handles DeleteScoreCommand.
type DeleteScoreHandler struct {
	deps Deps
}

// NewDeleteScoreHandler creates a new DeleteScoreHandler.
func NewDeleteScoreHandler(deps Deps) *DeleteScoreHandler {
	return &DeleteScoreHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *DeleteScoreHandler) Handle(ctx context.Context, cmd DeleteScoreCommand) (*ScoreResult, error) {
	cmd.CorrelationID = correlationOr(cmd.CorrelationID)
	log := h.deps.Logger.WithActionID(cmd.CorrelationID).With(
		logger.Operation("delete_score"),
		logger.StudentID(cmd.StudentID),
		logger.EventID(cmd.EventID),
	)

	if err := checkStruct(cmd, shared.ErrUnknownStudentID); err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	before, err := h.deps.Roster.FindByID(ctx, cmd.StudentID)
	if err != nil {
		log.Warn("student lookup failed", logger.Err(err))
		return nil, err
	}

	after, change, err := student.DeleteScore(before, cmd.EventID)
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	xp, err := h.deps.apply(ctx, commit{
		before:        before,
		after:         after,
		reason:        student.XPReasonScoreDeleted,
		eventID:       change.Event.ID,
		correlationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("delete_score: %w", err)
	}

	log.Info("score deleted",
		logger.XPAmount(int(change.Delta())),
		logger.XPTotal(int(after.XP)),
		logger.Bool("clamped", int(before.XP)-change.Event.Score < 0),
	)

	return &ScoreResult{Student: after, Change: change, XPChange: xp}, nil
}

func correlationOr(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
