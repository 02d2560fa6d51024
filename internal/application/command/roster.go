package command

import (
	"context"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// AddStudentCommand enrolls a new student with zero XP.
type AddStudentCommand struct {
	Name          string `validate:"required"`
	Grade         string `validate:"required"`
	CorrelationID string
}

// AddStudentHandler handles AddStudentCommand.
type AddStudentHandler struct {
	deps Deps
}

// NewAddStudentHandler creates a new AddStudentHandler.
func NewAddStudentHandler(deps Deps) *AddStudentHandler {
	return &AddStudentHandler{deps: deps.withDefaults()}
}

// Handle executes the command and returns the stored student with its new id.
func (h *AddStudentHandler) Handle(ctx context.Context, cmd AddStudentCommand) (student.Student, error) {
	cmd.CorrelationID = correlationOr(cmd.CorrelationID)
	log := h.deps.Logger.WithActionID(cmd.CorrelationID).With(logger.Operation("add_student"))

	if err := checkStruct(cmd, shared.ErrInvalidStudent); err != nil {
		log.Warn("rejected", logger.Err(err))
		return student.Student{}, err
	}

	grade, err := student.ParseGrade(cmd.Grade)
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return student.Student{}, err
	}

	fresh, err := student.NewStudent(student.NewStudentParams{Name: cmd.Name, Grade: grade})
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return student.Student{}, err
	}

	stored, err := h.deps.Roster.Add(ctx, fresh)
	if err != nil {
		log.Error("roster add failed", logger.Err(err))
		return student.Student{}, err
	}

	event := student.NewStudentAddedEvent(stored)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	h.deps.publish(log, event)

	log.Info("student added", logger.StudentID(stored.ID), logger.Grade(stored.Grade.Slug()))
	return stored, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REMOVE STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// RemoveStudentCommand deletes a student and its ledgers.
// Confirmation and clearing any selection of the id are the caller's job.
type RemoveStudentCommand struct {
	StudentID     string `validate:"required"`
	CorrelationID string
}

// RemoveStudentHandler handles RemoveStudentCommand.
type RemoveStudentHandler struct {
	deps Deps
}

// NewRemoveStudentHandler creates a new RemoveStudentHandler.
func NewRemoveStudentHandler(deps Deps) *RemoveStudentHandler {
	return &RemoveStudentHandler{deps: deps.withDefaults()}
}

// Handle executes the command and returns the removed student.
func (h *RemoveStudentHandler) Handle(ctx context.Context, cmd RemoveStudentCommand) (student.Student, error) {
	cmd.CorrelationID = correlationOr(cmd.CorrelationID)
	log := h.deps.Logger.WithActionID(cmd.CorrelationID).With(
		logger.Operation("remove_student"),
		logger.StudentID(cmd.StudentID),
	)

	if err := checkStruct(cmd, shared.ErrUnknownStudentID); err != nil {
		log.Warn("rejected", logger.Err(err))
		return student.Student{}, err
	}

	removed, err := h.deps.Roster.Remove(ctx, cmd.StudentID)
	if err != nil {
		log.Warn("roster remove failed", logger.Err(err))
		return student.Student{}, err
	}

	event := student.NewStudentRemovedEvent(removed)
	event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	h.deps.publish(log, event)

	log.Info("student removed",
		logger.Count("assignments", len(removed.Assignments)),
		logger.Count("tests", len(removed.Tests)),
	)
	return removed, nil
}
