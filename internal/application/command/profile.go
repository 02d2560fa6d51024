package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// EDIT PROFILE COMMAND
// Manual teacher override of name, grade and XP in one write.
// ══════════════════════════════════════════════════════════════════════════════

// EditProfileCommand contains the new profile values.
type EditProfileCommand struct {
	StudentID string `validate:"required"`
	Name      string `validate:"required"`
	Grade     string `validate:"required"`

	// XP may be lower than the current value; it is not reconciled with the ledgers.
	XP int `validate:"gte=0"`

	CorrelationID string
}

// EditProfileResult contains the stored student.
type EditProfileResult struct {
	Student  student.Student
	XPChange *student.XPChange
}

// EditProfileHandler handles EditProfileCommand.
type EditProfileHandler struct {
	deps Deps
}

// NewEditProfileHandler creates a new EditProfileHandler.
func NewEditProfileHandler(deps Deps) *EditProfileHandler {
	return &EditProfileHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *EditProfileHandler) Handle(ctx context.Context, cmd EditProfileCommand) (*EditProfileResult, error) {
	cmd.CorrelationID = correlationOr(cmd.CorrelationID)
	log := h.deps.Logger.WithActionID(cmd.CorrelationID).With(
		logger.Operation("edit_profile"),
		logger.StudentID(cmd.StudentID),
	)

	if err := checkStruct(cmd, shared.ErrInvalidStudent); err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	grade, err := student.ParseGrade(cmd.Grade)
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	before, err := h.deps.Roster.FindByID(ctx, cmd.StudentID)
	if err != nil {
		log.Warn("student lookup failed", logger.Err(err))
		return nil, err
	}

	after, err := before.EditProfile(student.ProfileEdit{
		Name:  cmd.Name,
		Grade: grade,
		XP:    student.XP(cmd.XP),
	})
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	xp, err := h.deps.apply(ctx, commit{
		before:        before,
		after:         after,
		reason:        student.XPReasonManualEdit,
		correlationID: cmd.CorrelationID,
	})
	if err != nil {
		return nil, fmt.Errorf("edit_profile: %w", err)
	}

	log.Info("profile edited",
		logger.Grade(after.Grade.Slug()),
		logger.XPTotal(int(after.XP)),
		logger.StudentLevel(int(after.Level)),
	)

	return &EditProfileResult{Student: after, XPChange: xp}, nil
}
