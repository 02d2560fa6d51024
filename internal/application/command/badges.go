package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE COMMANDS
// Badges have no XP side effect.
// ══════════════════════════════════════════════════════════════════════════════

// BadgeCommand names a badge on a student.
type BadgeCommand struct {
	StudentID     string `validate:"required"`
	Badge         string `validate:"required"`
	CorrelationID string
}

// BadgeResult contains the stored student.
type BadgeResult struct {
	Student student.Student

	// Removed is how many entries RemoveBadge dropped.
	Removed int
}

// AddBadgeHandler appends a badge; duplicates are kept.
type AddBadgeHandler struct {
	deps Deps
}

// NewAddBadgeHandler creates a new AddBadgeHandler.
func NewAddBadgeHandler(deps Deps) *AddBadgeHandler {
	return &AddBadgeHandler{deps: deps.withDefaults()}
}

// Handle executes the command.
func (h *AddBadgeHandler) Handle(ctx context.Context, cmd BadgeCommand) (*BadgeResult, error) {
	cmd.CorrelationID = correlationOr(cmd.CorrelationID)
	log := h.deps.Logger.WithActionID(cmd.CorrelationID).With(
		logger.Operation("add_badge"),
		logger.StudentID(cmd.StudentID),
		logger.Badge(cmd.Badge),
	)

	if err := checkStruct(cmd, shared.ErrInvalidBadge); err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	before, err := h.deps.Roster.FindByID(ctx, cmd.StudentID)
	if err != nil {
		log.Warn("student lookup failed", logger.Err(err))
		return nil, err
	}

	after, err := before.AddBadge(cmd.Badge)
	if err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	if _, err := h.deps.apply(ctx, commit{before: before, after: after, correlationID: cmd.CorrelationID}); err != nil {
		return nil, fmt.Errorf("add_badge: %w", err)
	}

	log.Info("badge added", logger.Count("badges", len(after.Badges)))
	return &BadgeResult{Student: after}, nil
}

// RemoveBadgeHandler removes every entry equal to the badge name.
type RemoveBadgeHandler struct {
	deps Deps
}

// NewRemoveBadgeHandler creates a new RemoveBadgeHandler.
func NewRemoveBadgeHandler(deps Deps) *RemoveBadgeHandler {
	return &RemoveBadgeHandler{deps: deps.withDefaults()}
}

// Handle executes the command. Removing an absent badge leaves the roster untouched.
func (h *RemoveBadgeHandler) Handle(ctx context.Context, cmd BadgeCommand) (*BadgeResult, error) {
	cmd.CorrelationID = correlationOr(cmd.CorrelationID)
	log := h.deps.Logger.WithActionID(cmd.CorrelationID).With(
		logger.Operation("remove_badge"),
		logger.StudentID(cmd.StudentID),
		logger.Badge(cmd.Badge),
	)

	if err := checkStruct(cmd, shared.ErrInvalidBadge); err != nil {
		log.Warn("rejected", logger.Err(err))
		return nil, err
	}

	before, err := h.deps.Roster.FindByID(ctx, cmd.StudentID)
	if err != nil {
		log.Warn("student lookup failed", logger.Err(err))
		return nil, err
	}

	after, removed := before.RemoveBadge(cmd.Badge)
	if removed == 0 {
		log.Info("badge not present")
		return &BadgeResult{Student: before}, nil
	}

	if _, err := h.deps.apply(ctx, commit{before: before, after: after, correlationID: cmd.CorrelationID}); err != nil {
		return nil, fmt.Errorf("remove_badge: %w", err)
	}

	log.Info("badge removed", logger.Count("removed", removed))
	return &BadgeResult{Student: after, Removed: removed}, nil
}
