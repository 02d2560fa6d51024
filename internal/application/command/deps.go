// Package command contains write operations (CQRS - Commands).
// Every handler loads a student from the roster, applies a pure domain
// operation and commits the new value through a single Replace.
package command

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/alem-hub/gradebook/internal/domain/shared"
	"github.com/alem-hub/gradebook/internal/domain/student"
	"github.com/alem-hub/gradebook/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Deps bundles the collaborators shared by all command handlers.
type Deps struct {
	// Roster is the canonical student store (required).
	Roster student.Roster

	// Journal records XP changes. Optional.
	Journal student.XPJournal

	// Publisher receives domain events after each write. Optional.
	Publisher shared.EventPublisher

	// Logger for structured logging. Optional.
	Logger *logger.Logger

	// Clock returns the current time. Optional.
	Clock func() time.Time

	// EventIDs generates score event ids. Optional.
	EventIDs student.IDGenerator
}

// NewEventID returns a fresh score event id ("n-<uuid>").
func NewEventID() string {
	return "n-" + uuid.NewString()
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = shared.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	if d.EventIDs == nil {
		d.EventIDs = NewEventID
	}
	return d
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMIT
// ══════════════════════════════════════════════════════════════════════════════

// commit is one write: Replace, then journal and events.
type commit struct {
	before        student.Student
	after         student.Student
	reason        student.XPReason
	eventID       string
	correlationID string
}

// apply stores the new value and fans out the consequences. Journal and
// publish failures are logged: the roster write is already the truth.
func (d Deps) apply(ctx context.Context, c commit) (*student.XPChange, error) {
	if err := d.Roster.Replace(ctx, c.after); err != nil {
		return nil, err
	}

	log := d.Logger.WithActionID(c.correlationID)

	d.publish(log, withCorrelation(student.NewStudentReplacedEvent(c.before, c.after), c.correlationID))

	if c.before.XP == c.after.XP {
		return nil, nil
	}

	change := student.NewXPChange(c.before, c.after, c.reason, c.eventID, d.Clock())
	change.CorrelationID = c.correlationID

	if d.Journal != nil {
		if err := d.Journal.Append(ctx, change); err != nil {
			log.Warn("xp journal append failed",
				logger.StudentID(change.StudentID),
				logger.Err(err),
			)
		}
	}

	xpEvent := student.NewXPChangedEvent(change)
	xpEvent.BaseEvent = xpEvent.BaseEvent.WithCorrelationID(c.correlationID)
	d.publish(log, xpEvent)

	if change.LeveledUp() {
		up := student.NewLevelUpEvent(c.after, c.before.Level)
		up.BaseEvent = up.BaseEvent.WithCorrelationID(c.correlationID)
		d.publish(log, up)
	}

	return &change, nil
}

func (d Deps) publish(log *logger.Logger, event shared.Event) {
	if err := d.Publisher.Publish(event); err != nil {
		log.Warn("publish event failed",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}

func withCorrelation(e student.StudentReplacedEvent, id string) student.StudentReplacedEvent {
	e.BaseEvent = e.BaseEvent.WithCorrelationID(id)
	return e
}

// ══════════════════════════════════════════════════════════════════════════════
// INPUT VALIDATION
// ══════════════════════════════════════════════════════════════════════════════

var validate = validator.New(validator.WithRequiredStructEnabled())

// checkStruct runs the struct's validate tags and maps the first failure
// onto the given domain error kind.
func checkStruct(v any, kind *shared.DomainError) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		if fe.Param() != "" {
			return kind.Detail("%s: %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value())
		}
		return kind.Detail("%s: %s (got %v)", fe.Field(), fe.Tag(), fe.Value())
	}
	return kind.Wrap(err)
}
